// Package blobstore provides the storage abstraction used to publish and
// load generated datasets.
//
// BlobStore is the interface for reading and writing whole dataset blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local file system with mmap reads and atomic writes
//   - MemoryStore: in-memory, for tests
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3 with multipart uploads
//   - s3.CatalogStore: S3 plus a DynamoDB version catalog
//
// # Usage
//
//	store := blobstore.NewLocalStore("/srv/datasets")
//	err := store.Put(ctx, "radcal/v1.rdb", data)
//
//	m, err := dataset.LoadBlob(ctx, store, "radcal/v1.rdb")
package blobstore
