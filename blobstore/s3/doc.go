// Package s3 provides Amazon S3 implementations of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", func(o *s3.Options) {
//	    o.Prefix = "radcal/"
//	    o.Region = "eu-central-1"
//	})
//
// Store uploads whole datasets with CRC32C checksums and streams large ones
// through multipart uploads. CatalogStore adds a DynamoDB table that records
// every published version of a dataset name, so that concurrent generators
// publishing under the same name never overwrite each other and readers
// always open the latest committed version.
package s3
