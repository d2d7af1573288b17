// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and any other S3-compatible service (Ceph, SeaweedFS,
// Garage) and needs no AWS dependencies, which suits air-gapped clusters
// where datasets are generated next to the simulator.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "datasets", func(o *minioblob.Options) {
//	    o.Prefix = "radcal/"
//	})
package minio
