package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/hupe1980/radbase/blobstore"
	radminio "github.com/hupe1980/radbase/blobstore/minio"
	rads3 "github.com/hupe1980/radbase/blobstore/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// newPublishStore returns the store selected by cfg, or nil when publishing
// is disabled.
func newPublishStore(ctx context.Context, cfg PublishConfig) (blobstore.BlobStore, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "local":
		return blobstore.NewLocalStore(cfg.Dir), nil
	case "s3":
		store, err := rads3.New(ctx, cfg.Bucket, func(o *rads3.Options) {
			o.Prefix = cfg.Prefix
			o.Region = cfg.Region
			o.Endpoint = cfg.Endpoint
			o.UsePathStyle = cfg.PathStyle
		})
		if err != nil {
			return nil, err
		}
		if cfg.CatalogTable == "" {
			return store, nil
		}

		var cfgFns []func(*config.LoadOptions) error
		if cfg.Region != "" {
			cfgFns = append(cfgFns, config.WithRegion(cfg.Region))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, cfgFns...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return rads3.NewCatalogStore(store, dynamodb.NewFromConfig(awsCfg), cfg.CatalogTable), nil
	case "minio":
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: !cfg.Insecure,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return radminio.NewStore(client, cfg.Bucket, func(o *radminio.Options) {
			o.Prefix = cfg.Prefix
		}), nil
	default:
		return nil, fmt.Errorf("unknown publish backend %q", cfg.Backend)
	}
}
