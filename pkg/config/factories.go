package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/staticd-io/staticd/pkg/store/resource"
	resourceBadger "github.com/staticd-io/staticd/pkg/store/resource/badger"
	resourceFs "github.com/staticd-io/staticd/pkg/store/resource/fs"
	resourceMemory "github.com/staticd-io/staticd/pkg/store/resource/memory"
	resourceS3 "github.com/staticd-io/staticd/pkg/store/resource/s3"
)

// NewResourceStore creates the resource store selected by the
// configuration. The Type field picks the implementation and the
// matching type-specific map is decoded into its options.
func NewResourceStore(ctx context.Context, cfg *Config) (resource.Store, error) {
	switch cfg.Store.Type {
	case "filesystem":
		return createFilesystemStore(cfg)
	case "memory":
		return createMemoryStore(cfg.Store.Memory)
	case "badger":
		return createBadgerStore(cfg.Store.Badger)
	case "s3":
		return createS3Store(ctx, cfg.Store.S3)
	default:
		return nil, fmt.Errorf("unknown resource store type: %q", cfg.Store.Type)
	}
}

func createFilesystemStore(cfg *Config) (resource.Store, error) {
	type FilesystemStoreConfig struct {
		Path     string `mapstructure:"path"`
		Capacity int    `mapstructure:"capacity"`
	}

	var storeCfg FilesystemStoreConfig
	if err := mapstructure.Decode(cfg.Store.Filesystem, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem store config: %w", err)
	}

	if storeCfg.Path == "" {
		storeCfg.Path = cfg.Site.Root
	}
	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem store: path is required")
	}
	if storeCfg.Capacity == 0 {
		storeCfg.Capacity = cfg.Server.ReadBufferSize
	}

	store, err := resourceFs.NewFSStore(storeCfg.Path, storeCfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem store: %w", err)
	}

	return store, nil
}

func createMemoryStore(options map[string]any) (resource.Store, error) {
	type MemoryStoreConfig struct {
		Capacity int `mapstructure:"capacity"`
	}

	var storeCfg MemoryStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory store config: %w", err)
	}

	if storeCfg.Capacity == 0 {
		storeCfg.Capacity = resource.DefaultReadCapacity
	}

	return resourceMemory.NewMemoryStore(storeCfg.Capacity), nil
}

func createBadgerStore(options map[string]any) (resource.Store, error) {
	type BadgerStoreConfig struct {
		Path     string `mapstructure:"path"`
		ReadOnly bool   `mapstructure:"read_only"`
		Capacity int    `mapstructure:"capacity"`
	}

	var storeCfg BadgerStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("badger store: path is required")
	}
	if storeCfg.Capacity == 0 {
		storeCfg.Capacity = resource.DefaultReadCapacity
	}

	store, err := resourceBadger.NewBadgerStore(resourceBadger.Options{
		Path:     storeCfg.Path,
		ReadOnly: storeCfg.ReadOnly,
		Capacity: storeCfg.Capacity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger store: %w", err)
	}

	return store, nil
}

func createS3Store(ctx context.Context, options map[string]any) (resource.Store, error) {
	type S3StoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		Capacity        int    `mapstructure:"capacity"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3StoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Custom endpoint support for MinIO, Localstack, etc.
	if storeCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for MinIO/Localstack compatibility.
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	if storeCfg.Capacity == 0 {
		storeCfg.Capacity = resource.DefaultReadCapacity
	}

	store, err := resourceS3.NewS3Store(resourceS3.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
		Capacity:  storeCfg.Capacity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store: %w", err)
	}

	return store, nil
}
