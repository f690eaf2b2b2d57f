package storage

import (
	"fmt"

	"github.com/cognidesk/idea-vault/internal/config"
)

// NewFactory creates the storage factory named by configuration.
func NewFactory(cfg *config.StorageConfig) (Factory, error) {
	switch cfg.Provider {
	case "", "drive":
		return DriveFactory{}, nil
	case "s3":
		return NewS3Factory(&S3Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			PublicURL: cfg.PublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
