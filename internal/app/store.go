package app

import (
	"context"

	"github.com/dmitrijs2005/gdcfetch/internal/config"
	"github.com/dmitrijs2005/gdcfetch/internal/remote"
	"github.com/dmitrijs2005/gdcfetch/internal/remote/miniostore"
	"github.com/dmitrijs2005/gdcfetch/internal/remote/s3store"
)

// StoreFactory builds the object store a run reads from.
type StoreFactory func(ctx context.Context, cfg *config.Config) (remote.ObjectStore, error)

// NewStore picks the adapter for cfg.Backend.
func NewStore(ctx context.Context, cfg *config.Config) (remote.ObjectStore, error) {
	if cfg.Backend == config.BackendMinio {
		return miniostore.New(miniostore.Options{
			Endpoint:     cfg.Endpoint,
			Bucket:       cfg.Bucket,
			Region:       cfg.Region,
			AccessKey:    cfg.AccessKey,
			SecretKey:    cfg.SecretKey,
			Anonymous:    cfg.Anonymous(),
			UsePathStyle: cfg.UsePathStyle,
		})
	}
	return s3store.New(ctx, s3store.Options{
		Bucket:       cfg.Bucket,
		Region:       cfg.Region,
		Endpoint:     cfg.Endpoint,
		Profile:      cfg.Profile,
		AccessKey:    cfg.AccessKey,
		SecretKey:    cfg.SecretKey,
		Anonymous:    cfg.Anonymous(),
		UsePathStyle: cfg.UsePathStyle,
	})
}
