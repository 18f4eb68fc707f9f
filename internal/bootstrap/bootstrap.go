// Package bootstrap provides dependency initialization for the composition service.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stillframe/stillframe-api/internal/artifact"
	"github.com/stillframe/stillframe-api/internal/asset"
	"github.com/stillframe/stillframe-api/internal/compose"
	"github.com/stillframe/stillframe-api/internal/config"
	"github.com/stillframe/stillframe-api/internal/effect"
	"github.com/stillframe/stillframe-api/internal/media"
	"github.com/stillframe/stillframe-api/internal/storage"
	"github.com/stillframe/stillframe-api/internal/subtitle"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Service  *compose.Service
	Registry *artifact.Registry
	Engine   *media.Engine
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	decoder, err := asset.NewDecoder(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create asset decoder: %w", err)
	}

	registry, err := artifact.NewRegistry(cfg.OutputDir, artifact.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create artifact registry: %w", err)
	}

	uploader, err := initUploader(cfg, logger)
	if err != nil {
		return nil, err
	}

	engine := media.NewEngine(cfg.FFmpegPath, cfg.FFprobePath)

	svc := compose.NewService(compose.Config{
		Decoder:  decoder,
		Engine:   engine,
		Planner:  effect.NewPlanner(nil),
		Stylist:  subtitle.NewStylist(newFontResolver(cfg)),
		Registry: registry,
		Uploader: uploader,
		FontsDir: cfg.FontsDir,
		Logger:   logger,
	})

	return &Dependencies{
		Service:  svc,
		Registry: registry,
		Engine:   engine,
	}, nil
}

// newFontResolver registers the configured faces. The CJK face renders in
// bold, the Latin face in regular; neither falls back to the other weight.
func newFontResolver(cfg *config.Config) *subtitle.StaticFontResolver {
	fonts := subtitle.NewStaticFontResolver()
	fonts.Register("chinese", subtitle.Font{
		Family: cfg.CJKFontFamily,
		Weight: subtitle.WeightBold,
	})
	fonts.Register("english", subtitle.Font{
		Family: cfg.LatinFontFamily,
		Weight: subtitle.WeightRegular,
	})
	return fonts
}

// initUploader creates the remote storage backend based on configuration.
func initUploader(cfg *config.Config, logger *slog.Logger) (storage.Uploader, error) {
	if !cfg.S3Enabled() {
		logger.Info("remote storage disabled, serving downloads locally")
		return storage.Disabled{}, nil
	}

	uploader, err := storage.NewS3Uploader(context.Background(), storage.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 uploader: %w", err)
	}
	logger.Info("S3 storage configured",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("region", cfg.S3Region),
	)
	return uploader, nil
}
