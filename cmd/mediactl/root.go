package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gathr/service/internal/config"
	"github.com/gathr/service/internal/media"
	"github.com/gathr/service/internal/storage"
)

// app is the state shared by every subcommand. The store is built once in
// PersistentPreRunE and handed to the media service.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	svc      *media.Service
}

func newRootCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	var showMetrics bool

	cmd := &cobra.Command{
		Use:          "mediactl",
		Short:        "Manage entity profile images in object storage",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if !showMetrics {
				return nil
			}
			return writeMetrics(cmd.OutOrStdout(), a.registry)
		},
	}

	cmd.PersistentFlags().StringVar(&cfg.StorageBackend, "backend", cfg.StorageBackend, "storage backend: s3, minio or memory")
	cmd.PersistentFlags().StringVar(&cfg.StorageBucket, "bucket", cfg.StorageBucket, "media bucket")
	cmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "print operation metrics after the command")

	cmd.AddCommand(
		newUploadCmd(a),
		newDeleteCmd(a),
		newListCmd(a),
		newBucketsCmd(a),
		newMkdirCmd(a),
		newKeyCmd(a),
		newTypesCmd(),
	)
	return cmd
}

func (a *app) init(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := newStore(ctx, a.cfg)
	if err != nil {
		return err
	}

	mapper, err := media.NewKeyMapper(a.cfg.StorageBucket, hostPattern(a.cfg, store))
	if err != nil {
		return err
	}

	observer, err := media.NewPrometheusObserver("gathr_media", a.registry)
	if err != nil {
		return err
	}

	a.svc = media.NewService(store, mapper, media.WithLogger(a.logger), media.WithObserver(observer))
	return nil
}

// opContext bounds one command by OP_TIMEOUT.
func (a *app) opContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if a.cfg.OpTimeout > 0 {
		return context.WithTimeout(ctx, a.cfg.OpTimeout)
	}
	return context.WithCancel(ctx)
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.IsProduction() {
		if cfg.StorageBackend == "memory" {
			return nil, errors.New("memory storage backend is not allowed in production")
		}
		if cfg.StorageEnsure {
			return nil, errors.New("STORAGE_ENSURE_BUCKET is not allowed in production")
		}
	}

	switch cfg.StorageBackend {
	case "s3":
		endpoint := cfg.StorageEndpoint
		if endpoint != "" {
			endpoint = withScheme(endpoint, cfg.StorageUseSSL)
		}
		return storage.NewS3(ctx, storage.S3Config{
			Region:     cfg.StorageRegion,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			Endpoint:   endpoint,
			PublicBase: cfg.StoragePublicBase,
			Timeout:    cfg.StorageTimeout,
		})
	case "minio":
		mc := storage.MinioConfig{
			Endpoint:   cfg.StorageEndpoint,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			Region:     cfg.StorageRegion,
			UseSSL:     cfg.StorageUseSSL,
			PublicBase: cfg.StoragePublicBase,
			Timeout:    cfg.StorageTimeout,
		}
		if cfg.StorageEnsure {
			mc.EnsureBuckets = []string{cfg.StorageBucket}
		}
		return storage.NewMinio(ctx, mc)
	case "memory":
		base := cfg.StoragePublicBase
		if base == "" {
			base = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.StorageRegion)
		}
		return storage.NewMemory(base, cfg.StorageBucket), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// hostPattern returns the configured URL host pattern. Without one, AWS
// hosts are matched for the s3 backend and the exact issued host otherwise.
func hostPattern(cfg *config.Config, store storage.Store) string {
	if cfg.StorageURLHost != "" {
		return cfg.StorageURLHost
	}
	if cfg.StorageBackend == "s3" && cfg.StoragePublicBase == "" {
		return media.DefaultHostPattern
	}
	u, err := url.Parse(store.URL(cfg.StorageBucket, "probe"))
	if err != nil || u.Host == "" {
		return media.DefaultHostPattern
	}
	return "^" + regexp.QuoteMeta(strings.ToLower(u.Host)) + "$"
}

func withScheme(endpoint string, useSSL bool) string {
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}
