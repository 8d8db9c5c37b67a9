package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/graphmux/graphmux/internal/audit"
	"github.com/graphmux/graphmux/internal/auth"
	"github.com/graphmux/graphmux/internal/cachestore"
	"github.com/graphmux/graphmux/internal/catalog"
	"github.com/graphmux/graphmux/internal/config"
	"github.com/graphmux/graphmux/internal/gateway"
	"github.com/graphmux/graphmux/internal/middleware"
	"github.com/graphmux/graphmux/internal/persisted"
	"github.com/graphmux/graphmux/internal/registry"
	"github.com/graphmux/graphmux/internal/settings"
)

// ServeOptions contains options for the serve command.
type ServeOptions struct {
	Host  string
	Port  int
	Watch bool
}

// pipeline is the fully wired request path: everything Serve needs beyond the
// HTTP server itself.
type pipeline struct {
	cfg      *config.Config
	registry *registry.Registry
	view     *gateway.View
	redis    *redis.Client
	logger   zerolog.Logger
}

func (p *pipeline) close() {
	p.view.Close()
	if p.redis != nil {
		_ = p.redis.Close()
	}
}

// buildPipeline wires config through catalog, settings, registry, persisted
// queries, and the gateway view. Shared by serve, validate, and schemas.
func buildPipeline(cfg *config.Config, logger zerolog.Logger) (*pipeline, error) {
	cat := catalog.New()
	for _, dir := range cfg.Apps {
		if _, err := cat.LoadAppDir(dir); err != nil {
			return nil, fmt.Errorf("failed to load app directory %q: %w", dir, err)
		}
	}

	res := settings.NewResolver(cfg.Debug, cfg.Environment, cfg.GlobalSettings, logger)
	reg := registry.New(cat, res, logger)
	reg.Discover(cfg)

	var redisClient *redis.Client
	var cache cachestore.Cache
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = cachestore.NewRedisCacheWithClient(redisClient, cachestore.Config{
			DefaultTTL: cfg.PersistedQuery.TTL,
		})
	} else {
		cache = cachestore.NewMemoryCache(cachestore.Config{
			DefaultTTL: cfg.PersistedQuery.TTL,
		})
	}

	pq, err := persisted.NewResolver(cfg.PersistedQuery, cache, logger)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, fmt.Errorf("failed to build persisted query resolver: %w", err)
	}

	view, err := gateway.New(gateway.Deps{
		Config:    cfg,
		Registry:  reg,
		Settings:  res,
		Persisted: pq,
		Auth:      auth.NewService(cfg.Auth.Secret, cfg.Auth.TokenTTL),
		Factories: middleware.NewFactories(res, redisClient),
		Plugins:   middleware.NewPluginRegistry(),
		Audit:     audit.NewZerologSink(logger),
		Logger:    logger,
	})
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, fmt.Errorf("failed to build gateway: %w", err)
	}

	return &pipeline{cfg: cfg, registry: reg, view: view, redis: redisClient, logger: logger}, nil
}

func (c *Controller) loadConfig() (*config.Config, error) {
	if c.Flags != nil && c.Flags.Config != "" {
		return config.LoadFromPath(c.Flags.Config)
	}
	return config.LoadOrDefault()
}

// Serve runs the GraphQL gateway until a signal or an unrecoverable server
// error.
func (c *Controller) Serve(ctx context.Context, opts ...ServeOptions) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	host := cfg.Server.Host
	port := cfg.Server.Port
	watch := false
	if len(opts) > 0 {
		if opts[0].Host != "" {
			host = opts[0].Host
		}
		if opts[0].Port > 0 {
			port = opts[0].Port
		}
		watch = opts[0].Watch
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer p.close()

	if watch {
		watcher, err := registry.NewWatcher(p.registry, logger)
		if err != nil {
			return fmt.Errorf("failed to start manifest watcher: %w", err)
		}
		defer watcher.Close()
		go func() {
			if err := watcher.Start(ctx); err != nil {
				logger.Warn().Err(err).Msg("manifest watcher stopped")
			}
		}()
	}

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: p.view.Routes(),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("graphql gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("gateway server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		cancel()
		return err
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down gateway server: %w", err)
	}
	return nil
}
