package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/vatlidak/proctree-go/internal/collector"
	"github.com/vatlidak/proctree-go/internal/core/domain"
	"github.com/vatlidak/proctree-go/internal/core/service"
	"github.com/vatlidak/proctree-go/internal/infra/buildinfo"
	"github.com/vatlidak/proctree-go/internal/infra/confloader"
	"github.com/vatlidak/proctree-go/internal/infra/shutdown"
	"github.com/vatlidak/proctree-go/internal/registry"
	"github.com/vatlidak/proctree-go/internal/server/config"
	"github.com/vatlidak/proctree-go/internal/server/httpserver"
	"github.com/vatlidak/proctree-go/internal/storage"
	"github.com/vatlidak/proctree-go/internal/telemetry/logger"
	"github.com/vatlidak/proctree-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("proctree-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, slogLogger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting proctree-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)

	// Metrics first so every later component can register.
	metrics := metric.New()

	store, err := initStore(cfg, slogLogger, metrics)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	archive := storage.NewArchive(store, cfg.Storage.ArchiveRetention)
	keyStore := storage.NewKeyStore(store)

	reg := registry.New()
	metrics.RegisterLiveTasks(reg.Count)

	snapshotSvc := service.NewSnapshotService(reg,
		service.WithSlack(cfg.Snapshot.Slack),
		service.WithMaxAlloc(cfg.Snapshot.MaxAlloc))

	authSvc := service.NewAuthService(keyStore,
		service.WithKeyCacheTTL(cfg.Auth.CacheTTL))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bootstrapAdminKey(ctx, cfg, keyStore, log); err != nil {
		return fmt.Errorf("bootstrap admin key: %w", err)
	}

	// Host process mirror, when enabled.
	if cfg.Collector.Enabled {
		source, err := collector.NewProcfsSource(cfg.Collector.ProcMount)
		if err != nil {
			return fmt.Errorf("init collector: %w", err)
		}
		coll := collector.New(reg, source, slogLogger,
			collector.WithInterval(cfg.Collector.Interval),
			collector.WithMetrics(metrics))
		go func() {
			if err := coll.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("collector stopped", "error", err)
			}
		}()
		log.Info("collector started",
			"proc_mount", cfg.Collector.ProcMount,
			"interval", cfg.Collector.Interval)
	}

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		SnapshotService: snapshotSvc,
		AuthService:     authSvc,
		Registry:        reg,
		Archive:         archive,
		Metrics:         metrics,
		Logger:          slogLogger,
		AuthEnabled:     cfg.Auth.Enabled,
		DefaultCapacity: cfg.Snapshot.DefaultCapacity,
		PerIPRPS:        cfg.Server.HTTP.PerIPRPS,
		PerIPBurst:      cfg.Server.HTTP.PerIPBurst,
		EnableAudit:     true,
	})

	httpServer := httpserver.New(cfg.Server.HTTP.Addr, router)

	// Reload the log level when the config file changes.
	watcher, err := watchConfig(*configFile, slogLogger)
	if err != nil {
		log.Warn("config watch disabled", "error", err)
	}

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout)

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})
	shutdownHandler.OnShutdown(func(shutdownCtx context.Context) error {
		cancel()
		if watcher != nil {
			watcher.Stop()
		}
		log.Info("closing storage")
		return store.Close()
	})

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr)

		var err error
		if cfg.Server.HTTP.TLSCertFile != "" && cfg.Server.HTTP.TLSKeyFile != "" {
			err = httpServer.ListenAndServeTLS(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from file and environment.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithEnvPrefix("PROCTREE_")}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger initializes the structured logger. Returns both the
// logger interface and a slog.Logger for components that need it.
func initLogger(cfg *config.ServerConfig) (logger.Logger, *slog.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, nil, err
	}

	logger.SetDefault(log)
	return log, logger.Slog(log), nil
}

// initStore opens the archive database and hooks it into the metrics
// registry.
func initStore(cfg *config.ServerConfig, log *slog.Logger, m *metric.Metrics) (*storage.Store, error) {
	storeCfg := storage.DefaultConfig(cfg.Storage.DataDir)
	storeCfg.InMemory = cfg.Storage.InMemory
	storeCfg.SyncWrites = cfg.Storage.SyncWrites
	if cfg.Storage.GCInterval > 0 {
		storeCfg.GCInterval = cfg.Storage.GCInterval
	}

	store, err := storage.Open(storeCfg, log)
	if err != nil {
		return nil, err
	}
	return store.RegisterMetrics(m.Registry()), nil
}

// bootstrapAdminKey seeds an admin key from configuration when the key
// store is empty, so a fresh deployment can reach the admin surface.
func bootstrapAdminKey(ctx context.Context, cfg *config.ServerConfig, keyStore *storage.KeyStore, log logger.Logger) error {
	if cfg.Auth.BootstrapKeyID == "" || cfg.Auth.BootstrapSecret == "" {
		return nil
	}

	existing, err := keyStore.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	hash, err := domain.HashSecret(cfg.Auth.BootstrapSecret)
	if err != nil {
		return err
	}

	key := &domain.APIKey{
		KeyID:      cfg.Auth.BootstrapKeyID,
		Name:       "bootstrap-admin",
		SecretHash: hash,
		Role:       domain.RoleAdmin,
		Enabled:    true,
		RateLimit:  domain.DefaultKeyRateLimit,
		CreatedAt:  time.Now().UnixMilli(),
	}
	if err := key.Validate(); err != nil {
		return err
	}
	if err := keyStore.Create(ctx, key); err != nil {
		return err
	}

	log.Info("bootstrap admin key created", "key_id", key.KeyID)
	return nil
}

// watchConfig reloads the log level when the config file changes. A
// missing config file just disables watching.
func watchConfig(configFile string, log *slog.Logger) (*confloader.Watcher, error) {
	if configFile == "" {
		return nil, nil
	}

	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(configFile); err != nil {
		watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(path string) {
		cfg, err := loadConfig(path)
		if err != nil {
			log.Warn("config reload failed", "path", path, "error", err)
			return
		}
		logger.SetLevel(cfg.Log.Level)
		log.Info("log level reloaded", "level", cfg.Log.Level)
	})
	watcher.StartAsync()

	return watcher, nil
}
