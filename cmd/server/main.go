package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"riftdraft/internal/catalog"
	"riftdraft/internal/config"
	"riftdraft/internal/httpapi"
	"riftdraft/internal/hub"
	"riftdraft/internal/obslog"
	"riftdraft/internal/session"
	"riftdraft/internal/store"
)

func main() {
	_ = godotenv.Load()
	obslog.InitFromEnv()
	log := obslog.L()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config_load_failed", zap.Error(err))
	}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatal("catalog_load_failed", zap.Error(err))
	}
	log.Info("catalog_loaded", zap.Int("champions", cat.Len()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sink session.SnapshotSink
	if cfg.RedisURL != "" {
		cache, err := store.NewCache(cfg.RedisURL)
		if err != nil {
			log.Fatal("redis_connect_failed", zap.Error(err))
		}
		defer cache.Close()
		sink = cache
		log.Info("snapshot_cache_enabled")
	}

	var archive *store.Archive
	var hubArchive hub.Archive
	if cfg.DatabaseURL != "" {
		archive, err = store.NewArchive(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("postgres_connect_failed", zap.Error(err))
		}
		hubArchive = archive
		log.Info("archive_enabled")
	}

	h := hub.NewHub(ctx, cat, hub.Options{
		BanTimerMs:    cfg.BanTimerMs,
		PickTimerMs:   cfg.PickTimerMs,
		IdleTTL:       cfg.SessionIdleTTL,
		SweepInterval: cfg.SweepInterval,
	}, sink, hubArchive)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.SetupRoutes(h, cat, archive),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting_down")
		h.Inbox() <- hub.ShutdownHub{}
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server_error", zap.Error(err))
	}
	log.Info("stopped")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return catalog.LoadFile(path)
		}
	}
	return catalog.Default()
}
