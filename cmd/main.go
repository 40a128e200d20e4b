package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	grpcctx "github.com/latoalla/roster-server/internal/api/grpc/context"
	"github.com/latoalla/roster-server/internal/api/grpc/handler"
	"github.com/latoalla/roster-server/internal/api/grpc/router"
	grpcServer "github.com/latoalla/roster-server/internal/api/grpc/server"
	"github.com/latoalla/roster-server/internal/config"
	"github.com/latoalla/roster-server/internal/logger"
	"github.com/latoalla/roster-server/internal/metrics"
	"github.com/latoalla/roster-server/internal/model"
	"github.com/latoalla/roster-server/internal/repository/memory"
	"github.com/latoalla/roster-server/internal/repository/postgres"
	"github.com/latoalla/roster-server/internal/roster"
	"github.com/latoalla/roster-server/internal/server"
	"github.com/latoalla/roster-server/internal/service"
	storage "github.com/latoalla/roster-server/internal/storage/minio"
	"github.com/latoalla/roster-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

type stores struct {
	signups  model.SignupStore
	profiles model.ProfileStore
	feed     model.ChangeFeed
	close    func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer st.close()

	m := metrics.New()

	mirror := roster.NewMirror(st.feed, roster.MirrorConfig{
		RetryBase: cfg.Mirror.RetryBase,
		RetryMax:  cfg.Mirror.RetryMax,
	}, logger, roster.WithObserver(m))
	if err := mirror.Start(ctx); err != nil {
		logger.Fatal("failed to start roster mirror", "error", err)
	}
	defer mirror.Stop()

	view := roster.NewView(mirror, m)
	profiles := service.NewCachedProfiles(st.profiles, cfg.Profiles.CacheSize, cfg.Profiles.CacheTTL)
	signupService := service.NewSignup(st.signups, service.NewGuard(st.signups, logger), profiles, m, logger)

	editors := service.NewEditors(st.signups, mirror, logger)
	notify, stopNotify := mirror.Notify()
	defer stopNotify()
	go editors.Run(ctx, notify)

	var exports handler.ExportService
	if cfg.Storage.Enabled {
		objects, err := storage.Connect(ctx, storage.Options{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Fatal("failed to initialize storage client", "error", err)
		}
		exports = service.NewExport(view, objects, logger)
	}

	ctxMgr := grpcctx.NewManager()
	signups := handler.NewSignups(signupService, editors, view, mirror, exports, ctxMgr, logger)
	r := router.New(signups, token.NewJWT(cfg.JWT.Secret), ctxMgr, m, logger)
	grpcSrv := grpcServer.NewGRPCServer(r.Register(), fmt.Sprintf(":%s", cfg.GRPC.Port))
	metricsSrv := metrics.NewHTTPServer(m, cfg.Metrics.Addr)

	go serveWhenSynced(ctx, mirror, r, logger)

	metricsTLS := cfg.GRPC.TLS()
	metricsTLS.Enabled = cfg.Metrics.EnableHTTPS

	servers := []struct {
		server model.Server
		layer  model.SecurityLayer
	}{
		{grpcSrv, server.NewSecurityLayer(cfg.GRPC.TLS(), server.ProtoHTTP2)},
		{metricsSrv, server.NewSecurityLayer(metricsTLS, server.ProtoHTTP2, server.ProtoHTTP1)},
	}

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s model.Server, sl model.SecurityLayer) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
			}
		}(s.server, s.layer)
	}

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	r.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.server.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.server.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func openStores(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory store, signups are lost on restart")
		store := memory.New()
		return &stores{signups: store, profiles: store.Profiles(), feed: store, close: func() {}}, nil
	default:
		db, err := postgres.NewConection(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		signupRepo := postgres.NewSignupRepository(db)
		return &stores{
			signups:  signupRepo,
			profiles: postgres.NewProfileRepository(db),
			feed:     postgres.NewSignupFeed(db.Pool, signupRepo, cfg.Database.PollInterval, logger),
			close:    func() { _ = db.Close() },
		}, nil
	}
}

// serveWhenSynced reports SERVING once the mirror has its first snapshot.
func serveWhenSynced(ctx context.Context, mirror *roster.Mirror, r *router.Router, logger *logger.Logger) {
	changes, stop := mirror.Notify()
	defer stop()

	for !mirror.Status().Synced {
		select {
		case <-ctx.Done():
			return
		case <-changes:
		}
	}

	r.SetServing(true)
	logger.Info("roster mirror synced, serving",
		"version", mirror.Snapshot().Version(),
		"records", mirror.Snapshot().Len())
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
