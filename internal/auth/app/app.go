// Package app assembles the process: configuration, storage, services, the
// HTTP server and the background sweep, with a signal-driven shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	authhttp "github.com/moimlab/moim/internal/auth/http"
	"github.com/moimlab/moim/internal/auth/provider"
	"github.com/moimlab/moim/internal/auth/service"
	"github.com/moimlab/moim/internal/auth/store"
	"github.com/moimlab/moim/internal/auth/store/drivers/sqlite"
	"github.com/moimlab/moim/internal/meeting"
	"github.com/moimlab/moim/internal/metrics"
	"github.com/moimlab/moim/pkg/jwtx"
	"github.com/moimlab/moim/pkg/slogx"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Application owns every long-lived component of the process.
type Application struct {
	cfg Config
	log *slog.Logger

	store       store.Store
	sessions    *service.SessionService
	identity    *service.IdentityService
	approvals   *meeting.ApprovalCoordinator
	housekeeper *service.Housekeeper
	server      *http.Server
}

// New builds the application graph. Nothing starts running yet; Run does
// that.
func New(cfg Config) (*Application, error) {
	log := slogx.New(slogx.Config{
		Service: "moim",
		Version: Version,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	codec, padded := jwtx.NewCodec(cfg.SigningKey, cfg.Issuer, cfg.AccessTokenTTL)
	if padded {
		log.Warn("signing key shorter than 32 bytes was zero-padded; " +
			"generate a full-length key for production")
	}

	st, err := sqlite.NewStore(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.ApplyMigrations(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	collector := metrics.NewCollector()

	tokens := &service.RefreshTokenService{
		Store:         st,
		TTL:           cfg.RefreshTokenTTL,
		MaxPerAccount: cfg.MaxRefreshTokens,
	}
	sessions := &service.SessionService{
		Codec:   codec,
		Tokens:  tokens,
		Store:   st,
		Metrics: collector,
	}
	identity := &service.IdentityService{
		Store:     st,
		Usernames: &service.UsernameAllocator{Store: st},
		Metrics:   collector,
	}

	var adapters []provider.Adapter
	if cfg.Google.Configured() {
		adapters = append(adapters, provider.NewGoogle(cfg.Google))
	}
	if cfg.Naver.Configured() {
		adapters = append(adapters, provider.NewNaver(cfg.Naver))
	}
	if cfg.Kakao.Configured() {
		adapters = append(adapters, provider.NewKakao(cfg.Kakao))
	}
	registry := provider.NewRegistry(adapters...)
	log.Info("identity providers enabled", "providers", registry.Names())

	router := &authhttp.Router{
		Sessions:  sessions,
		Identity:  identity,
		Providers: registry,
		Store:     st,
		Metrics:   collector,
	}

	app := &Application{
		cfg:       cfg,
		log:       log,
		store:     st,
		sessions:  sessions,
		identity:  identity,
		approvals: meeting.NewApprovalCoordinator(collector),
		housekeeper: &service.Housekeeper{
			Tokens:   tokens,
			Metrics:  collector,
			Interval: cfg.SweepInterval,
		},
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router.Handler(log),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	return app, nil
}

// Approvals exposes the auto-approval coordinator for the meeting service.
func (a *Application) Approvals() *meeting.ApprovalCoordinator { return a.approvals }

// Run starts the HTTP server and background workers and blocks until a
// termination signal arrives, then shuts down within the grace period.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = slogx.WithContext(ctx, a.log)
	a.housekeeper.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", "addr", a.server.Addr, "env", a.cfg.Env)
		if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.shutdown()
		return err
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Error("http server shutdown incomplete", "err", err)
	}
	a.shutdown()
	a.log.Info("shutdown complete")
	return nil
}

func (a *Application) shutdown() {
	a.housekeeper.Stop()
	if err := a.store.Close(); err != nil {
		a.log.Error("store close failed", "err", err)
	}
}
