package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pliu/personifid/internal/auth"
	"github.com/pliu/personifid/internal/config"
	"github.com/pliu/personifid/internal/email"
	"github.com/pliu/personifid/internal/router"
	"github.com/pliu/personifid/internal/services"
	"github.com/pliu/personifid/internal/store/sqlstore"
	"github.com/pliu/personifid/internal/ws"
	"github.com/pliu/personifid/internal/xlog"
)

const version = "1.0.0"

var (
	configPath = flag.String("config", "", "path to the YAML config file")
	addr       = flag.String("addr", "", "http service address, overrides the config")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// the logger is not configured yet
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	if err := xlog.Init(xlog.Options{Path: cfg.Log.Path, Debug: cfg.Debug, Stdout: cfg.Log.Stdout}); err != nil {
		os.Stderr.WriteString("init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer xlog.Sync()

	// Initialize Database
	store, err := sqlstore.New(cfg.Database.Driver, cfg.Database.DSN,
		sqlstore.WithLogger(xlog.NewGormLogger(cfg.Debug)),
		sqlstore.WithMaxOpenConns(cfg.Database.MaxOpenConns),
	)
	if err != nil {
		xlog.Fatalf("open %s store: %v", cfg.Database.Driver, err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize WebSocket Hub
	hub := ws.NewHub(cfg.CORS.AllowedOrigins)
	go hub.Run(ctx)

	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	mailer := email.NewSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)

	handler := router.New(router.Deps{
		Accounts: services.NewAccountService(store, tokens, mailer, services.AccountConfig{
			BcryptCost: cfg.Auth.BcryptCost,
			PublicURL:  cfg.PublicURL,
		}),
		Identities:     services.NewIdentityService(store, hub),
		Contexts:       services.NewContextService(store, hub),
		Dashboard:      services.NewDashboardService(store),
		Hub:            hub,
		Store:          store,
		Version:        version,
		Driver:         cfg.Database.Driver,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		xlog.Infof("Starting server on %s (storage: %s)", cfg.Addr, cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			xlog.Errorf("listen: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	xlog.Infof("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		xlog.Errorf("shutdown: %v", err)
	}
}
