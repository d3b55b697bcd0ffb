package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/echofeed/backend/internal/auth"
	"github.com/echofeed/backend/internal/config"
	"github.com/echofeed/backend/internal/handler"
	feedservice "github.com/echofeed/backend/internal/service/feed"
	"github.com/echofeed/backend/internal/service/relay"
	userservice "github.com/echofeed/backend/internal/service/user"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Accounts persist across restarts; the feed itself is volatile.
	users, err := userservice.Open(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("failed to open user database: %v", err)
	}
	defer users.Close()

	if err := users.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Fatalf("failed to seed admin account: %v", err)
	}

	// The relay goroutine is the only writer of the feed service.
	feedSvc := feedservice.NewService()
	rl := relay.New(feedSvc, log.Default())
	go rl.Run(ctx)

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	router := handler.NewRouter(rl, users, handler.RouterConfig{
		Issuer:        issuer,
		AdminUsername: cfg.Auth.AdminUsername,
		StaticDir:     cfg.Server.StaticDir,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("echofeed backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
