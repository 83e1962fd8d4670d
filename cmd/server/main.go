package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	httpadapter "secaudit/internal/adapters/http"
	"secaudit/internal/app"
	"secaudit/internal/config"
)

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	srv := httpadapter.New(a.Scanner, a.Reports, app.Version)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	var handler http.Handler = r
	if cfg.H2C {
		handler = h2c.NewHandler(r, &http2.Server{})
	}
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	log.Printf("listening on %s (env=%s store=%s h2c=%t)", cfg.ListenAddr, cfg.Env, cfg.StoreDriver, cfg.H2C)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("shutting down on %s", sig)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Print(fmt.Errorf("server error: %w", err))
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	// Running scans are aborted and recorded as failed.
	cancel()
	if err := a.Close(shutdownCtx); err != nil {
		log.Printf("job shutdown: %v", err)
	}
}
