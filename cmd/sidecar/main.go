// The sidecar runs next to a workshop container, proxying TCP traffic to
// it and reporting idle time for garbage collection.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nbhdai/workshopctl/internal/sidecar"
)

func main() {
	cfg, err := sidecar.ConfigFromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := sidecar.NewTracker()

	mux := http.NewServeMux()
	mux.Handle("GET /health", sidecar.HealthHandler(tracker))
	httpServer := &http.Server{Addr: cfg.HTTPListen, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()
	go func() {
		log.Printf("Health server listening on %s", cfg.HTTPListen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Health server failed: %v", err)
		}
	}()

	proxy := sidecar.NewProxy(cfg, tracker)
	if err := proxy.ListenAndServe(ctx); err != nil {
		log.Fatalf("Proxy failed: %v", err)
	}
}
