// Command smileid-fake serves an in-process stand-in for the verification
// service so the SDK and CLI can be exercised without partner credentials.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smileid/internal/fakeservice"
	"smileid/internal/platform/config"
	"smileid/internal/platform/httpserver"
	"smileid/internal/platform/logger"
	"smileid/pkg/domain"
	"smileid/pkg/platform/audit"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	partnerID := cfg.PartnerID
	if partnerID == "" {
		partnerID = "001"
	}
	pid, err := domain.ParsePartnerID(partnerID)
	if err != nil {
		log.Error("invalid partner id", "error", err)
		os.Exit(1)
	}

	svc, err := fakeservice.New(fakeservice.Config{
		PartnerID:     pid,
		CompleteAfter: cfg.Fake.CompleteAfter,
	})
	if err != nil {
		log.Error("failed to start fake service", "error", err)
		os.Exit(1)
	}
	handler := fakeservice.NewHandler(svc,
		fakeservice.WithLogger(log),
		fakeservice.WithPublisher(audit.NewLogPublisher(log)),
	)

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", handler.Router())

	srv := httpserver.New(cfg.Fake.Addr, r)
	log.Info("starting smileid-fake",
		"addr", cfg.Fake.Addr,
		"partner_id", pid,
		"api_key", svc.APIKey(),
		"complete_after", cfg.Fake.CompleteAfter,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
