package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"interview-insights-go/internal/analysis"
	"interview-insights-go/internal/api"
	"interview-insights-go/internal/audio"
	"interview-insights-go/internal/cache"
	"interview-insights-go/internal/chunker"
	"interview-insights-go/internal/config"
	"interview-insights-go/internal/logger"
	"interview-insights-go/internal/normalizer"
	"interview-insights-go/internal/pipeline"
	"interview-insights-go/internal/rules"
	"interview-insights-go/internal/transcription"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "interview-insights-go").Info("starting service")

	cfg := config.Load()

	tables := rules.Defaults()
	if cfg.RulesWorkbook != "" {
		log.WithField("workbook", cfg.RulesWorkbook).Info("loading rules workbook")
		loaded, err := rules.LoadWorkbook(cfg.RulesWorkbook)
		if err != nil {
			log.WithError(err).Warn("workbook load failed, using defaults")
		} else {
			tables = loaded
		}
	}

	store := cache.NewStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	client := transcription.NewGatewayClient(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.GatewayModel)
	orch := pipeline.NewOrchestrator(
		audio.NewPreprocessor(),
		audio.NewSplitter(),
		transcription.NewAdapter(client, "en", true),
		normalizer.New(tables),
		chunker.New(chunker.NewTokenizer(), tables),
		analysis.New(tables),
		store,
		pipeline.DefaultRetryPolicy(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := pipeline.NewPool(orch, cfg.QueueSize)
	pool.Start(ctx, cfg.Workers)

	server := api.NewServer(pool, store, cfg.MaxUploadBytes)
	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	pool.Stop()
	log.Info("shutdown complete")
}
