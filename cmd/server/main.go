package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pingkeep/pingkeep/internal/api"
	"github.com/pingkeep/pingkeep/internal/config"
	"github.com/pingkeep/pingkeep/internal/database"
	"github.com/pingkeep/pingkeep/internal/jobs"
	"github.com/pingkeep/pingkeep/internal/prober"
	"github.com/pingkeep/pingkeep/internal/recorder"
	"github.com/pingkeep/pingkeep/internal/registry"
	"github.com/pingkeep/pingkeep/internal/scheduler"
	"github.com/pingkeep/pingkeep/internal/stats"
	"github.com/pingkeep/pingkeep/internal/storage/postgres"
	"github.com/pingkeep/pingkeep/internal/websocket"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("failed to get database connection", "error", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(cfg.Database); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	store := postgres.New(db)

	hub := websocket.NewHub(cfg.JWTSecret, cfg.CORSOrigins)
	go hub.Run()

	reg := registry.New(store)
	rec := recorder.New(store)
	coordinator := scheduler.New(store, prober.New(cfg.ProbeTimeout), rec, hub)
	calc := stats.New(store)

	jobScheduler := jobs.NewScheduler(coordinator, store)
	jobScheduler.Start()
	defer jobScheduler.Stop()

	router := api.NewRouter(cfg, store, reg, coordinator, calc, hub)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed to start", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
