package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/tavern-engine/internal/config"
	"github.com/jwebster45206/tavern-engine/internal/handlers"
	"github.com/jwebster45206/tavern-engine/internal/logger"
	"github.com/jwebster45206/tavern-engine/internal/middleware"
	"github.com/jwebster45206/tavern-engine/internal/storage"
	"github.com/jwebster45206/tavern-engine/internal/worker"
	"github.com/jwebster45206/tavern-engine/pkg/engine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Tavern Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir)

	var store storage.Storage
	if cfg.RedisURL != "" {
		rs := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
		storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer storageCancel()

		if err := rs.WaitForConnection(storageCtx); err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
		store = rs
		log.Info("Storage connection established successfully")
	} else {
		log.Warn("No REDIS_URL configured; running without persistence")
	}

	engCfg := engine.Config{
		Seed:   cfg.RandomSeed,
		Logger: log,
	}
	if store != nil {
		engCfg.Storage = store
	}
	eng := engine.New(engCfg)

	loadCharacters(eng, cfg.DataDir, log)
	if store != nil {
		restoreMemory(eng, store, log)
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, eng, log)
	mux.Handle("/health", healthHandler)

	sessionHandler := handlers.NewSessionHandler(eng, log)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	characterHandler := handlers.NewCharacterHandler(eng, log)
	mux.Handle("/v1/characters", characterHandler)
	mux.Handle("/v1/characters/", characterHandler)

	sweeper := worker.New(eng, time.Duration(cfg.EventSweepSeconds)*time.Second, log, "")
	go func() {
		if err := sweeper.Start(); err != nil {
			log.Error("Event sweeper failed", "error", err)
		}
	}()

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	sweeper.Stop()

	if store != nil {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}

// loadCharacters registers every character definition found under the
// data dir. A missing dir is not fatal; the API can run empty and
// characters can be registered later.
func loadCharacters(eng *engine.Engine, dataDir string, log *slog.Logger) {
	ids, err := storage.ListCharacterFiles(dataDir)
	if err != nil {
		log.Warn("No character definitions loaded", "dir", dataDir, "error", err)
		return
	}

	loaded := 0
	for _, id := range ids {
		c, err := storage.LoadCharacterFile(dataDir, id)
		if err != nil {
			log.Warn("Skipping unreadable character file", "id", id, "error", err)
			continue
		}
		if err := eng.RegisterCharacter(c); err != nil {
			log.Warn("Failed to register character", "id", id, "error", err)
			continue
		}
		loaded++
	}
	log.Info("Characters loaded", "count", loaded, "dir", dataDir)
}

// restoreMemory rehydrates persisted memory records so characters
// remember returning players across restarts.
func restoreMemory(eng *engine.Engine, store storage.Storage, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	restored := 0
	for _, id := range eng.Characters() {
		records, err := store.ListMemoryRecords(ctx, id)
		if err != nil {
			log.Warn("Failed to list memory records", "character", id, "error", err)
			continue
		}
		for _, rec := range records {
			eng.RestoreMemory(rec)
			restored++
		}
	}
	if restored > 0 {
		log.Info("Memory records restored", "count", restored)
	}
}
