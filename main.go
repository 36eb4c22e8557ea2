package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arena-server/internal/game"
	"arena-server/internal/logger"
	"arena-server/internal/physics"
)

func main() {
	envFile := flag.String("env", ".env", "Path to an optional .env file")
	addr := flag.String("addr", "", "HTTP listen address (overrides ADDR)")
	flag.Parse()

	logger.Init()
	log := logger.Log

	cfg, err := LoadConfig(*envFile)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	tuning, err := game.LoadTuning(cfg.TuningFile)
	if err != nil {
		log.WithError(err).Fatal("load tuning")
	}

	db, err := OpenDB(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	if err := db.ClearGames(); err != nil {
		log.WithError(err).Fatal("reset room directory")
	}

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET_KEY not set, using the secret stored in the database")
	}
	auth := NewAuth(db, cfg.JWTSecret)
	analytics := NewAnalytics(db)

	games := game.NewRegistry(game.RegistryConfig{
		Tuning:    tuning,
		NewWorld:  func() physics.World { return physics.NewChipmunkWorld() },
		Directory: db,
		Events:    analytics,
	})

	hub := NewHub(db, auth, analytics, games)
	go hub.Run()

	mux := SetupRoutes(hub, cfg)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		log.WithField("addr", cfg.Addr).Info("server starting")
		if cfg.ClientDir != "" {
			log.WithField("dir", cfg.ClientDir).Info("serving client files")
		}
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	<-stop
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
	games.Close()
	hub.Stop()
	analytics.Stop()
}
