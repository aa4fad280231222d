package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arden/townsim/internal/api"
	"github.com/arden/townsim/internal/config"
	"github.com/arden/townsim/internal/db"
	"github.com/arden/townsim/internal/llm"
	"github.com/arden/townsim/internal/townsim"
	"github.com/arden/townsim/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	devMode := flag.Bool("dev", false, "enable development mode with mock LLM")
	noDB := flag.Bool("no-db", false, "run without database (in-memory only)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "path", *configPath, "err", err)
		cfg = config.Default()
	}

	if *devMode {
		cfg.Dev.Enabled = true
		cfg.Dev.MockLLM = true
		logger.Info("development mode enabled with mock LLM")
	}

	var postgres *db.Postgres
	var redis *db.Redis

	if *noDB || cfg.Dev.Enabled {
		logger.Info("running without database (in-memory mode)")
	} else {
		postgres, err = db.NewPostgres(cfg.Database.PostgresURL)
		if err != nil {
			logger.Warn("failed to connect to postgres", "err", err)
		}

		redis, err = db.NewRedis(cfg.Database.RedisURL)
		if err != nil {
			logger.Warn("failed to connect to redis", "err", err)
		}
	}
	defer postgres.Close()
	defer redis.Close()

	if postgres.IsConnected() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := postgres.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure schema", "err", err)
		}
		cancel()
	}

	store := db.NewStore(postgres, redis, logger)

	var reasoning townsim.ReasoningClient
	if cfg.Dev.MockLLM {
		reasoning = llm.NewMockClient()
	} else {
		reasoning = llm.NewGeminiClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout, cfg.LLM.MaxTokens)
	}

	hub := ws.NewHub()
	go hub.Run()

	app := api.NewApp(store, reasoning, logger)
	app.WireHub(hub)

	ctx, cancelSweeps := context.WithCancel(context.Background())
	app.Supervisor.RunBackgroundSweeps(ctx)

	worldID := app.CreateWorld(cfg.World.MapWidth, cfg.World.MapHeight, cfg.World.Seed)
	app.Supervisor.Start(ctx, worldID, time.Now())
	logger.Info("seeded default world", "worldId", worldID.String())

	router := api.NewRouter(app, hub, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	cancelSweeps()
	for _, h := range app.Supervisor.All() {
		app.Supervisor.Stop(h.World.ID)
	}
	app.Supervisor.StopBackgroundSweeps()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}
