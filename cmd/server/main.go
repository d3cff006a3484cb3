package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zonehunt/zonehunt-server/internal/auth"
	"github.com/zonehunt/zonehunt-server/internal/config"
	"github.com/zonehunt/zonehunt-server/internal/handler"
	"github.com/zonehunt/zonehunt-server/internal/metrics"
	"github.com/zonehunt/zonehunt-server/internal/sensor"
	"github.com/zonehunt/zonehunt-server/internal/session"
	"github.com/zonehunt/zonehunt-server/internal/store"
	"github.com/zonehunt/zonehunt-server/internal/ws"
	"github.com/zonehunt/zonehunt-server/internal/zone"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	st := openStore(cfg)
	mc := metrics.NewCollector(nil)

	registry := zone.NewRegistry(st)
	if err := registry.Start(context.Background()); err != nil {
		slog.Error("failed to start zone registry", "error", err)
		os.Exit(1)
	}

	tokens := auth.NewTokenService(cfg.AuthSecret, cfg.TokenTTL)

	sessCfg := session.DefaultConfig()
	sessCfg.DebounceWindow = cfg.DebounceWindow
	sessCfg.RecomputeInterval = cfg.RecomputeInterval
	sessCfg.Cooldown = cfg.AlertCooldown
	sessCfg.DismissAfter = cfg.AlertDismissAfter
	sessCfg.Sensor = sensor.Config{
		BaseTimeout:      cfg.SensorBaseTimeout,
		MaxTimeout:       cfg.SensorMaxTimeout,
		BackoffFactor:    cfg.SensorBackoffFactor,
		RestartDelay:     cfg.SensorRestartDelay,
		RetryDelay:       cfg.SensorRetryDelay,
		WatchdogInterval: cfg.SensorWatchdogInterval,
	}

	hub := ws.NewHub()
	router := handler.NewRouter(hub, st, registry, tokens, sessCfg, mc)

	hub.OnMessage = router.HandleMessage
	hub.OnDisconnect = router.HandleDisconnect

	go hub.Run()

	http.HandleFunc("/health", handleHealth)
	http.Handle("/metrics", mc.Handler())
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(hub, router, w, r)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("server starting", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// openStore connects to Postgres when DATABASE_URL is set, otherwise
// runs on the in-memory store.
func openStore(cfg *config.Config) store.Store {
	if cfg.DatabaseURL == "" {
		slog.Info("no database configured, using in-memory store")
		return store.NewMemoryStore()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to database")
	return st
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleWebSocket(hub *ws.Hub, router *handler.Router, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	client := ws.NewClient(uuid.New().String(), hub, conn)
	hub.Register <- client
	router.StartAuthTimeout(client)

	go client.WritePump()
	go client.ReadPump()
}

func setupLogger(cfg *config.Config) {
	var h slog.Handler
	opts := &slog.HandlerOptions{}

	switch cfg.LogLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	switch cfg.LogFormat {
	case "json":
		h = slog.NewJSONHandler(os.Stdout, opts)
	default:
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}
