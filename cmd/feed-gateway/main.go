package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-sync/internal/api/handlers"
	"auction-sync/internal/api/middleware"
	"auction-sync/internal/app"
	"auction-sync/internal/config"
	"auction-sync/internal/infrastructure/websocket"
	"auction-sync/internal/services"
	"auction-sync/pkg/logger"
	"auction-sync/pkg/utils"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Fatal("Failed to load config", "error", err)
	}

	log := logger.NewWithLevel(cfg.Log.Level)
	instanceID := app.InstanceID(cfg, utils.GenerateID)
	log = log.With("service", "feed-gateway", "instance_id", instanceID)

	var rdb *redisClient.Client
	if cfg.Transport.Kind == config.TransportRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err = app.NewRedisClient(ctx, cfg.Redis)
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
		defer rdb.Close()
	}

	subscriber, err := app.NewSubscriber(cfg, rdb, log)
	if err != nil {
		log.Fatal("Failed to create subscriber", "error", err)
	}

	// Initialize connection manager
	connManager := websocket.NewConnectionManager(log)

	// The gateway only follows the live-bid stream
	feed := services.NewLiveFeed(cfg.Feed.MaxSize, log)
	notifier := websocket.NewFeedNotifier(connManager, log)
	unobserve := feed.Observe(notifier.OnBid)
	defer unobserve()

	_, liveBidChannel := app.Channels(cfg)
	eventListener := services.NewEventListener(nil, feed, "", liveBidChannel, log)

	wsHandlers := handlers.NewWebSocketHandlers(feed, connManager, log)

	// Setup routes
	router := mux.NewRouter()
	router.Use(middleware.CORSWithLogging(log))

	router.HandleFunc("/ws/feed", wsHandlers.HandleConnection)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !subscriber.Connected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("DISCONNECTED"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eventListener.Start(ctx, subscriber); err != nil {
		log.Fatal("Failed to start event listener", "error", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port),
		Handler: router,
	}

	go func() {
		log.Info("Starting feed gateway", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-eventListener.Done():
		log.Error("Event listener exited", "error", eventListener.Err())
	}

	log.Info("Shutting down feed gateway...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := eventListener.Stop(); err != nil {
		log.Error("Failed to stop event listener", "error", err)
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	// Hijacked websocket connections are not closed by Shutdown
	if err := connManager.CloseAll(); err != nil {
		log.Error("Failed to close websocket connections", "error", err)
	}

	log.Info("Feed gateway stopped")
}
