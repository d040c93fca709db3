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
	"auction-sync/internal/app"
	"auction-sync/internal/config"
	"auction-sync/internal/domain"
	"auction-sync/internal/infrastructure/cache"
	"auction-sync/internal/infrastructure/leader"
	"auction-sync/internal/infrastructure/mysql"
	"auction-sync/internal/infrastructure/redis"
	"auction-sync/internal/services"
	"auction-sync/pkg/logger"
	"auction-sync/pkg/utils"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Fatal("Failed to load config", "error", err)
	}

	log := logger.NewWithLevel(cfg.Log.Level)
	instanceID := app.InstanceID(cfg, utils.GenerateID)
	log = log.With("service", "sync-service", "instance_id", instanceID)
	log.Info("Starting sync service", "config", cfg.GetConfigString())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Redis backs the default transport, the shared cache and leader election
	var rdb *redisClient.Client
	if cfg.Transport.Kind == config.TransportRedis || cfg.Cache.Backend == config.CacheRedis {
		rdb, err = app.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
		defer rdb.Close()
		log.Info("Connected to Redis", "address", cfg.Redis.Address)
	}

	db, err := utils.OpenMySQL(ctx, cfg.MySQL.DSN, utils.PoolOptions{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatal("Failed to connect to MySQL", "error", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}()
	log.Info("Connected to MySQL")

	// Initialize repositories
	listingRepo := mysql.NewMySQLListingRepository(db)
	bidRepo := mysql.NewMySQLBidRepository(db)
	offerRepo := mysql.NewMySQLOfferRepository(db)

	// Query cache
	var (
		store          domain.QueryStore
		leaderElection *leader.RedisLeaderElection
	)
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		store = redis.NewRedisQueryCache(rdb, cfg.Cache.KeyPrefix, cfg.Cache.EntryTTL)
		leaderElection = leader.NewRedisLeaderElection(rdb, cfg.Leader.Key, cfg.Leader.TTL)
	default:
		store = cache.NewQueryCache(cfg.Cache.EntryTTL)
	}

	queryService := services.NewQueryService(store, cfg.Cache.FetchTimeout, log)
	services.RegisterRepositoryFetchers(queryService, listingRepo, bidRepo, offerRepo)

	// A process-local cache sweeps itself; a shared one is swept by the leader
	var sweepLeader domain.LeaderElection
	if leaderElection != nil {
		sweepLeader = leaderElection
	}
	refresher := services.NewRefresher(queryService, sweepLeader, instanceID,
		cfg.Cache.SweepSchedule, cfg.Cache.ObserverIdleTTL, log)

	// Event routing and live feed
	router := services.NewEventRouter(queryService, log)
	feed := services.NewLiveFeed(cfg.Feed.MaxSize, log)
	activeBids := services.NewActiveBidService(bidRepo, listingRepo, log)

	subscriber, err := app.NewSubscriber(cfg, rdb, log)
	if err != nil {
		log.Fatal("Failed to create subscriber", "error", err)
	}
	publisher, err := app.NewPublisher(cfg, rdb)
	if err != nil {
		log.Fatal("Failed to create publisher", "error", err)
	}

	notificationChannel, liveBidChannel := app.Channels(cfg)
	eventListener := services.NewEventListener(router, feed, notificationChannel, liveBidChannel, log)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","method":"${method}","uri":"${uri}","status":${status},"error":"${error}","latency_human":"${latency_human}"}` + "\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
		MaxAge: 86400,
	}))

	syncHandler := handlers.NewSyncHandler(feed, activeBids, queryService, publisher, log)
	syncHandler.Register(e.Group("/api/v1"))

	e.GET("/health", func(c echo.Context) error {
		status := http.StatusOK
		if !subscriber.Connected() {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, map[string]interface{}{
			"service":          "sync-service",
			"instance_id":      instanceID,
			"transport":        cfg.Transport.Kind,
			"connected":        subscriber.Connected(),
			"feed_size":        feed.Len(),
			"observed_queries": queryService.ObservedCount(),
			"timestamp":        time.Now().Format(time.RFC3339),
		})
	})

	// Start background services
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	if err := eventListener.Start(runCtx, subscriber); err != nil {
		log.Fatal("Failed to start event listener", "error", err)
	}
	if err := refresher.Start(runCtx); err != nil {
		log.Fatal("Failed to start refresher", "error", err)
	}

	if leaderElection != nil {
		go leaderElection.Campaign(runCtx, instanceID, 10*time.Second, func() {
			log.Info("Became cache sweep leader")
		})
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("Starting HTTP server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal or a dead listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-eventListener.Done():
		log.Error("Event listener exited", "error", eventListener.Err())
	}

	log.Info("Shutting down sync service...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := eventListener.Stop(); err != nil {
		log.Error("Failed to stop event listener", "error", err)
	}
	if err := refresher.Stop(); err != nil {
		log.Error("Failed to stop refresher", "error", err)
	}
	stopRun()
	queryService.Wait()

	if leaderElection != nil {
		if err := leaderElection.ReleaseLeadership(shutdownCtx, instanceID); err != nil {
			log.Error("Failed to release leadership", "error", err)
		}
	}
	if closer, ok := publisher.(interface{ Close() error }); ok {
		closer.Close()
	}

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Sync service stopped")
}
