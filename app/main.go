package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/civicview/comment-service/domain"
	"github.com/civicview/comment-service/internal/config"
	"github.com/civicview/comment-service/internal/events"
	"github.com/civicview/comment-service/internal/repository"
	"github.com/civicview/comment-service/internal/repository/mongodb"
	mysqlRepo "github.com/civicview/comment-service/internal/repository/mysql"
	myRedisCache "github.com/civicview/comment-service/internal/repository/redis"
	"github.com/civicview/comment-service/internal/rest"
	"github.com/civicview/comment-service/internal/rest/middleware"
	"github.com/civicview/comment-service/internal/usecase/comment"
	"github.com/civicview/comment-service/internal/workers"
)

const (
	dbMaxRetry          = 10
	dbRetryInterval     = 2 * time.Second
	mongoConnectTimeout = 10 * time.Second
	shutdownTimeout     = 5 * time.Second
)

func init() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found, reading configuration from the environment")
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Warnf("unknown LOG_LEVEL %q, keeping %s", cfg.LogLevel, logrus.GetLevel())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// prepare store
	commentDBRepo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logrus.Fatalf("failed to prepare comment store: %v", err)
	}
	defer closeStore()

	// prepare cache
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.CacheAddr(),
		Password: cfg.CachePass,
		DB:       cfg.CacheDB,
	})
	defer func() {
		if err := client.Close(); err != nil {
			logrus.Errorf("got error when closing the cache connection: %v", err)
		}
	}()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("failed to open connection to cache: %v", err)
	}

	commentCache := myRedisCache.NewCommentCache(client)
	commentRepo := repository.NewCommentRepository(commentDBRepo, commentCache, cfg.CacheTTL)
	bloomRepo := myRedisCache.NewCommentBloom(client, cfg.BloomKey, cfg.BloomFilterSize, cfg.BloomHashes)

	// prepare events
	var publisher domain.EventPublisher = events.NewNoopPublisher()
	if cfg.AMQPURL != "" {
		rabbit, err := events.Dial(cfg.AMQPURL)
		if err != nil {
			logrus.Fatalf("failed to prepare event publisher: %v", err)
		}
		defer func() {
			if err := rabbit.Close(); err != nil {
				logrus.Errorf("got error when closing the broker connection: %v", err)
			}
		}()
		publisher = rabbit
	}

	// start worker
	var wg sync.WaitGroup
	reconciler := workers.NewCounterReconciler(commentRepo, cfg.ReconcileInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		reconciler.Start(ctx)
	}()

	// build service layer
	commentSvc := comment.NewService(commentRepo, bloomRepo, reconciler, publisher)
	if err := commentSvc.InitBloomFilter(ctx); err != nil {
		logrus.Errorf("failed to init bloom filter, lookups go straight to the store: %v", err)
	}
	warmer := workers.NewBloomWarmer(commentSvc, cfg.BloomRewarm)
	wg.Add(1)
	go func() {
		defer wg.Done()
		warmer.Start(ctx)
	}()

	// prepare gin
	metrics := middleware.NewMetrics()
	route := gin.New()
	route.Use(gin.Logger(), gin.Recovery())
	route.Use(middleware.CORS())
	route.Use(metrics.Instrument())
	route.Use(middleware.SetRequestContextWithTimeout(cfg.ContextTimeout))

	route.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	route.GET("/metrics", metrics.Handler())

	commentHandler := rest.NewCommentHandler(commentSvc)
	commentHandler.Register(route, middleware.AuthMiddleware(cfg.JWTSecret))

	// start server
	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: route,
	}
	go func() {
		logrus.Infof("Server is running on %s", cfg.ServerAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("listen: %s", err)
		}
	}()

	// shutdown
	<-ctx.Done()
	logrus.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Waiting for workers to cleanup...")
	wg.Wait()
	logrus.Info("Server exiting")
}

// openStore selects the comment store named by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (domain.CommentRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
		defer cancel()

		client, err := mongodb.Connect(connectCtx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		repo := mongodb.NewCommentRepository(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(connectCtx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return repo, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logrus.Errorf("got error when closing the mongodb connection: %v", err)
			}
		}, nil

	default:
		db, err := mysqlRepo.Open(cfg.MySQLDSN(), dbMaxRetry, dbRetryInterval)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		if err := mysqlRepo.Migrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		return mysqlRepo.NewCommentRepository(db), func() {
			if err := sqlDB.Close(); err != nil {
				logrus.Errorf("got error when closing the DB connection: %v", err)
			}
		}, nil
	}
}
