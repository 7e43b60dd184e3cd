package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocks-trader/config"
	"stocks-trader/database"
	"stocks-trader/events"
	"stocks-trader/handlers"
	"stocks-trader/logger"
	"stocks-trader/quotes"
	"stocks-trader/services"
	"stocks-trader/session"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	zlog := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
	})
	os.Exit(exitCode(zlog, run(cfg, zlog)))
}

// exitCode logs a fatal run error and flushes the logger, since os.Exit skips
// deferred calls.
func exitCode(log *zap.Logger, err error) int {
	code := 0
	if err != nil {
		log.Error("server stopped", zap.Error(err))
		code = 1
	}
	_ = log.Sync()
	return code
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.OpenDB(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	rdb, err := config.OpenRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	gw, err := newGateway(cfg, rdb, log)
	if err != nil {
		return err
	}

	var store session.Store = session.NewMemoryStore()
	if rdb != nil {
		store = session.NewRedisStore(rdb)
	}
	sessions := session.NewManager(cfg.JWTSecret, cfg.SessionTTL, store)

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info("publishing trades to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	defer pub.Close()

	svc := services.New(db, gw, pub, log, services.Options{StartingCash: cfg.StartingCash})

	gin.SetMode(cfg.GinMode)
	router, err := handlers.NewRouter(handlers.New(svc, sessions, cfg.CookieSecure), log, cfg.LoginRatePerMinute)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("db_driver", cfg.DBDriver), zap.String("quote_provider", cfg.QuoteProvider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newGateway(cfg *config.Config, rdb *redis.Client, log *zap.Logger) (quotes.Gateway, error) {
	var gw quotes.Gateway
	switch cfg.QuoteProvider {
	case "static":
		static, err := quotes.LoadStatic(cfg.QuotesFile)
		if err != nil {
			return nil, err
		}
		gw = static
	default:
		if cfg.AlphaVantageAPIKey == "" {
			log.Warn("ALPHA_VANTAGE_API_KEY is not set, quote lookups will fail")
		}
		gw = quotes.NewAlphaVantage(cfg.AlphaVantageAPIKey, cfg.AlphaVantageURL, cfg.QuoteTimeout)
	}

	if cfg.QuoteCacheTTL > 0 && rdb != nil {
		log.Info("caching quotes in redis", zap.Duration("ttl", cfg.QuoteCacheTTL))
		gw = quotes.NewCached(gw, rdb, cfg.QuoteCacheTTL, log)
	}
	return gw, nil
}
