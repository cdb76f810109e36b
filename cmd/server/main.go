package main

import (
	"context"
	"errors"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/subhajitlucky/pradhanfresh-sub000/internal/config"
	"github.com/subhajitlucky/pradhanfresh-sub000/internal/controllers/http"
	mmysql "github.com/subhajitlucky/pradhanfresh-sub000/internal/infra/mysql"
	"github.com/subhajitlucky/pradhanfresh-sub000/internal/infra/rabbitmq"
	mysqlrepo "github.com/subhajitlucky/pradhanfresh-sub000/internal/repository/mysql"
	"github.com/subhajitlucky/pradhanfresh-sub000/internal/services"
)

const defaultReapInterval = time.Hour

func main() {
	config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	db, err := mmysql.NewMySQLFromEnv()
	if err != nil {
		slog.Error("db: connect", "err", err)
		os.Exit(1)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	txm := mysqlrepo.NewTxManager(db)
	productRepo := mysqlrepo.NewProductRepository(db)
	cartRepo := mysqlrepo.NewCartRepository(db)
	orderRepo := mysqlrepo.NewOrderRepository(db)

	publisher, err := rabbitmq.NewPublisher(os.Getenv("RABBITMQ_URL"), "order.exchange")
	if err != nil {
		slog.Error("rabbitmq: connect", "err", err)
		os.Exit(1)
	}
	defer publisher.Close()

	ledger := services.NewStockLedger(productRepo)
	cartService := services.NewCartService(cartRepo, productRepo, ledger, txm)
	orderService := services.NewOrderService(orderRepo, cartRepo, ledger, txm, publisher)

	redisClient := redis.NewClient(&redis.Options{
		Addr:         os.Getenv("REDIS_HOST") + ":6379",
		DB:           0,
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	handler := http.NewHandler(cartService, orderService, redisClient)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	handler.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &nethttp.Server{Addr: ":" + port, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting storefront order core", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Cart expiry reaping runs off the request path on a fixed interval.
	g.Go(func() error {
		interval := defaultReapInterval
		if raw := os.Getenv("CART_REAP_INTERVAL"); raw != "" {
			if d, err := time.ParseDuration(raw); err == nil {
				interval = d
			}
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := cartService.ReapExpired(ctx)
				if err != nil {
					slog.Error("cart reaper", "err", err)
					continue
				}
				if n > 0 {
					slog.Info("reaped expired carts", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}
