package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"storefront-api/internal/auth"
	"storefront-api/internal/cache"
	"storefront-api/internal/config"
	"storefront-api/internal/db"
	"storefront-api/internal/httpserver"
	"storefront-api/internal/logger"
	"storefront-api/internal/metrics"
	cartrepo "storefront-api/internal/repository/cart"
	categoryrepo "storefront-api/internal/repository/category"
	productrepo "storefront-api/internal/repository/product"
	tokenrepo "storefront-api/internal/repository/token"
	userrepo "storefront-api/internal/repository/user"
	cartsvc "storefront-api/internal/service/cart"
	categorysvc "storefront-api/internal/service/category"
	productsvc "storefront-api/internal/service/product"
	usersvc "storefront-api/internal/service/user"
	"storefront-api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: "api"}).Fatal(context.Background(), "load config", err)
	}
	log := logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	if !cfg.App.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		log.Fatal(ctx, "connect to db", err)
	}
	defer dbpool.Close()

	var (
		cartCache    cache.CartCache = cache.NopCartCache{}
		loginLimiter *cache.FixedWindowLimiter
	)
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal(ctx, "connect to redis", err)
		}
		defer rdb.Close()
		cartCache = cache.NewRedisCartCache(rdb, cfg.Cart.CacheTTL)
		loginLimiter = cache.NewFixedWindowLimiter(rdb, "ratelimit", cfg.AuthRateLimit.LoginLimit, cfg.AuthRateLimit.LoginWindow)
	} else {
		log.Warn(ctx, "REDIS_ADDR not set; cart cache and login rate limiting disabled")
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal(ctx, "init image storage", err)
	}
	uploadsDir := ""
	if local, ok := store.(*storage.LocalStore); ok {
		uploadsDir = local.Dir()
	}

	issuer, err := auth.NewIssuer(cfg.JWT)
	if err != nil {
		log.Fatal(ctx, "init token issuer", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	userRepo := userrepo.NewPostgres(dbpool, log)
	tokenRepo := tokenrepo.NewPostgres(dbpool)
	categoryRepo := categoryrepo.NewPostgres(dbpool)
	productRepo := productrepo.NewPostgres(dbpool, log)
	cartRepo := cartrepo.NewPostgres(dbpool)

	srv, err := httpserver.New(cfg.App.HTTPAddr, log, httpserver.Deps{
		Users:          usersvc.New(userRepo, tokenRepo, issuer, limiterOrNil(loginLimiter), cfg.JWT.RefreshTTL, log),
		Categories:     categorysvc.New(categoryRepo),
		Products:       productsvc.New(productRepo, categoryRepo, store, cfg.Storage.MaxImageBytes, log),
		Carts:          cartsvc.New(cartRepo, productRepo, cartCache, m, log),
		Tokens:         issuer,
		DB:             dbpool,
		Metrics:        m,
		Gatherer:       registry,
		UploadsDir:     uploadsDir,
		CORSOrigins:    cfg.App.CORSOrigins,
		CookieSecure:   cfg.App.CookieSecure,
		MaxUploadBytes: 10 * cfg.Storage.MaxImageBytes,
	})
	if err != nil {
		log.Fatal(ctx, "init server", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info(log.WithField(ctx, "addr", cfg.App.HTTPAddr), "starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Info(log.WithField(ctx, "signal", sig.String()), "shutting down")
	case err := <-serverErr:
		log.Error(ctx, "server error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "graceful shutdown failed", err)
	} else {
		log.Info(ctx, "server stopped")
	}
}

// limiterOrNil avoids handing the service a non-nil interface that wraps a nil limiter.
func limiterOrNil(l *cache.FixedWindowLimiter) interface {
	Allow(ctx context.Context, scope string) (bool, error)
} {
	if l == nil {
		return nil
	}
	return l
}
