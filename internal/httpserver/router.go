package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"storefront-api/internal/apperr"
	"storefront-api/internal/logger"
	"storefront-api/internal/metrics"
)

// Deps holds everything the router needs. Gatherer, DB and UploadsDir are optional.
type Deps struct {
	Users      UserService
	Categories CategoryService
	Products   ProductService
	Carts      CartService
	Tokens     tokenParser

	DB             pinger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	UploadsDir     string
	CORSOrigins    []string
	CookieSecure   bool
	MaxUploadBytes int64
}

func (d Deps) validate() error {
	if d.Users == nil || d.Categories == nil || d.Products == nil || d.Carts == nil {
		return errors.New("httpserver: all services are required")
	}
	if d.Tokens == nil {
		return errors.New("httpserver: token parser is required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(log *logger.Logger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	useJSONFieldNames()

	router := gin.New()
	router.Use(requestID(log), accessLog(log, deps.Metrics), recovery(log), cors.New(corsConfig(deps.CORSOrigins)))
	router.NoRoute(func(c *gin.Context) {
		writeError(c, log, apperr.NotFound("route not found"))
	})

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.DB))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	if deps.UploadsDir != "" {
		router.Static("/uploads", deps.UploadsDir)
	}

	authn := authenticate(deps.Tokens, log)
	admin := requireAdmin(log)

	users := &userHandler{svc: deps.Users, log: log, cookieSecure: deps.CookieSecure}
	categories := &categoryHandler{svc: deps.Categories, log: log}
	products := &productHandler{svc: deps.Products, log: log, maxUploadBytes: deps.MaxUploadBytes}
	carts := &cartHandler{svc: deps.Carts, log: log}

	api := router.Group("/api")

	u := api.Group("/users")
	u.POST("", users.create)
	u.POST("/login", users.login)
	u.POST("/token/refresh", users.refresh)
	u.POST("/logout", users.logout)
	u.GET("", authn, admin, users.list)
	u.GET("/me", authn, users.me)
	u.PATCH("/me", authn, users.updateMe)
	u.PUT("/me/password", authn, users.changePassword)
	u.GET("/:id", authn, admin, users.get)
	u.DELETE("/:id", authn, admin, users.delete)

	cg := api.Group("/categories")
	cg.GET("", categories.list)
	cg.GET("/:id", categories.get)
	cg.POST("", authn, admin, categories.create)
	cg.PUT("/:id", authn, admin, categories.update)
	cg.DELETE("/:id", authn, admin, categories.delete)

	pg := api.Group("/products")
	pg.GET("", products.list)
	pg.GET("/:id", products.get)
	pg.POST("", authn, admin, products.create)
	pg.PUT("/:id", authn, admin, products.update)
	pg.DELETE("/:id", authn, admin, products.delete)

	ct := api.Group("/carts", authn)
	ct.POST("", carts.create)
	ct.GET("", carts.list)
	ct.GET("/:id", carts.get)
	ct.PUT("/:id/items", carts.addItems)
	ct.DELETE("/:id/items/:productId", carts.removeItem)
	ct.DELETE("/:id/items", carts.clear)
	ct.DELETE("/:id", carts.delete)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{"Authorization", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
