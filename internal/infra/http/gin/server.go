package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"weekrent/internal/infra/config"
	"weekrent/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Cancel(c *gin.Context)
}

type OwnerBookingHTTP interface {
	List(c *gin.Context)
	Confirm(c *gin.Context)
	Complete(c *gin.Context)
}

type AvailabilityHTTP interface {
	Segments(c *gin.Context)
	CheckOutOptions(c *gin.Context)
}

type OwnerPropertyHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Delete(c *gin.Context)
	Reactivate(c *gin.Context)
}

type Handlers struct {
	Booking        BookingHTTP
	OwnerBooking   OwnerBookingHTTP
	Availability   AvailabilityHTTP
	OwnerProperty  OwnerPropertyHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{Addr: cfg.HTTPAddr, Handler: NewRouter(obsMW, health, h), ReadHeaderTimeout: 10 * time.Second}
}

// NewRouter registers every route on a fresh engine.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", "Idempotency-Key", userIDHeader, userRolesHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	auth := h.AuthMiddleware
	if auth == nil {
		auth = HeaderAuthentication{}.Handle
	}
	router.Use(auth)

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Availability != nil {
		api.GET("/properties/:id/segments", h.Availability.Segments)
		api.GET("/properties/:id/checkout-options", h.Availability.CheckOutOptions)
	}
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
	}
	if h.OwnerProperty != nil {
		owner := api.Group("/owner/properties")
		owner.GET("", h.OwnerProperty.List)
		owner.POST("", h.OwnerProperty.Create)
		owner.DELETE("/:id", h.OwnerProperty.Delete)
		owner.POST("/:id/reactivate", h.OwnerProperty.Reactivate)
	}
	if h.OwnerBooking != nil {
		owner := api.Group("/owner/bookings")
		owner.GET("", h.OwnerBooking.List)
		owner.POST("/:id/confirm", h.OwnerBooking.Confirm)
		owner.POST("/:id/complete", h.OwnerBooking.Complete)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
