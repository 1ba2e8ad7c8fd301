package routes

import (
	"net/http"
	"time"

	"github.com/01moynul/catering-golang/internal/handlers"
	"github.com/01moynul/catering-golang/internal/idempotency"
	"github.com/01moynul/catering-golang/internal/middleware"
	"github.com/01moynul/catering-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Options carries the cross-cutting pieces the router wires around the handlers.
type Options struct {
	ServiceName    string
	Idempotency    idempotency.Store
	IdempotencyTTL time.Duration
	GuestLimiter   *middleware.RateLimiter
	UploadsURL     string
	UploadsDir     string
}

func SetupRouter(h *handlers.Handlers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(opts.ServiceName))
	router.Use(middleware.RequestLogger(h.Logger))

	if opts.UploadsDir != "" {
		router.Static(opts.UploadsURL, opts.UploadsDir)
	}

	idem := idempotency.Middleware(opts.Idempotency,
		idempotency.WithTTL(opts.IdempotencyTTL),
		idempotency.WithLogger(h.Logger),
		idempotency.WithIdentity(middleware.Identity),
	)
	authed := middleware.AuthMiddleware(h.Tokens)

	v1 := router.Group("/v1")
	{
		// --- Public ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})
		v1.POST("/login", h.Login)

		// --- Guest checkout (rate limited per IP) ---
		guest := v1.Group("/")
		guest.Use(opts.GuestLimiter.Limit())
		{
			guest.POST("/orders/guest", idem, h.GuestCheckout)
			guest.POST("/upload", h.UploadFile)
		}

		// --- Logged-in routes ---
		auth := v1.Group("/")
		auth.Use(authed)
		{
			auth.GET("/cashback", h.GetCashback)

			auth.POST("/orders", middleware.RequireRoles(models.RoleBuyer), idem, h.Checkout)
			auth.GET("/orders", h.GetOrders)
			auth.GET("/orders/summary", h.GetOrderSummary)
			auth.GET("/orders/:id", h.GetOrderDetails)
			auth.PUT("/orders/:id/status", h.UpdateOrderStatus)

			auth.PUT("/orders/:id/payment-status", middleware.RequireRoles(models.RoleAdmin), h.UpdatePaymentStatus)
			auth.PUT("/orders/:id/admin-notes", middleware.RequireRoles(models.RoleAdmin), h.UpdateAdminNotes)
			auth.PUT("/orders/:id/pin", middleware.RequireRoles(models.RoleAdmin, models.RoleOperations), h.PinOrder)
		}
	}

	return router
}

// WithCORS lets the dashboards and storefront on allowedOrigins call the API.
func WithCORS(next http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", idempotency.HeaderName, middleware.RequestIDHeader},
		ExposedHeaders:   []string{idempotency.ReplayHeaderName, middleware.RequestIDHeader},
		AllowCredentials: true,
	}).Handler(next)
}
