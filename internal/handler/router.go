package handler

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"registration/internal/httpmiddleware"
)

// RouterOptions configures the middleware stack around the handlers.
type RouterOptions struct {
	CORSOrigins     []string
	RateLimitPerMin int
	// Production hides internal error text and enables HSTS.
	Production bool
	// AccessLog turns on gin's request logger.
	AccessLog bool
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For is
	// honoured. Empty means the client IP is always the peer address.
	TrustedProxies []string
}

// NewRouter mounts every route on a fresh gin engine.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	h.exposeErrors = !opts.Production

	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		h.logger.Warn("ignoring invalid trusted proxies", slog.Any("error", err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	if opts.AccessLog {
		r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
			SkipPaths: []string{"/api/health", "/metrics"},
		}))
	}
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	r.Use(securityHeaders(opts.Production))
	r.Use(httpmiddleware.Metrics())

	r.GET("/", h.Root)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := httpmiddleware.NewTokenBucket(opts.RateLimitPerMin, opts.RateLimitPerMin)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)

		// multipart: teamName, teamSize, participants, portfolioUrl, paymentScreenshot
		api.POST("/register", limiter.GinMiddleware(), h.Register)

		api.GET("/registrations", h.ListRegistrations)
		api.GET("/registrations/:id", h.GetRegistration)
		api.PATCH("/registrations/:id/status", h.UpdateStatus)
		api.GET("/registrations/:id/payment", h.PaymentScreenshot)
	}

	r.NoRoute(h.NotFound)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
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

func securityHeaders(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if production {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
