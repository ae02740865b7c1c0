package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	custommiddleware "tradeledger/internal/middleware"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	Auth              *custommiddleware.Authenticator
	AuthHandler       *AuthHandler
	StatisticsHandler *StatisticsHandler
	TradeHandler      *TradeHandler
	SettingsHandler   *SettingsHandler
	OpsHandler        *OpsHandler
	AlertHandler      *AlertHandler
	Logger            *zap.Logger
}

// NewEcho creates the echo instance serving /api
func NewEcho(config *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	SetupRoutes(e, config)
	return e
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	logger := config.Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			// dashboards poll the snapshot
			return c.Request().URL.Path == "/api/snapshot"
		},
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())

	api := e.Group("/api")

	// Auth routes (public)
	auth := api.Group("/auth")
	{
		auth.POST("/token", config.AuthHandler.Token)
		auth.POST("/logout", config.AuthHandler.Logout)
	}

	protected := api.Group("", config.Auth.Middleware)
	{
		protected.GET("/statistics", config.StatisticsHandler.GetStatistics)
		protected.GET("/snapshot", config.StatisticsHandler.GetSnapshot)
		protected.GET("/accounts/:id/statistics", config.StatisticsHandler.GetAccountStatistics)
		protected.GET("/tp/statistics", config.StatisticsHandler.GetTPStatistics)

		protected.GET("/settings", config.SettingsHandler.GetSettings)
		protected.POST("/settings/auto-trade", config.SettingsHandler.SetAutoTrade)
		protected.GET("/accounts/:id/settings", config.SettingsHandler.GetLeafSettings)
		protected.POST("/leaf-settings", config.SettingsHandler.UpdateLeafSettings)

		protected.GET("/trades", config.TradeHandler.ListTrades)
		protected.GET("/paper-trades", config.TradeHandler.PaperTrades)
		protected.GET("/exchange-trades", config.TradeHandler.ExchangeTrades)
		protected.POST("/trades/open", config.TradeHandler.OpenTrade)
		protected.POST("/trades/:id/close", config.TradeHandler.CloseTrade)
		protected.POST("/accounts/:id/close-all", config.TradeHandler.CloseAll)
		protected.POST("/tp/:id/close", config.TradeHandler.CloseTP)

		protected.POST("/monitor", config.OpsHandler.RunMonitor)
		protected.GET("/balances", config.OpsHandler.GetBalances)

		protected.POST("/alerts", config.AlertHandler.Create)
	}
}

// NewRootRouter mounts the echo API under /api next to the health check and the alert webhook
func NewRootRouter(api http.Handler, alerts *AlertHandler, health func(ctx context.Context) error) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", handleHealth(health))
	r.Post("/webhook/alert", alerts.Webhook)
	r.Mount("/api", api)

	return r
}

func handleHealth(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		storage := "healthy"
		if check != nil {
			if err := check(ctx); err != nil {
				storage = "unhealthy"
			}
		}

		writeJSON(w, http.StatusOK, successBody("", map[string]interface{}{
			"status":    "healthy",
			"service":   "tradeledger",
			"storage":   storage,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}))
	}
}
