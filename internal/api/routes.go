// routes.go - Route registration helpers
package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Jobs         JobManager
	Logbook      LogbookService
	Driver       string
	Version      string
	PollInterval time.Duration
	Logger       *zap.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Import    ImportHandler
	Logbook   LogbookHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.Driver, deps.Jobs),
		Import:    NewImportHandler(deps.Jobs, deps.PollInterval),
		Logbook:   NewLogbookHandler(deps.Logbook),
		WebSocket: NewWebSocketHandler(deps.Jobs, deps.PollInterval, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/health", handlers.Health.HandleHealth)

	importGroup := e.Group("/api/import")
	importGroup.POST("", handlers.Import.HandleStartImport)
	importGroup.GET("/latest", handlers.Import.HandleLatestImport)
	importGroup.GET("/:jobId", handlers.Import.HandleImportStatus)
	importGroup.GET("/:jobId/progress", handlers.Import.HandleImportProgressStream)
	importGroup.DELETE("/:jobId", handlers.Import.HandleCancelImport)

	api := e.Group("/api")
	api.GET("/gear", handlers.Logbook.HandleGetGear)
	api.GET("/cycles", handlers.Logbook.HandleGetCycles)
	api.GET("/weeks", handlers.Logbook.HandleGetWeeks)
	api.GET("/seasons", handlers.Logbook.HandleGetSeasons)

	flightGroup := e.Group("/api/flights")
	flightGroup.GET("/:logId", handlers.Logbook.HandleGetFlightInfo)
	flightGroup.GET("/:logId/events", handlers.Logbook.HandleGetEventLog)
	flightGroup.GET("/:logId/telemetry", handlers.Logbook.HandleGetTelemetry)

	modelGroup := e.Group("/api/models")
	modelGroup.GET("/:modelId", handlers.Logbook.HandleGetModelInfo)
	modelGroup.PUT("/:modelId/info", handlers.Logbook.HandleSetModelInfo)
	modelGroup.GET("/:modelId/image", handlers.Logbook.HandleGetModelImage)
	modelGroup.PUT("/:modelId/image", handlers.Logbook.HandleSetModelImage)
	modelGroup.DELETE("/:modelId/image", handlers.Logbook.HandleDeleteModelImage)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/ws/import", handlers.WebSocket.HandleWebSocket)
}

// MiddlewareOptions selects the optional middleware
type MiddlewareOptions struct {
	Logger         *zap.Logger
	Development    bool
	EnableCORS     bool
	AllowOrigins   []string
	RequestLogging bool
	BodyLimit      string
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	e.HTTPErrorHandler = NewErrorHandler(logger, opts.Development)

	e.Use(middleware.Recover())
	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}
	if opts.EnableCORS {
		origins := opts.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		}))
	}
	if opts.RequestLogging {
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogURI:     true,
			LogStatus:  true,
			LogMethod:  true,
			LogLatency: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				logger.Info("request",
					zap.String("method", v.Method),
					zap.String("uri", v.URI),
					zap.Int("status", v.Status),
					zap.Duration("latency", v.Latency),
				)
				return nil
			},
		}))
	}
}
