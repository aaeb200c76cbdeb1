package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/vbc-logbook/backend/internal/api"
	"github.com/vbc-logbook/backend/internal/config"
	"github.com/vbc-logbook/backend/internal/importer"
	"github.com/vbc-logbook/backend/internal/jobs"
	"github.com/vbc-logbook/backend/internal/logging"
	"github.com/vbc-logbook/backend/internal/report"
	"github.com/vbc-logbook/backend/internal/storage"
	"github.com/vbc-logbook/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	defaultConfig := filepath.Join(filepath.Dir(exePath), "VBCLogbook.config")

	configPath := kingpin.Flag("config", "Path to the XML or YAML configuration file.").Short('c').Default(defaultConfig).String()
	kingpin.Version(Version)
	kingpin.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Advanced.LogLevel, cfg.Advanced.Development)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatal("failed to create directories", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.StoreConfig(), logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer store.Close()

	imp := importer.New(importer.FromStore(store),
		importer.WithLogger(logger),
		importer.WithParseWorkers(cfg.Import.ParseWorkers),
	)
	jobMgr := jobs.NewManager(imp, cfg.Roots(), logger, jobs.WithProgressBuffer(cfg.Import.ProgressBuffer))
	defer jobMgr.Shutdown()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareOptions{
		Logger:         logger,
		Development:    cfg.Advanced.Development,
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   splitOrigins(cfg.Server.AllowOrigins),
		RequestLogging: cfg.Advanced.EnableRequestLogging,
		BodyLimit:      cfg.Server.BodyLimit,
	})

	handlers := api.NewHandlers(&api.Dependencies{
		Jobs:    jobMgr,
		Logbook: report.NewService(store),
		Driver:  store.Driver(),
		Version: Version,
		Logger:  logger,
	})
	api.RegisterRoutes(e, handlers)
	api.RegisterWebSocketRoutes(e, handlers)

	if err := web.RegisterStaticRoutes(e); err != nil {
		logger.Warn("failed to register thumbnail routes", zap.Error(err))
	}

	// Configure server with settings from the config file
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           VBC Logbook Server                              ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Storage:    %-45s║\n", store.Driver())
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", *configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.Storage.DataDirectory)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	jobMgr.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
