package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	pprof_gin "github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/pstlabs/pst-analyzer/config"
	"github.com/pstlabs/pst-analyzer/controllers"
	"github.com/pstlabs/pst-analyzer/logging"
	"github.com/pstlabs/pst-analyzer/middleware"
	"github.com/pstlabs/pst-analyzer/models"
	"github.com/pstlabs/pst-analyzer/services"
	"github.com/pstlabs/pst-analyzer/storage"
)

// based on https://www.digitalocean.com/community/tutorials/using-ldflags-to-set-version-information-for-go-applications
var Version = "dev"

// Bootstrap assembles the HTTP engine: logging, error reporting, database,
// storage root and routes. The storage root is verified before the engine
// serves a single request.
func Bootstrap() (*gin.Engine, error) {
	logging.Init()
	cfg := config.New()

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              os.Getenv("SENTRY_DSN"),
		EnableTracing:    true,
		TracesSampleRate: 0.1,
		Release:          "pst-analyzer@" + Version,
	}); err != nil {
		slog.Error("Sentry initialization failed", "error", err)
	}

	if err := models.ConnectDatabase(); err != nil {
		return nil, fmt.Errorf("database setup failed: %w", err)
	}

	store := storage.NewFilesystemStore(cfg.GetString("storage.root"), cfg.GetInt64("upload.max_bytes"))
	if err := store.EnsureRoot(); err != nil {
		return nil, fmt.Errorf("storage setup failed: %w", err)
	}

	ingestor := services.NewIngestor(cfg, store, models.DB)

	r := gin.Default()

	r.Use(sloggin.New(slog.Default().WithGroup("http")))
	r.Use(logging.Middleware())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(middleware.CORSMiddleware())

	if config.PprofDebugEnabled() {
		pprof_gin.Register(r)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"build_date":  cfg.GetString("build_date"),
			"deployed_at": cfg.GetString("deployed_at"),
			"version":     Version,
		})
	})

	pstController := controllers.PstController{
		Ingestor: ingestor,
		Blobs:    store,
		MaxBytes: cfg.GetInt64("upload.max_bytes"),
	}

	pstGroup := r.Group("/pst")
	pstGroup.POST("/upload", pstController.Upload)
	pstGroup.GET("", pstController.List)
	pstGroup.GET("/:id", pstController.Get)
	pstGroup.GET("/:id/download", pstController.Download)

	return r, nil
}
