package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/ojscutt/sl-pitchfork/internal/adapters/primary/http/handlers"
	"github.com/ojscutt/sl-pitchfork/internal/adapters/primary/http/middleware"
	"github.com/ojscutt/sl-pitchfork/internal/adapters/secondary/artifacts"
	"github.com/ojscutt/sl-pitchfork/internal/adapters/secondary/catalog"
	"github.com/ojscutt/sl-pitchfork/internal/adapters/secondary/cluster"
	"github.com/ojscutt/sl-pitchfork/internal/adapters/secondary/local"
	"github.com/ojscutt/sl-pitchfork/internal/adapters/secondary/postgres"
	"github.com/ojscutt/sl-pitchfork/internal/config"
	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
	output "github.com/ojscutt/sl-pitchfork/internal/core/ports/output"
	"github.com/ojscutt/sl-pitchfork/internal/core/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// Create database pool
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("parse db config: %v", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		log.Fatalf("create db pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatalf("ping db: %v", err)
	}
	log.Info("database connection established")

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	// Secondary Adapters (Output Ports)
	emulatorRepo := postgres.NewEmulatorRepository(pool)
	runRepo := postgres.NewInferenceRunRepository(pool)

	store, err := artifacts.NewStore(cfg.Artifacts.Dir)
	if err != nil {
		log.Fatalf("open artifact store: %v", err)
	}
	log.Infof("artifact store rooted at %s", store.Root())

	// Run Launcher: in-process pool by default, Kubernetes jobs when enabled
	workerPool := local.NewPool(cfg.Sampler.Workers)
	var launcher output.RunLauncher = workerPool
	if cfg.Kubernetes.Enabled {
		clusterLauncher, err := cluster.NewLauncher(&cfg.Kubernetes)
		if err != nil {
			log.Warnf("cluster launcher init failed (runs stay on the local pool): %v", err)
		} else {
			launcher = clusterLauncher
			log.Info("cluster launcher initialized")
		}
	} else {
		log.Info("cluster execution disabled, runs execute on the local pool")
	}

	// Star Catalog Client (Optional - based on config)
	catalogClient := catalog.NewCatalogClient(&cfg.Catalog)
	if catalogClient.IsAvailable() {
		log.Info("star catalog client initialized")
	} else {
		log.Info("star catalog integration disabled")
	}

	// Core Services (Application Layer)
	emulatorSvc := services.NewEmulatorService(emulatorRepo, runRepo, store)
	runSvc := services.NewInferenceRunService(runRepo, emulatorSvc, store, launcher, catalogClient)
	runSvc.SetSamplerDefaults(domain.SamplerSettings{
		NLive:     cfg.Sampler.NLive,
		Walks:     cfg.Sampler.Walks,
		DLogZ:     cfg.Sampler.DLogZ,
		LogLScale: cfg.Sampler.LogLScale,
	})
	starSvc := services.NewStarService(catalogClient)

	workerPool.SetExecutor(runSvc.Execute)

	// Artifact watcher: registers emulators dropped into the store
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if cfg.Artifacts.Watch {
		watcher := artifacts.NewWatcher(store, func(ctx context.Context, path string) error {
			_, err := emulatorSvc.RegisterFromFile(ctx, path)
			return err
		})
		if err := watcher.Start(watchCtx); err != nil {
			log.Warnf("artifact watcher init failed (continuing without watching): %v", err)
		} else {
			log.Info("artifact watcher started")
		}
	}

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(emulatorSvc, runSvc, starSvc)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1/pitchfork")
	h.RegisterRoutes(api)

	// Health check with DB ping
	router.GET("/healthz", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")
	stopWatch()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	// Drain in-flight sampling runs so their terminal status is persisted
	if err := workerPool.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("worker pool did not drain before deadline")
	}

	log.Info("server stopped")
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
