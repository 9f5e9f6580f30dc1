package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jengzang/caseheat-backend-go/internal/aggregation"
	"github.com/jengzang/caseheat-backend-go/internal/api"
	"github.com/jengzang/caseheat-backend-go/internal/config"
	"github.com/jengzang/caseheat-backend-go/internal/database"
	"github.com/jengzang/caseheat-backend-go/internal/handler"
	"github.com/jengzang/caseheat-backend-go/internal/ingest"
	"github.com/jengzang/caseheat-backend-go/internal/metrics"
	"github.com/jengzang/caseheat-backend-go/internal/middleware"
	"github.com/jengzang/caseheat-backend-go/internal/repository"
	"github.com/jengzang/caseheat-backend-go/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	log.SetLevelFromString(cfg.Logging.Level)

	// 初始化数据源
	source, closeSource, err := openSource(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to open case source")
	}
	defer closeSource()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		log.WithError(err).Fatal("Failed to register metrics")
	}

	svc := service.NewHeatmapService(source, aggregation.Options{
		ValidateRange: cfg.Aggregation.ValidateRange,
		MaxSamples:    cfg.Aggregation.MaxSamples,
	})

	// 首次加载; a failed load leaves the API up so /datasets/reload can retry
	loadCtx, cancel := context.WithTimeout(context.Background(), cfg.Aggregation.LoadTimeout)
	if _, err := svc.Reload(loadCtx); err != nil {
		log.WithError(err).Error("Initial dataset load failed")
	}
	cancel()

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, 5*time.Minute)
		defer limiter.Stop()
	}

	// 初始化路由
	router := api.SetupRouter(cfg, handler.NewHeatmapHandler(svc, cfg.Aggregation.LoadTimeout), limiter, reg)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	// 启动服务器
	go func() {
		log.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	log.Info("Server exited")
}

// openSource builds the configured record source. The returned func releases
// anything the source holds open.
func openSource(cfg *config.Config) (ingest.Source, func(), error) {
	opts := ingest.Options{
		ReportedField:  cfg.Source.ReportedField,
		FallbackField:  cfg.Source.FallbackField,
		LongitudeField: cfg.Source.LongitudeField,
		LatitudeField:  cfg.Source.LatitudeField,
	}

	switch cfg.Source.Kind {
	case "sqlite":
		db, err := openDatabase(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewCaseRepository(db), func() { _ = db.Close() }, nil
	case string(ingest.FormatCSV), string(ingest.FormatGeoJSON):
		return ingest.NewFileSource(cfg.Source.Path, ingest.Format(cfg.Source.Kind), opts), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

func openDatabase(path string) (*sql.DB, error) {
	db, err := database.Open(database.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := database.NewMigrationManager(db).RunMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
