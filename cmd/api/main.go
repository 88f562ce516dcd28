package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/filedrop/internal/config"
	"github.com/abduss/filedrop/internal/file"
	"github.com/abduss/filedrop/internal/logger"
	"github.com/abduss/filedrop/internal/metrics"
	"github.com/abduss/filedrop/internal/server"
	"github.com/abduss/filedrop/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer func() { _ = logg.Sync() }()
	zap.ReplaceGlobals(logg)

	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var catalog file.Catalog
	switch cfg.Catalog.Backend {
	case config.CatalogPostgres:
		dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logg.Fatal("connect postgres", zap.Error(err))
		}
		defer dbPool.Close()

		pgCatalog := file.NewPostgresCatalog(dbPool)
		if err := pgCatalog.EnsureSchema(ctx); err != nil {
			logg.Fatal("ensure catalog schema", zap.Error(err))
		}
		catalog = pgCatalog
	default:
		catalog = file.NewJSONCatalog(cfg.Catalog.MetaDir, logg.Named("catalog"))
	}

	var store file.ObjectStore
	switch cfg.Storage.Backend {
	case config.StorageMinIO:
		minioClient, err := storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			logg.Fatal("connect minio", zap.Error(err))
		}
		if err := storage.EnsureBucket(ctx, minioClient, cfg.MinIO); err != nil {
			logg.Fatal("ensure bucket", zap.Error(err))
		}
		store = file.NewMinIOStore(minioClient, cfg.MinIO.Bucket, cfg.MinIO.Prefix, cfg.Storage.MaxFileSize)
	default:
		store = file.NewDiskStore(cfg.Storage.AssetsDir,
			file.WithMaxSize(cfg.Storage.MaxFileSize),
			file.WithFileMode(cfg.Storage.FileMode),
			file.WithDirMode(cfg.Storage.DirMode),
		)
	}

	metrics.InitMetrics()
	fileService := file.NewService(catalog, store, logg.Named("file"), cfg.Storage.MaxFileSize)

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.Dependencies{
		Config:      cfg,
		FileService: fileService,
		Logger:      logg,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("filedrop API listening",
			zap.String("address", cfg.Server.Address()),
			zap.String("storage", cfg.Storage.Backend),
			zap.String("catalog", cfg.Catalog.Backend),
			zap.Int64("max_file_size", cfg.Storage.MaxFileSize))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown error", zap.Error(err))
	}
}
