package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/abduss/filegate/internal/config"
	"github.com/abduss/filegate/internal/document"
	"github.com/abduss/filegate/internal/file"
	"github.com/abduss/filegate/internal/filetype"
	"github.com/abduss/filegate/internal/logger"
	"github.com/abduss/filegate/internal/metrics"
	"github.com/abduss/filegate/internal/server"
	"github.com/abduss/filegate/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}

	logg, err := logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer func() { _ = logg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		logg.Fatal("connect object store", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}

	registry, err := filetype.LoadFile(cfg.TaxonomyFile)
	if err != nil {
		logg.Fatal("load taxonomy", zap.String("path", cfg.TaxonomyFile), zap.Error(err))
	}

	metrics.InitMetrics()
	observer, err := metrics.NewStorageObserver(prometheus.DefaultRegisterer)
	if err != nil {
		logg.Fatal("register storage metrics", zap.Error(err))
	}

	gateway := storage.NewGateway(backend, storage.GatewayConfig{
		PublicEndpoint: cfg.Storage.PublicEndpoint,
		DefaultExpiry:  cfg.Storage.PresignExpiry,
		Observer:       observer,
	})

	for _, d := range registry.Descriptors() {
		bucket := cfg.Storage.BucketName(d.BucketSuffix)
		if err := storage.EnsureBucket(ctx, backend, bucket); err != nil {
			logg.Warn("ensure bucket", zap.String("bucket", bucket), zap.Error(err))
		}
	}

	fileService := file.NewService(registry, gateway, document.NewPDFExtractor(), file.Options{
		BucketName:      cfg.Storage.BucketName,
		ThumbnailWidth:  cfg.Document.ThumbnailWidth,
		ThumbnailHeight: cfg.Document.ThumbnailHeight,
		VerifyDocuments: cfg.Document.VerifyOnUpload,
		Observer:        observer,
	})

	readiness, ok := registry.Lookup(string(filetype.File))
	if !ok {
		readiness = registry.Descriptors()[0]
	}

	router := server.NewRouter(server.Dependencies{
		Config:          cfg,
		ObjectStore:     gateway,
		ReadinessBucket: cfg.Storage.BucketName(readiness.BucketSuffix),
		FileService:     fileService,
	})
	router.MaxMultipartMemory = cfg.Server.MultipartMemory

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("filegate API listening",
			zap.String("address", cfg.Server.Address()),
			zap.String("backend", cfg.Storage.Backend),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown error", zap.Error(err))
	}
}

func newBackend(ctx context.Context, cfg config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendS3:
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return storage.NewS3Backend(client, cfg.S3.Region), nil
	case config.BackendGCS:
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return storage.NewGCSBackend(client, cfg.GCS.ProjectID, cfg.GCS.Location), nil
	case config.BackendMemory:
		return storage.NewMemoryBackend(cfg.Storage.PublicEndpoint), nil
	default:
		client, err := storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		return storage.NewMinIOBackend(client, cfg.MinIO.Region), nil
	}
}
