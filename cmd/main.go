package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/khdiyz/image-gateway/internal/config"
	"github.com/khdiyz/image-gateway/internal/handler"
	"github.com/khdiyz/image-gateway/internal/metrics"
	"github.com/khdiyz/image-gateway/internal/pkg/logger"
	"github.com/khdiyz/image-gateway/internal/service"
	"github.com/khdiyz/image-gateway/internal/storage"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "image-gateway",
		Short:        "Validate, upload and delete images in object storage",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newValidateCmd(), newUploadCmd(), newDeleteCmd())
	return root
}

// bootstrap loads the configuration and builds the gateway on the configured storage driver
func bootstrap(ctx context.Context) (*config.Config, *logger.Logger, *service.ImageService, error) {
	log := logger.GetLogger()
	cfg := config.GetConfig(log)
	log = logger.SetLevel(cfg.LogLevel)

	store, err := newStorage(ctx, cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}

	svc := service.NewImageService(store, log,
		service.WithBucket(cfg.MinioBucketName),
		service.WithMaxSizeMB(cfg.ImageMaxSizeMB),
		service.WithCacheControl(cfg.ImageCacheControl),
		service.WithTimeout(cfg.StorageRequestTimeout),
	)
	return cfg, log, svc, nil
}

func newStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		log.Warn("Using in-memory storage, objects are lost on exit")
		base := cfg.MinioFileUrl
		if base == "" {
			base = "http://" + cfg.GrpcHost
		}
		return storage.NewMemoryStorage(base, log), nil
	case config.DriverMinio:
		minioStorage, err := storage.NewMinioStorage(cfg, log)
		if err != nil {
			return nil, err
		}
		if cfg.MinioEnsureBucket {
			if err := minioStorage.EnsureBucket(ctx, cfg.MinioBucketName, cfg.MinioPublicRead); err != nil {
				return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
			}
		}
		log.Infow("MinIO storage initialized successfully", "bucket", cfg.MinioBucketName)
		return minioStorage, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC image gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, svc, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Sync()

			log.Info("Starting Image Gateway...")
			metrics.Register()

			listener, err := net.Listen("tcp", net.JoinHostPort(cfg.GrpcHost, fmt.Sprint(cfg.GrpcPort)))
			if err != nil {
				return fmt.Errorf("failed to listen: %w", err)
			}

			grpcServer := handler.NewServer(log, svc.MaxSizeMB())
			handler.RegisterImageGatewayServer(grpcServer, handler.NewImageHandler(svc, log))

			healthServer := health.NewServer()
			healthServer.SetServingStatus(handler.ServiceName, healthpb.HealthCheckResponse_SERVING)
			healthpb.RegisterHealthServer(grpcServer, healthServer)

			// Enable reflection for debugging (e.g. using grpcurl)
			reflection.Register(grpcServer)

			var metricsServer *http.Server
			if cfg.MetricsPort > 0 {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				metricsServer = &http.Server{
					Addr:              net.JoinHostPort(cfg.MetricsHost, fmt.Sprint(cfg.MetricsPort)),
					Handler:           mux,
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Errorw("Metrics server stopped", "error", err)
					}
				}()
			}

			// Graceful shutdown
			go func() {
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
				<-sigCh
				log.Info("Shutting down gRPC server...")
				healthServer.Shutdown()
				if metricsServer != nil {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = metricsServer.Shutdown(ctx)
				}
				grpcServer.GracefulStop()
			}()

			log.Infow("Image Gateway started", "host", cfg.GrpcHost, "port", cfg.GrpcPort, "bucket", svc.Bucket())
			if err := grpcServer.Serve(listener); err != nil {
				return fmt.Errorf("failed to serve gRPC: %w", err)
			}
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	var contentType string
	var maxSizeMB float64

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a local image against the upload rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			file := service.File{
				Name:        filepath.Base(args[0]),
				ContentType: declaredType(args[0], contentType),
				Size:        info.Size(),
			}

			if maxSizeMB == 0 {
				maxSizeMB = config.GetConfig(logger.GetLogger()).ImageMaxSizeMB
			}
			result := service.ValidateImage(file, maxSizeMB)
			if !result.Valid {
				return errors.New(result.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s, %s)\n", file.Name, file.ContentType, humanize.IBytes(uint64(file.Size)))
			return nil
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "declared MIME type (default: from the file extension)")
	cmd.Flags().Float64Var(&maxSizeMB, "max-size-mb", 0, "size limit in MB (default: IMAGE_MAX_SIZE_MB)")
	return cmd
}

func newUploadCmd() *cobra.Command {
	var contentType, bucket string

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Validate and upload a local image, printing its public URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, svc, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Sync()

			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			file := service.File{
				Name:        filepath.Base(args[0]),
				ContentType: declaredType(args[0], contentType),
				Size:        int64(len(content)),
				Content:     content,
			}

			if result := svc.Validate(file, 0); !result.Valid {
				return errors.New(result.Error)
			}

			url, err := svc.Upload(cmd.Context(), file, bucket)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "declared MIME type (default: from the file extension)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "target bucket (default: MINIO_BUCKET_NAME)")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var bucket string

	cmd := &cobra.Command{
		Use:   "delete URL",
		Short: "Delete a previously uploaded image by its public URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, svc, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Sync()

			return svc.DeleteByURL(cmd.Context(), args[0], bucket)
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "bucket holding the image (default: MINIO_BUCKET_NAME)")
	return cmd
}

// declaredType returns the explicit type if given, else the type registered for the extension
func declaredType(path, explicit string) string {
	if explicit != "" {
		return explicit
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}
