package config

import (
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/khdiyz/image-gateway/internal/pkg/logger"
	"github.com/spf13/cast"
)

const (
	DriverMinio  = "minio"
	DriverMemory = "memory"
)

var (
	instance *Config
	once     sync.Once
)

type Config struct {
	GrpcHost string
	GrpcPort int

	MetricsHost string
	MetricsPort int

	LogLevel string

	StorageDriver         string
	StorageRequestTimeout time.Duration

	MinioEndpoint     string
	MinioAccessKey    string
	MinioSecretKey    string
	MinioUseSSL       bool
	MinioRegion       string
	MinioBucketName   string
	MinioFileUrl      string
	MinioEnsureBucket bool
	MinioPublicRead   bool

	ImageMaxSizeMB    float64
	ImageCacheControl string
}

// GetConfig loads the configuration once per process
func GetConfig(log *logger.Logger) *Config {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Info(".env file not found, reading from environment")
		}
		instance = Load()
	})
	return instance
}

// Load reads the configuration from the environment without touching .env
func Load() *Config {
	return &Config{
		GrpcHost: cast.ToString(getOrReturnDefault("GRPC_HOST", "localhost")),
		GrpcPort: cast.ToInt(getOrReturnDefault("GRPC_PORT", 5051)),

		MetricsHost: cast.ToString(getOrReturnDefault("METRICS_HOST", "localhost")),
		MetricsPort: cast.ToInt(getOrReturnDefault("METRICS_PORT", 9091)),

		LogLevel: cast.ToString(getOrReturnDefault("LOG_LEVEL", "info")),

		StorageDriver:         cast.ToString(getOrReturnDefault("STORAGE_DRIVER", DriverMinio)),
		StorageRequestTimeout: cast.ToDuration(getOrReturnDefault("STORAGE_REQUEST_TIMEOUT", "30s")),

		MinioEndpoint:     cast.ToString(getOrReturnDefault("MINIO_ENDPOINT", "localhost:9000")),
		MinioAccessKey:    cast.ToString(getOrReturnDefault("MINIO_ACCESS_KEY", "")),
		MinioSecretKey:    cast.ToString(getOrReturnDefault("MINIO_SECRET_KEY", "")),
		MinioUseSSL:       cast.ToBool(getOrReturnDefault("MINIO_USE_SSL", true)),
		MinioRegion:       cast.ToString(getOrReturnDefault("MINIO_REGION", "")),
		MinioBucketName:   cast.ToString(getOrReturnDefault("MINIO_BUCKET_NAME", "user-uploads")),
		MinioFileUrl:      cast.ToString(getOrReturnDefault("MINIO_FILE_URL", "")),
		MinioEnsureBucket: cast.ToBool(getOrReturnDefault("MINIO_ENSURE_BUCKET", true)),
		MinioPublicRead:   cast.ToBool(getOrReturnDefault("MINIO_PUBLIC_READ", false)),

		ImageMaxSizeMB:    cast.ToFloat64(getOrReturnDefault("IMAGE_MAX_SIZE_MB", 5)),
		ImageCacheControl: cast.ToString(getOrReturnDefault("IMAGE_CACHE_CONTROL", "max-age=3600")),
	}
}

func getOrReturnDefault(key string, defaultValue any) any {
	val, exists := os.LookupEnv(key)
	if exists {
		return val
	}
	return defaultValue
}
