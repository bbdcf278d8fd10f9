package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends selectable through FILEGATE_STORAGE_BACKEND.
const (
	BackendMinIO  = "minio"
	BackendS3     = "s3"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// Config aggregates runtime configuration for the file gateway.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	MinIO    MinIOConfig
	S3       S3Config
	GCS      GCSConfig
	Document DocumentConfig
	Metrics  MetricsConfig
	Log      LogConfig

	// TaxonomyFile optionally points at a YAML category table overriding the built-in one.
	TaxonomyFile string `env:"FILEGATE_TAXONOMY_FILE"`
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host            string        `env:"FILEGATE_API_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"FILEGATE_API_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"FILEGATE_API_READ_TIMEOUT" envDefault:"60s"`
	WriteTimeout    time.Duration `env:"FILEGATE_API_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"FILEGATE_API_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"FILEGATE_API_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MultipartMemory int64         `env:"FILEGATE_API_MULTIPART_MEMORY" envDefault:"33554432"`
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects the object store and how objects are addressed in it.
type StorageConfig struct {
	Backend        string        `env:"FILEGATE_STORAGE_BACKEND" envDefault:"minio"`
	PublicEndpoint string        `env:"FILEGATE_PUBLIC_ENDPOINT" envDefault:"http://localhost:9000"`
	BucketPrefix   string        `env:"FILEGATE_BUCKET_PREFIX" envDefault:"file-service"`
	PresignExpiry  time.Duration `env:"FILEGATE_PRESIGN_EXPIRY" envDefault:"60m"`
}

// BucketName joins the prefix with a category bucket suffix.
func (s StorageConfig) BucketName(suffix string) string {
	if s.BucketPrefix == "" {
		return suffix
	}
	return s.BucketPrefix + "-" + suffix
}

// MinIOConfig carries MinIO connection information.
type MinIOConfig struct {
	Endpoint        string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	AccessKeyID     string `env:"MINIO_ROOT_USER" envDefault:"minioadmin"`
	SecretAccessKey string `env:"MINIO_ROOT_PASSWORD" envDefault:"minioadmin"`
	UseSSL          bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	Region          string `env:"MINIO_REGION"`
}

// S3Config carries AWS S3 connection information.
type S3Config struct {
	Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"S3_ENDPOINT"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	ForcePathStyle  bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
}

// GCSConfig carries Google Cloud Storage connection information.
type GCSConfig struct {
	ProjectID       string `env:"GCS_PROJECT_ID"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	Endpoint        string `env:"GCS_ENDPOINT"`
	Location        string `env:"GCS_LOCATION" envDefault:"US"`
}

// DocumentConfig groups document processing settings.
type DocumentConfig struct {
	ThumbnailWidth  int  `env:"DOCUMENT_THUMBNAIL_WIDTH" envDefault:"200"`
	ThumbnailHeight int  `env:"DOCUMENT_THUMBNAIL_HEIGHT" envDefault:"200"`
	VerifyOnUpload  bool `env:"DOCUMENT_VERIFY_ON_UPLOAD" envDefault:"false"`
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string `env:"FILEGATE_METRICS_PATH" envDefault:"/metrics"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads configuration values from the environment, after loading an
// optional .env file, and validates the result.
func Load() (Config, error) {
	// the .env file is optional
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error

	switch c.Storage.Backend {
	case BackendMinIO, BackendS3, BackendGCS, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if c.Storage.PresignExpiry <= 0 {
		errs = append(errs, errors.New("presign expiry must be positive"))
	}
	if c.Document.ThumbnailWidth <= 0 || c.Document.ThumbnailHeight <= 0 {
		errs = append(errs, errors.New("thumbnail dimensions must be positive"))
	}
	if c.Storage.Backend == BackendGCS && c.GCS.ProjectID == "" {
		errs = append(errs, errors.New("GCS_PROJECT_ID is required for the gcs backend"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
