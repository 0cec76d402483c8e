// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "FIESTORAGE"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: FIESTORAGE_MONGO_URI, FIESTORAGE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "fiestorage", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "fiestorage-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},

	// Blob storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 'minio'"},
	{Name: "storage_local_path", Default: "./blobdata", Desc: "Local storage path for the repository tree"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},

	// MinIO configuration
	{Name: "minio_endpoint", Default: "", Desc: "MinIO server endpoint (host:port)"},
	{Name: "minio_bucket", Default: "fiestorage", Desc: "MinIO bucket for the repository tree"},
	{Name: "minio_access_key", Default: "", Desc: "MinIO access key ID"},
	{Name: "minio_secret_key", Default: "", Desc: "MinIO secret access key"},
	{Name: "minio_use_ssl", Default: false, Desc: "Connect to MinIO over TLS"},
	{Name: "minio_base_url", Default: "", Desc: "Public URL prefix for download links (blank uses the endpoint)"},

	// Activity feed retention
	{Name: "activity_retention", Default: "2160h", Desc: "Prune activity events older than this (e.g., 720h; '0' disables)"},

	// Admin seeding configuration
	{Name: "seed_admin_email", Default: "", Desc: "Email of admin user to create on startup"},
	{Name: "seed_admin_name", Default: "Admin", Desc: "Name of admin user to create on startup"},
	{Name: "seed_admin_password", Default: "", Desc: "Password of admin user to create on startup"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
// CoreConfig comes from the shared WAFFLE layer; AppConfig is specific
// to this app and can be extended as the app grows.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, FIESTORAGE_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		// Blob storage
		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// MinIO
		MinioEndpoint:  appValues.String("minio_endpoint"),
		MinioBucket:    appValues.String("minio_bucket"),
		MinioAccessKey: appValues.String("minio_access_key"),
		MinioSecretKey: appValues.String("minio_secret_key"),
		MinioUseSSL:    appValues.Bool("minio_use_ssl"),
		MinioBaseURL:   appValues.String("minio_base_url"),

		// Activity retention
		ActivityRetention: appValues.Duration("activity_retention", 90*24*time.Hour),

		// Admin seeding
		SeedAdminEmail:    appValues.String("seed_admin_email"),
		SeedAdminName:     appValues.String("seed_admin_name"),
		SeedAdminPassword: appValues.String("seed_admin_password"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// This is the right place to enforce required fields or invariants that
// involve both the core and app configs.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_local_path is required when storage_type is 'local'")
		}
	case "minio":
		if appCfg.MinioEndpoint == "" {
			return fmt.Errorf("minio_endpoint is required when storage_type is 'minio'")
		}
		if appCfg.MinioBucket == "" {
			return fmt.Errorf("minio_bucket is required when storage_type is 'minio'")
		}
	default:
		return fmt.Errorf("unknown storage_type %q (want 'local' or 'minio')", appCfg.StorageType)
	}

	return nil
}
