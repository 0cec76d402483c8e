// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (HTTP ports, TLS,
// logging, CORS, timeouts). AppConfig is everything specific to this
// application: database connection strings, object storage backends,
// session settings, and seeding defaults.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: fiestorage-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Maximum session cookie lifetime (default: 24h)

	// Object storage configuration.
	// "minio" talks to a MinIO/S3-compatible endpoint; "local" keeps
	// blobs on disk (development and tests).
	StorageType      string // "minio" or "local"
	StorageLocalPath string // Local storage path (e.g., "./blobdata")
	StorageLocalURL  string // URL prefix for serving local blobs

	// MinIO configuration (only used if StorageType is "minio")
	MinioEndpoint  string // host:port of the MinIO server
	MinioBucket    string // bucket holding the repository tree
	MinioAccessKey string // access key ID
	MinioSecretKey string // secret access key
	MinioUseSSL    bool   // connect over TLS
	MinioBaseURL   string // URL prefix for download links (CDN/proxy; empty uses the endpoint)

	// Activity feed retention; events older than this are pruned by a
	// background job. Zero disables pruning.
	ActivityRetention time.Duration

	// Admin seeding configuration. On startup, if no active admin
	// exists and these are set, one is created.
	SeedAdminEmail    string
	SeedAdminName     string
	SeedAdminPassword string
}
