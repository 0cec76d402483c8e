// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	accountsapifeature "github.com/fie-storage/fiestorage/internal/app/features/accountsapi"
	activityapifeature "github.com/fie-storage/fiestorage/internal/app/features/activityapi"
	authapifeature "github.com/fie-storage/fiestorage/internal/app/features/authapi"
	careersapifeature "github.com/fie-storage/fiestorage/internal/app/features/careersapi"
	foldersapifeature "github.com/fie-storage/fiestorage/internal/app/features/foldersapi"
	healthfeature "github.com/fie-storage/fiestorage/internal/app/features/health"
	worksapifeature "github.com/fie-storage/fiestorage/internal/app/features/worksapi"
	"github.com/fie-storage/fiestorage/internal/app/repo"
	"github.com/fie-storage/fiestorage/internal/app/store/activity"
	careerstore "github.com/fie-storage/fiestorage/internal/app/store/careers"
	users "github.com/fie-storage/fiestorage/internal/app/store/users"
	"github.com/fie-storage/fiestorage/internal/app/store/works"
	"github.com/fie-storage/fiestorage/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// All application routes live under /api and use session cookie auth.
// The health endpoints are unauthenticated for load balancers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Stores and the repository service.
	userStore := users.New(deps.MongoDatabase)
	workStore := works.New(deps.MongoDatabase, logger)
	careerStore := careerstore.New(deps.MongoDatabase)
	activityStore := activity.New(deps.MongoDatabase)
	repoSvc := repo.New(deps.Tree, workStore, logger)

	// Set up the UserFetcher so LoadSessionUser fetches fresh user data on
	// each request. This ensures role changes and disabled accounts take
	// effect immediately.
	sessionMgr.SetUserFetcher(authapifeature.NewFetcher(userStore, logger))

	r := chi.NewRouter()

	// Global middleware: request timeout, CORS, security headers, and the
	// session loader. API routes without a session simply see no user.
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Blob, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// Uploaded files (local storage only)
	// When using local storage, serve blobs from the configured path.
	if appCfg.StorageType == "local" || appCfg.StorageType == "" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	// Authentication: login, logout, current user
	authHandler := authapifeature.NewHandler(userStore, sessionMgr, logger)
	r.Mount("/api/auth", authapifeature.Routes(authHandler))

	// Repository entries: list, upload, download, comments, grades
	worksHandler := worksapifeature.NewHandler(repoSvc, activityStore, logger)
	r.Mount("/api/works", worksapifeature.Routes(worksHandler, sessionMgr))

	// Folder management (admin and teacher)
	foldersHandler := foldersapifeature.NewHandler(repoSvc, activityStore, logger)
	r.Mount("/api/folders", foldersapifeature.Routes(foldersHandler, sessionMgr))

	// Careers and subjects (admin only)
	careersHandler := careersapifeature.NewHandler(careerStore, repoSvc, logger)
	r.Mount("/api/careers", careersapifeature.Routes(careersHandler, sessionMgr))

	// User accounts, profile, passwords, photos
	accountsHandler := accountsapifeature.NewHandler(userStore, deps.Blob, logger)
	r.Mount("/api/accounts", accountsapifeature.Routes(accountsHandler, sessionMgr))

	// Activity feed
	activityHandler := activityapifeature.NewHandler(activityStore, logger)
	r.Mount("/api/activity", activityapifeature.Routes(activityHandler, sessionMgr))

	return r, nil
}
