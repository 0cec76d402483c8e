// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/fie-storage/fiestorage/internal/app/store/activity"
	userstore "github.com/fie-storage/fiestorage/internal/app/store/users"
	"github.com/fie-storage/fiestorage/internal/app/system/authutil"
	"github.com/fie-storage/fiestorage/internal/app/system/status"
	"github.com/fie-storage/fiestorage/internal/app/system/tasks"
	"github.com/fie-storage/fiestorage/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// This is the place for one-time initialization that depends on having live
// database connections and fully loaded configuration. Unlike ConnectDB and
// EnsureSchema which focus on infrastructure, Startup is for application-level
// initialization.
//
// Returning a non-nil error will abort startup and prevent the server from
// starting. Returning nil signals that initialization succeeded.
//
// The context will be cancelled if the process is asked to shut down while
// Startup is running; honor it in any long-running work.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	// Seed admin user if configured
	if appCfg.SeedAdminEmail != "" {
		if err := ensureAdminUser(ctx, deps, appCfg, logger); err != nil {
			logger.Error("failed to seed admin user", zap.Error(err))
			return err
		}
	}

	// Start background task runner
	startTaskRunner(deps, appCfg, logger)

	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner initializes and starts the background task runner.
func startTaskRunner(deps DBDeps, appCfg AppConfig, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	if appCfg.ActivityRetention > 0 {
		activityStore := activity.New(deps.MongoDatabase)
		taskRunner.Register(tasks.ActivityPruneJob(activityStore, appCfg.ActivityRetention, logger))
	} else {
		logger.Info("activity pruning disabled (activity_retention is 0)")
	}

	taskRunner.Start()
}

// ensureAdminUser ensures an active admin exists with the given email.
// If a user exists with this email, ensure they have the admin role and
// are active. If no user exists, create one with the seed password.
func ensureAdminUser(ctx context.Context, deps DBDeps, appCfg AppConfig, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)

	email := appCfg.SeedAdminEmail
	name := appCfg.SeedAdminName
	if name == "" {
		name = "Admin"
	}

	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role == models.RoleAdmin && existing.Status == status.Active {
			logger.Debug("admin user already configured", zap.String("email", email))
			return nil
		}

		role := models.RoleAdmin
		active := status.Active
		if err := users.Update(ctx, existing.ID, userstore.UpdateInput{
			Role:   &role,
			Status: &active,
		}); err != nil {
			return err
		}
		logger.Info("promoted existing user to admin",
			zap.String("email", email),
			zap.String("user_id", existing.ID.Hex()),
			zap.String("previous_role", existing.Role))
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	if appCfg.SeedAdminPassword == "" {
		logger.Warn("seed_admin_email set but no seed_admin_password; skipping admin creation",
			zap.String("email", email))
		return nil
	}
	if err := authutil.ValidatePassword(appCfg.SeedAdminPassword); err != nil {
		return err
	}
	hash, err := authutil.HashPassword(appCfg.SeedAdminPassword)
	if err != nil {
		return err
	}

	created, err := users.Create(ctx, models.User{
		FirstName:    name,
		Email:        email,
		PasswordHash: &hash,
		Role:         models.RoleAdmin,
		Status:       status.Active,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return err
	}

	logger.Info("created admin user",
		zap.String("email", email),
		zap.String("user_id", created.ID.Hex()))
	return nil
}
