// Package authapi provides the JSON login/logout endpoints over
// cookie-based sessions.
//
// Endpoints (mounted at /api/auth):
//   - POST /login  - sign in {email, password}, sets the session cookie
//   - POST /logout - destroy the session
//   - GET  /me     - the signed-in session identity
package authapi

import (
	"context"
	"errors"
	"net/http"

	users "github.com/fie-storage/fiestorage/internal/app/store/users"
	"github.com/fie-storage/fiestorage/internal/app/system/auth"
	"github.com/fie-storage/fiestorage/internal/app/system/authutil"
	"github.com/fie-storage/fiestorage/internal/app/system/jsonutil"
	"github.com/fie-storage/fiestorage/internal/app/system/status"
	"github.com/fie-storage/fiestorage/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler handles authentication API requests.
type Handler struct {
	users      *users.Store
	sessionMgr *auth.SessionManager
	logger     *zap.Logger
}

// NewHandler creates a new authapi handler.
func NewHandler(userStore *users.Store, sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		users:      userStore,
		sessionMgr: sessionMgr,
		logger:     logger,
	}
}

// Routes returns a router with the authentication endpoints.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)
	return r
}

// Login handles POST /login requests. Unknown email and wrong password
// get the same response; callers cannot enumerate accounts.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	if in.Email == "" || in.Password == "" {
		jsonutil.BadRequest(w, "email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.Unauthorized(w, "invalid email or password")
			return
		}
		h.logger.Error("login lookup failed", zap.Error(err))
		jsonutil.InternalError(w, "login failed")
		return
	}

	if user.PasswordHash == nil || !authutil.CheckPassword(in.Password, *user.PasswordHash) {
		jsonutil.Unauthorized(w, "invalid email or password")
		return
	}
	if user.Status != status.Active {
		jsonutil.Forbidden(w, "account is disabled")
		return
	}

	if err := h.sessionMgr.CreateSession(w, r, user.ID, user.Role, ""); err != nil {
		h.logger.Error("session create failed", zap.Error(err))
		jsonutil.InternalError(w, "login failed")
		return
	}

	h.logger.Info("user signed in",
		zap.String("user_id", user.ID.Hex()), zap.String("role", user.Role))
	jsonutil.OK(w, map[string]any{"user": user})
}

// Logout handles POST /logout requests.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessionMgr.DestroySession(w, r)
	jsonutil.NoContent(w)
}

// Me handles GET /me requests using the session identity loaded by the
// LoadSessionUser middleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return
	}
	jsonutil.OK(w, map[string]any{
		"id":     user.ID,
		"name":   user.Name,
		"email":  user.Email,
		"role":   user.Role,
		"career": user.Career,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| UserFetcher                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// Fetcher adapts the users store to the auth.UserFetcher interface so
// LoadSessionUser sees fresh role and status data on every request.
type Fetcher struct {
	users  *users.Store
	logger *zap.Logger
}

// NewFetcher creates a UserFetcher backed by the users store.
func NewFetcher(userStore *users.Store, logger *zap.Logger) *Fetcher {
	return &Fetcher{users: userStore, logger: logger}
}

// FetchUser returns the session view of the user, or nil when the
// account is gone or disabled so the session is invalidated.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	user, err := f.users.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			f.logger.Warn("session user fetch failed",
				zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	if user.Status != status.Active {
		return nil
	}

	return &auth.SessionUser{
		ID:     user.ID.Hex(),
		Name:   user.FullName(),
		Email:  user.Email,
		Role:   user.Role,
		Career: user.Career,
	}
}
