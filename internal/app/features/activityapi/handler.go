// Package activityapi provides the JSON feed of repository activity
// events (uploads, folder changes, comments, grades).
//
// Endpoints (mounted at /api/activity):
//   - GET /recent          - newest events first (?limit=, admin/teacher)
//   - GET /me              - the caller's own recent events
//   - GET /users/{userID}  - one user's recent events (admin)
package activityapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/fie-storage/fiestorage/internal/app/store/activity"
	"github.com/fie-storage/fiestorage/internal/app/system/auth"
	"github.com/fie-storage/fiestorage/internal/app/system/authz"
	"github.com/fie-storage/fiestorage/internal/app/system/jsonutil"
	"github.com/fie-storage/fiestorage/internal/app/system/timeouts"
	"github.com/fie-storage/fiestorage/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const defaultLimit = 50

// Handler handles activity feed API requests.
type Handler struct {
	activity *activity.Store
	logger   *zap.Logger
}

// NewHandler creates a new activityapi handler.
func NewHandler(activityStore *activity.Store, logger *zap.Logger) *Handler {
	return &Handler{activity: activityStore, logger: logger}
}

// Routes returns a router with the activity feed endpoints.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)

	r.Get("/me", h.Mine)

	r.Group(func(gr chi.Router) {
		gr.Use(sessionMgr.RequireRole(models.RoleAdmin, models.RoleTeacher))
		gr.Get("/recent", h.Recent)
	})

	r.Group(func(gr chi.Router) {
		gr.Use(sessionMgr.RequireRole(models.RoleAdmin))
		gr.Get("/users/{userID}", h.ByUser)
	})

	return r
}

// Recent handles GET /recent requests.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.activity.Recent(ctx, limitParam(r))
	if err != nil {
		h.logger.Error("recent activity failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to load activity")
		return
	}
	jsonutil.OK(w, map[string]any{"events": events})
}

// Mine handles GET /me requests.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return
	}

	events, err := h.activity.GetByUser(ctx, userID, limitParam(r))
	if err != nil {
		h.logger.Error("own activity failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to load activity")
		return
	}
	jsonutil.OK(w, map[string]any{"events": events})
}

// ByUser handles GET /users/{userID} requests.
func (h *Handler) ByUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		jsonutil.BadRequest(w, "invalid user ID")
		return
	}

	events, err := h.activity.GetByUser(ctx, userID, limitParam(r))
	if err != nil {
		h.logger.Error("user activity failed",
			zap.String("user_id", userID.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "failed to load activity")
		return
	}
	jsonutil.OK(w, map[string]any{"events": events})
}

// limitParam reads ?limit=, defaulting and clamping to sane values.
func limitParam(r *http.Request) int64 {
	n, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > 500 {
		return 500
	}
	return n
}
