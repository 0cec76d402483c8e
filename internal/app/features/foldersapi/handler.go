// Package foldersapi provides the JSON API for managing the folder
// hierarchy. Folders above the subject/year leaves are administratively
// managed; these endpoints are restricted to admins and teachers.
//
// Endpoints (mounted at /api/folders):
//   - GET    /         - list subfolders of a path (?path=)
//   - GET    /tree     - all folder records at or under a path (?path=)
//   - POST   /         - create a folder {parent_path, name}
//   - PUT    /rename   - rename a folder {parent_path, old_name, new_name}
//   - DELETE /         - delete a folder and its subtree (?path=)
package foldersapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fie-storage/fiestorage/internal/app/repo"
	"github.com/fie-storage/fiestorage/internal/app/store/activity"
	"github.com/fie-storage/fiestorage/internal/app/system/auth"
	"github.com/fie-storage/fiestorage/internal/app/system/authz"
	"github.com/fie-storage/fiestorage/internal/app/system/jsonutil"
	"github.com/fie-storage/fiestorage/internal/app/system/timeouts"
	"github.com/fie-storage/fiestorage/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler handles folder management API requests.
type Handler struct {
	svc      *repo.Service
	activity *activity.Store
	logger   *zap.Logger
}

// NewHandler creates a new foldersapi handler.
func NewHandler(svc *repo.Service, activityStore *activity.Store, logger *zap.Logger) *Handler {
	return &Handler{
		svc:      svc,
		activity: activityStore,
		logger:   logger,
	}
}

// List handles GET / requests, returning the subfolders of ?path=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	path := strings.TrimSpace(r.URL.Query().Get("path"))

	listing, err := h.svc.List(ctx, path)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidPath) {
			jsonutil.BadRequest(w, "invalid path")
			return
		}
		h.logger.Error("folder list failed", zap.String("path", path), zap.Error(err))
		jsonutil.InternalError(w, "failed to list folders")
		return
	}

	jsonutil.OK(w, map[string]any{
		"path":    path,
		"folders": listing.Folders,
	})
}

// Tree handles GET /tree requests, returning every folder record at or
// under ?path= for building a navigation tree in one round trip.
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	path := strings.TrimSpace(r.URL.Query().Get("path"))

	folders, err := h.svc.FolderTree(ctx, path)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidPath) {
			jsonutil.BadRequest(w, "invalid path")
			return
		}
		h.logger.Error("folder tree failed", zap.String("path", path), zap.Error(err))
		jsonutil.InternalError(w, "failed to load folder tree")
		return
	}

	jsonutil.OK(w, map[string]any{
		"path":    path,
		"folders": folders,
	})
}

// Create handles POST / requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor, _ := authz.Actor(r)

	var in struct {
		ParentPath string `json:"parent_path"`
		Name       string `json:"name"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	in.Name = strings.TrimSpace(in.Name)

	work, err := h.svc.CreateFolder(ctx, in.ParentPath, in.Name, actor)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrInvalidPath):
			jsonutil.BadRequest(w, "invalid folder name or parent path")
		case errors.Is(err, repo.ErrDuplicateFolder):
			jsonutil.Error(w, http.StatusConflict, repo.ErrDuplicateFolder.Error())
		default:
			h.logger.Error("create folder failed",
				zap.String("parent", in.ParentPath), zap.String("name", in.Name), zap.Error(err))
			jsonutil.InternalError(w, "failed to create folder")
		}
		return
	}

	h.recordActivity(ctx, actor, activity.EventFolderCreate, work.Path, nil)
	jsonutil.Created(w, work)
}

// Rename handles PUT /rename requests. A mid-walk failure leaves the
// subtree split across the old and new prefixes; the response reports
// both sides so an operator can retry or repair.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	actor, _ := authz.Actor(r)

	var in struct {
		ParentPath string `json:"parent_path"`
		OldName    string `json:"old_name"`
		NewName    string `json:"new_name"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	in.OldName = strings.TrimSpace(in.OldName)
	in.NewName = strings.TrimSpace(in.NewName)

	err := h.svc.RenameFolder(ctx, in.ParentPath, in.OldName, in.NewName, actor)
	if err != nil {
		var partial *repo.PartialRenameError
		switch {
		case errors.As(err, &partial):
			h.logger.Error("rename left subtree split",
				zap.String("old", partial.OldPath), zap.String("new", partial.NewPath),
				zap.Strings("remaining", partial.Remaining), zap.Error(partial.Err))
			jsonutil.JSON(w, http.StatusInternalServerError, map[string]any{
				"error":     "rename partially completed",
				"old_path":  partial.OldPath,
				"new_path":  partial.NewPath,
				"moved":     partial.Moved,
				"remaining": partial.Remaining,
			})
		case errors.Is(err, repo.ErrInvalidPath):
			jsonutil.BadRequest(w, "invalid folder name or parent path")
		case errors.Is(err, repo.ErrNotFound):
			jsonutil.NotFound(w, "folder not found")
		case errors.Is(err, repo.ErrDuplicateFolder):
			jsonutil.Error(w, http.StatusConflict, repo.ErrDuplicateFolder.Error())
		default:
			h.logger.Error("rename folder failed",
				zap.String("old", in.OldName), zap.String("new", in.NewName), zap.Error(err))
			jsonutil.InternalError(w, "failed to rename folder")
		}
		return
	}

	h.recordActivity(ctx, actor, activity.EventFolderRename, in.ParentPath, map[string]any{
		"old_name": in.OldName,
		"new_name": in.NewName,
	})
	jsonutil.NoContent(w)
}

// Delete handles DELETE /?path= requests, removing the folder and
// everything under it.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	actor, _ := authz.Actor(r)

	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		jsonutil.BadRequest(w, "path query parameter is required")
		return
	}

	if err := h.svc.DeleteFolder(ctx, path); err != nil {
		switch {
		case errors.Is(err, repo.ErrInvalidPath):
			jsonutil.BadRequest(w, "invalid path")
		case errors.Is(err, repo.ErrNotFound):
			jsonutil.NotFound(w, "folder not found")
		default:
			h.logger.Error("delete folder failed", zap.String("path", path), zap.Error(err))
			jsonutil.InternalError(w, "failed to delete folder")
		}
		return
	}

	h.recordActivity(ctx, actor, activity.EventFolderDelete, path, nil)
	jsonutil.NoContent(w)
}

func (h *Handler) recordActivity(ctx context.Context, actor repo.Actor, eventType, path string, details map[string]any) {
	if h.activity == nil {
		return
	}
	if err := h.activity.Record(ctx, actor.ID, actor.Name, eventType, path, details); err != nil {
		h.logger.Warn("activity record failed",
			zap.String("event", eventType), zap.Error(err))
	}
}

// Routes returns a router with the folder management endpoints.
// All routes require an admin or teacher session.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)
	r.Use(sessionMgr.RequireRole(models.RoleAdmin, models.RoleTeacher))

	r.Get("/", h.List)
	r.Get("/tree", h.Tree)
	r.Post("/", h.Create)
	r.Put("/rename", h.Rename)
	r.Delete("/", h.Delete)

	return r
}
