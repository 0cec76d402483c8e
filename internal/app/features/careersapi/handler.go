// Package careersapi provides the admin JSON API for careers and their
// subjects. Career and subject changes cascade into the folder tree:
// creating a career creates its root folder, renaming one renames the
// folder subtree, and deleting one removes it.
//
// Endpoints (mounted at /api/careers):
//   - GET    /                     - list careers with subjects
//   - POST   /                     - create a career {name}
//   - GET    /{careerID}           - career detail
//   - PUT    /{careerID}           - rename a career {name}
//   - DELETE /{careerID}           - delete a career and its folder tree
//   - POST   /{careerID}/subjects  - add a subject {name}
//   - PUT    /{careerID}/subjects/{subjectID}    - rename a subject {name}
//   - DELETE /{careerID}/subjects/{subjectID}    - remove a subject
package careersapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fie-storage/fiestorage/internal/app/repo"
	"github.com/fie-storage/fiestorage/internal/app/store/careers"
	"github.com/fie-storage/fiestorage/internal/app/system/auth"
	"github.com/fie-storage/fiestorage/internal/app/system/authz"
	"github.com/fie-storage/fiestorage/internal/app/system/jsonutil"
	"github.com/fie-storage/fiestorage/internal/app/system/timeouts"
	"github.com/fie-storage/fiestorage/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler handles career management API requests.
type Handler struct {
	careers *careers.Store
	svc     *repo.Service
	logger  *zap.Logger
}

// NewHandler creates a new careersapi handler.
func NewHandler(careerStore *careers.Store, svc *repo.Service, logger *zap.Logger) *Handler {
	return &Handler{
		careers: careerStore,
		svc:     svc,
		logger:  logger,
	}
}

// Routes returns a router with the career management endpoints.
// All routes require an admin session.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)
	r.Use(sessionMgr.RequireRole(models.RoleAdmin))

	r.Get("/", h.List)
	r.Post("/", h.Create)

	r.Route("/{careerID}", func(cr chi.Router) {
		cr.Get("/", h.Get)
		cr.Put("/", h.Rename)
		cr.Delete("/", h.Delete)

		cr.Post("/subjects", h.AddSubject)
		cr.Put("/subjects/{subjectID}", h.RenameSubject)
		cr.Delete("/subjects/{subjectID}", h.RemoveSubject)
	})

	return r
}

// List handles GET / requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	all, err := h.careers.ListAll(ctx)
	if err != nil {
		h.logger.Error("list careers failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to list careers")
		return
	}
	jsonutil.OK(w, map[string]any{"careers": all})
}

// Create handles POST / requests, creating the career record and its
// root folder.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor, _ := authz.Actor(r)

	var in struct {
		Name string `json:"name"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	in.Name = strings.TrimSpace(in.Name)

	career, err := h.careers.Create(ctx, in.Name)
	if err != nil {
		switch {
		case errors.Is(err, careers.ErrDuplicateCareer):
			jsonutil.Error(w, http.StatusConflict, careers.ErrDuplicateCareer.Error())
		default:
			h.logger.Error("create career failed", zap.String("name", in.Name), zap.Error(err))
			jsonutil.InternalError(w, "failed to create career")
		}
		return
	}

	if _, err := h.svc.CreateFolder(ctx, "", career.Name, actor); err != nil {
		// Roll the record back; a career without a folder is useless.
		if _, derr := h.careers.Delete(ctx, career.ID); derr != nil {
			h.logger.Error("career rollback failed",
				zap.String("name", career.Name), zap.Error(derr))
		}
		if errors.Is(err, repo.ErrInvalidPath) {
			jsonutil.BadRequest(w, "invalid career name")
			return
		}
		h.logger.Error("career folder create failed",
			zap.String("name", career.Name), zap.Error(err))
		jsonutil.InternalError(w, "failed to create career folder")
		return
	}

	jsonutil.Created(w, career)
}

// Get handles GET /{careerID} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	career, ok := h.loadCareer(ctx, w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, career)
}

// Rename handles PUT /{careerID} requests. The folder subtree is moved
// first; the career record follows only when the move fully succeeds.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	actor, _ := authz.Actor(r)

	career, ok := h.loadCareer(ctx, w, r)
	if !ok {
		return
	}

	var in struct {
		Name string `json:"name"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == career.Name {
		jsonutil.OK(w, career)
		return
	}

	if err := h.svc.RenameFolder(ctx, "", career.Name, in.Name, actor); err != nil {
		switch {
		case errors.Is(err, repo.ErrInvalidPath):
			jsonutil.BadRequest(w, "invalid career name")
		case errors.Is(err, repo.ErrDuplicateFolder):
			jsonutil.Error(w, http.StatusConflict, "a folder with that name already exists")
		case errors.Is(err, repo.ErrNotFound):
			// No folder tree yet; record-only rename below.
		default:
			h.logger.Error("career folder rename failed",
				zap.String("old", career.Name), zap.String("new", in.Name), zap.Error(err))
			jsonutil.InternalError(w, "failed to rename career folder")
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return
		}
	}

	if err := h.careers.Rename(ctx, career.ID, in.Name); err != nil {
		h.logger.Error("career record rename failed",
			zap.String("new", in.Name), zap.Error(err))
		jsonutil.InternalError(w, "failed to rename career")
		return
	}

	career.Name = in.Name
	jsonutil.OK(w, career)
}

// Delete handles DELETE /{careerID} requests, removing the career and
// its entire folder subtree.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	career, ok := h.loadCareer(ctx, w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteFolder(ctx, career.Name); err != nil && !errors.Is(err, repo.ErrNotFound) {
		h.logger.Error("career folder delete failed",
			zap.String("name", career.Name), zap.Error(err))
		jsonutil.InternalError(w, "failed to delete career folder")
		return
	}

	if _, err := h.careers.Delete(ctx, career.ID); err != nil {
		h.logger.Error("career record delete failed",
			zap.String("name", career.Name), zap.Error(err))
		jsonutil.InternalError(w, "failed to delete career")
		return
	}

	jsonutil.NoContent(w)
}

// AddSubject handles POST /{careerID}/subjects requests. The subject
// folder is created under the career root.
func (h *Handler) AddSubject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor, _ := authz.Actor(r)

	career, ok := h.loadCareer(ctx, w, r)
	if !ok {
		return
	}

	var in struct {
		Name string `json:"name"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	in.Name = strings.TrimSpace(in.Name)

	subject, err := h.careers.AddSubject(ctx, career.ID, in.Name)
	if err != nil {
		switch {
		case errors.Is(err, careers.ErrDuplicateSubject):
			jsonutil.Error(w, http.StatusConflict, careers.ErrDuplicateSubject.Error())
		default:
			h.logger.Error("add subject failed",
				zap.String("career", career.Name), zap.String("subject", in.Name), zap.Error(err))
			jsonutil.InternalError(w, "failed to add subject")
		}
		return
	}

	if _, err := h.svc.CreateFolder(ctx, career.Name, subject.Name, actor); err != nil {
		if rerr := h.careers.RemoveSubject(ctx, career.ID, subject.ID); rerr != nil {
			h.logger.Error("subject rollback failed",
				zap.String("subject", subject.Name), zap.Error(rerr))
		}
		if errors.Is(err, repo.ErrInvalidPath) {
			jsonutil.BadRequest(w, "invalid subject name")
			return
		}
		h.logger.Error("subject folder create failed",
			zap.String("subject", subject.Name), zap.Error(err))
		jsonutil.InternalError(w, "failed to create subject folder")
		return
	}

	jsonutil.Created(w, subject)
}

// RenameSubject handles PUT /{careerID}/subjects/{subjectID} requests.
func (h *Handler) RenameSubject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	actor, _ := authz.Actor(r)

	career, ok := h.loadCareer(ctx, w, r)
	if !ok {
		return
	}
	subjectID := chi.URLParam(r, "subjectID")

	var in struct {
		Name string `json:"name"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	in.Name = strings.TrimSpace(in.Name)

	var oldName string
	for _, s := range career.Subjects {
		if s.ID == subjectID {
			oldName = s.Name
			break
		}
	}
	if oldName == "" {
		jsonutil.NotFound(w, "subject not found")
		return
	}
	if oldName == in.Name {
		jsonutil.NoContent(w)
		return
	}

	if err := h.svc.RenameFolder(ctx, career.Name, oldName, in.Name, actor); err != nil && !errors.Is(err, repo.ErrNotFound) {
		switch {
		case errors.Is(err, repo.ErrInvalidPath):
			jsonutil.BadRequest(w, "invalid subject name")
		case errors.Is(err, repo.ErrDuplicateFolder):
			jsonutil.Error(w, http.StatusConflict, "a folder with that name already exists")
		default:
			h.logger.Error("subject folder rename failed",
				zap.String("old", oldName), zap.String("new", in.Name), zap.Error(err))
			jsonutil.InternalError(w, "failed to rename subject folder")
		}
		return
	}

	if err := h.careers.RenameSubject(ctx, career.ID, subjectID, in.Name); err != nil {
		if errors.Is(err, careers.ErrSubjectNotFound) {
			jsonutil.NotFound(w, "subject not found")
			return
		}
		h.logger.Error("subject record rename failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to rename subject")
		return
	}

	jsonutil.NoContent(w)
}

// RemoveSubject handles DELETE /{careerID}/subjects/{subjectID}
// requests, removing the subject and its folder subtree.
func (h *Handler) RemoveSubject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	career, ok := h.loadCareer(ctx, w, r)
	if !ok {
		return
	}
	subjectID := chi.URLParam(r, "subjectID")

	var name string
	for _, s := range career.Subjects {
		if s.ID == subjectID {
			name = s.Name
			break
		}
	}
	if name == "" {
		jsonutil.NotFound(w, "subject not found")
		return
	}

	if err := h.svc.DeleteFolder(ctx, career.Name+"/"+name); err != nil && !errors.Is(err, repo.ErrNotFound) {
		h.logger.Error("subject folder delete failed",
			zap.String("subject", name), zap.Error(err))
		jsonutil.InternalError(w, "failed to delete subject folder")
		return
	}

	if err := h.careers.RemoveSubject(ctx, career.ID, subjectID); err != nil {
		if errors.Is(err, careers.ErrSubjectNotFound) || errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "subject not found")
			return
		}
		h.logger.Error("subject record delete failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to remove subject")
		return
	}

	jsonutil.NoContent(w)
}

func (h *Handler) loadCareer(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.Career, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "careerID"))
	if err != nil {
		jsonutil.BadRequest(w, "invalid career ID")
		return nil, false
	}

	career, err := h.careers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "career not found")
			return nil, false
		}
		h.logger.Error("load career failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to load career")
		return nil, false
	}
	return career, true
}
