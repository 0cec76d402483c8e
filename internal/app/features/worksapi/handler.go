// Package worksapi provides the JSON API for browsing and managing
// coursework files.
//
// Endpoints (mounted at /api/works):
//   - GET    /                       - list folder contents (?path=)
//   - POST   /                       - upload a file (multipart, students)
//   - GET    /{workID}               - file detail (comments, grade)
//   - GET    /{workID}/download      - redirect to a signed download URL
//   - DELETE /{workID}               - delete a file (admin or uploader)
//   - POST   /{workID}/comments      - add a comment
//   - PUT    /{workID}/comments/{commentID} - edit own comment
//   - DELETE /{workID}/comments/{commentID} - delete own comment
//   - PUT    /{workID}/grade         - set or overwrite the grade (teachers)
package worksapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fie-storage/fiestorage/internal/app/repo"
	"github.com/fie-storage/fiestorage/internal/app/store/activity"
	workstore "github.com/fie-storage/fiestorage/internal/app/store/works"
	"github.com/fie-storage/fiestorage/internal/app/system/auth"
	"github.com/fie-storage/fiestorage/internal/app/system/authz"
	"github.com/fie-storage/fiestorage/internal/app/system/htmlsanitize"
	"github.com/fie-storage/fiestorage/internal/app/system/jsonutil"
	"github.com/fie-storage/fiestorage/internal/app/system/timeouts"
	"github.com/fie-storage/fiestorage/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxUploadSize caps multipart parsing for file uploads.
const maxUploadSize = 32 << 20 // 32 MB

// Handler handles coursework file API requests.
type Handler struct {
	svc      *repo.Service
	activity *activity.Store
	logger   *zap.Logger
}

// NewHandler creates a new worksapi handler.
func NewHandler(svc *repo.Service, activityStore *activity.Store, logger *zap.Logger) *Handler {
	return &Handler{
		svc:      svc,
		activity: activityStore,
		logger:   logger,
	}
}

// List handles GET / requests. The ?path= query selects the folder;
// empty path lists the career roots.
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
		h.logger.Error("list failed", zap.String("path", path), zap.Error(err))
		jsonutil.InternalError(w, "failed to list folder")
		return
	}

	jsonutil.OK(w, map[string]any{
		"path":    path,
		"folders": listing.Folders,
		"items":   listing.Items,
	})
}

// Upload handles POST / requests. Students upload one file per request
// into {career}/{subject}/{academic_year}; the career must be their own.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	actor, ok := authz.Actor(r)
	if !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return
	}
	sessionUser, _ := auth.CurrentUser(r)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		jsonutil.BadRequest(w, "file too large (max 32 MB)")
		return
	}

	career := strings.TrimSpace(r.FormValue("career"))
	subject := strings.TrimSpace(r.FormValue("subject"))
	year := strings.TrimSpace(r.FormValue("academic_year"))

	if sessionUser != nil && sessionUser.Career != "" && career != sessionUser.Career {
		jsonutil.Forbidden(w, "students may only upload into their own career")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonutil.BadRequest(w, "missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	work, err := h.svc.UploadFile(ctx, repo.UploadInput{
		Career:       career,
		Subject:      subject,
		AcademicYear: year,
		FileName:     header.Filename,
		Content:      file,
		Size:         header.Size,
		ContentType:  contentType,
		Actor:        actor,
	})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrInvalidPath):
			jsonutil.BadRequest(w, "invalid career, subject, year, or file name")
		case errors.Is(err, repo.ErrUnsupportedFileType):
			jsonutil.Error(w, http.StatusUnsupportedMediaType, repo.ErrUnsupportedFileType.Error())
		default:
			h.logger.Error("upload failed",
				zap.String("file", header.Filename), zap.Error(err))
			jsonutil.InternalError(w, "failed to upload file")
		}
		return
	}

	h.recordActivity(ctx, actor, activity.EventUpload, work.Path, map[string]any{
		"size":         work.Size,
		"content_type": work.ContentType,
	})
	jsonutil.Created(w, work)
}

// Get handles GET /{workID} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	work, ok := h.loadWork(ctx, w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, work)
}

// Download handles GET /{workID}/download requests by redirecting to a
// freshly signed blob URL.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	work, ok := h.loadWork(ctx, w, r)
	if !ok {
		return
	}
	if work.IsFolder() || work.DownloadURL == "" {
		jsonutil.NotFound(w, "no downloadable content")
		return
	}
	http.Redirect(w, r, work.DownloadURL, http.StatusFound)
}

// Delete handles DELETE /{workID} requests. Admins may delete any file;
// students may delete their own uploads.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor, _ := authz.Actor(r)

	work, ok := h.loadWork(ctx, w, r)
	if !ok {
		return
	}

	if !authz.IsAdmin(r) && work.UploadedBy != actor.ID {
		jsonutil.Forbidden(w, "only admins or the uploader may delete a file")
		return
	}

	if err := h.svc.DeleteFile(ctx, work.Path, work.ID); err != nil {
		h.logger.Error("delete failed", zap.String("path", work.Path), zap.Error(err))
		jsonutil.InternalError(w, "failed to delete file")
		return
	}

	h.recordActivity(ctx, actor, activity.EventFileDelete, work.Path, nil)
	jsonutil.NoContent(w)
}

// AddComment handles POST /{workID}/comments requests.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, _ := authz.Actor(r)

	workID, ok := workIDParam(w, r)
	if !ok {
		return
	}

	text, ok := decodeCommentText(w, r)
	if !ok {
		return
	}

	comment, err := h.svc.AddComment(ctx, workID, text, actor)
	if err != nil {
		h.writeCommentError(w, r, err)
		return
	}

	h.recordActivity(ctx, actor, activity.EventCommentAdd, "", map[string]any{
		"work_id":    workID.Hex(),
		"comment_id": comment.ID,
	})
	jsonutil.Created(w, comment)
}

// UpdateComment handles PUT /{workID}/comments/{commentID} requests.
// Only the comment's author may edit it.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, _ := authz.Actor(r)

	workID, ok := workIDParam(w, r)
	if !ok {
		return
	}
	commentID := chi.URLParam(r, "commentID")

	text, ok := decodeCommentText(w, r)
	if !ok {
		return
	}

	if err := h.svc.UpdateComment(ctx, workID, commentID, text, actor); err != nil {
		h.writeCommentError(w, r, err)
		return
	}

	h.recordActivity(ctx, actor, activity.EventCommentUpdate, "", map[string]any{
		"work_id":    workID.Hex(),
		"comment_id": commentID,
	})
	jsonutil.NoContent(w)
}

// DeleteComment handles DELETE /{workID}/comments/{commentID} requests.
// Only the comment's author may delete it.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, _ := authz.Actor(r)

	workID, ok := workIDParam(w, r)
	if !ok {
		return
	}
	commentID := chi.URLParam(r, "commentID")

	if err := h.svc.DeleteComment(ctx, workID, commentID, actor); err != nil {
		h.writeCommentError(w, r, err)
		return
	}

	h.recordActivity(ctx, actor, activity.EventCommentDelete, "", map[string]any{
		"work_id":    workID.Hex(),
		"comment_id": commentID,
	})
	jsonutil.NoContent(w)
}

// SetGrade handles PUT /{workID}/grade requests. Score 0 clears the
// grade back to "ungraded"; re-grading overwrites.
func (h *Handler) SetGrade(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, _ := authz.Actor(r)

	workID, ok := workIDParam(w, r)
	if !ok {
		return
	}

	var in struct {
		Score int `json:"score"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	grade, err := h.svc.SetGrade(ctx, workID, in.Score, actor)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrInvalidGrade):
			jsonutil.BadRequest(w, err.Error())
		case errors.Is(err, repo.ErrNotFound):
			jsonutil.NotFound(w, "file not found")
		default:
			h.logger.Error("set grade failed",
				zap.String("work_id", workID.Hex()), zap.Error(err))
			jsonutil.InternalError(w, "failed to set grade")
		}
		return
	}

	h.recordActivity(ctx, actor, activity.EventGradeSet, "", map[string]any{
		"work_id": workID.Hex(),
		"score":   in.Score,
	})
	jsonutil.OK(w, grade)
}

// loadWork resolves the {workID} URL parameter to a file record, writing
// the error response itself when the ID is malformed or unknown.
func (h *Handler) loadWork(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.Work, bool) {
	workID, ok := workIDParam(w, r)
	if !ok {
		return nil, false
	}

	work, err := h.svc.GetWork(ctx, workID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			jsonutil.NotFound(w, "file not found")
			return nil, false
		}
		h.logger.Error("load work failed",
			zap.String("work_id", workID.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "failed to load file")
		return nil, false
	}
	return work, true
}

func workIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "workID"))
	if err != nil {
		jsonutil.BadRequest(w, "invalid work ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

// decodeCommentText reads and sanitizes the comment body from the
// request, writing the error response on failure.
func decodeCommentText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var in struct {
		Text string `json:"text"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return "", false
	}

	text := htmlsanitize.Text(in.Text)
	if text == "" {
		jsonutil.BadRequest(w, "comment text is required")
		return "", false
	}
	return text, true
}

func (h *Handler) writeCommentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, workstore.ErrCommentNotFound):
		jsonutil.NotFound(w, "comment not found or not yours")
	case errors.Is(err, repo.ErrNotFound):
		jsonutil.NotFound(w, "file not found")
	default:
		h.logger.Error("comment operation failed", zap.Error(err))
		jsonutil.InternalError(w, "comment operation failed")
	}
}

// recordActivity writes an activity event, logging but not surfacing
// failures; the primary operation already succeeded.
func (h *Handler) recordActivity(ctx context.Context, actor repo.Actor, eventType, path string, details map[string]any) {
	if h.activity == nil {
		return
	}
	if err := h.activity.Record(ctx, actor.ID, actor.Name, eventType, path, details); err != nil {
		h.logger.Warn("activity record failed",
			zap.String("event", eventType), zap.Error(err))
	}
}
