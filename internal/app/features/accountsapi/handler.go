// Package accountsapi provides the JSON API for user accounts: admin
// user management plus the signed-in user's own profile, including the
// profile photo stored in the reserved profile-photos blob area.
//
// Endpoints (mounted at /api/accounts):
//   - GET    /            - list users (admin; ?career= filters students)
//   - POST   /            - create a user (admin)
//   - GET    /{userID}    - user detail (admin)
//   - PUT    /{userID}    - update a user (admin)
//   - DELETE /{userID}    - delete a user (admin; last active admin is kept)
//   - GET    /me          - own profile
//   - PUT    /me/password - change own password {current_password, new_password}
//   - PUT    /me/photo    - upload own profile photo (multipart, images only)
package accountsapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fie-storage/fiestorage/internal/app/blob"
	users "github.com/fie-storage/fiestorage/internal/app/store/users"
	"github.com/fie-storage/fiestorage/internal/app/system/auth"
	"github.com/fie-storage/fiestorage/internal/app/system/authutil"
	"github.com/fie-storage/fiestorage/internal/app/system/authz"
	"github.com/fie-storage/fiestorage/internal/app/system/jsonutil"
	"github.com/fie-storage/fiestorage/internal/app/system/normalize"
	"github.com/fie-storage/fiestorage/internal/app/system/status"
	"github.com/fie-storage/fiestorage/internal/app/system/timeouts"
	"github.com/fie-storage/fiestorage/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// maxPhotoSize caps multipart parsing for profile photo uploads.
const maxPhotoSize = 8 << 20 // 8 MB

// photoTypes are the content types accepted for profile photos.
var photoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// Handler handles account API requests.
type Handler struct {
	users  *users.Store
	photos blob.Store
	logger *zap.Logger
}

// NewHandler creates a new accountsapi handler. photos is the raw blob
// store; profile photos live outside the repository tree.
func NewHandler(userStore *users.Store, photos blob.Store, logger *zap.Logger) *Handler {
	return &Handler{
		users:  userStore,
		photos: photos,
		logger: logger,
	}
}

// Routes returns a router with the account endpoints. /me is available
// to every signed-in user; everything else requires an admin session.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)

	r.Get("/me", h.Me)
	r.Put("/me/password", h.ChangePassword)
	r.Put("/me/photo", h.UploadPhoto)

	r.Group(func(gr chi.Router) {
		gr.Use(sessionMgr.RequireRole(models.RoleAdmin))
		gr.Get("/", h.List)
		gr.Post("/", h.Create)
		gr.Get("/{userID}", h.Get)
		gr.Put("/{userID}", h.Update)
		gr.Delete("/{userID}", h.Delete)
	})

	return r
}

// List handles GET / requests. The optional ?career= filter returns the
// active students of one career.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	career := normalize.QueryParam(r.URL.Query().Get("career"))

	var (
		list []models.User
		err  error
	)
	if career != "" {
		list, err = h.users.ListByCareer(ctx, career)
	} else {
		list, err = h.users.ListAll(ctx)
	}
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to list users")
		return
	}

	jsonutil.OK(w, map[string]any{"users": list})
}

// CreateUserInput is the admin user-creation payload.
type CreateUserInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Career    string `json:"career"`
	Password  string `json:"password"`
}

// Create handles POST / requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var in CreateUserInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	if err := authutil.ValidatePassword(in.Password); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.logger.Error("password hash failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to create user")
		return
	}

	user, err := h.users.Create(ctx, models.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		Role:         in.Role,
		Career:       strings.TrimSpace(in.Career),
		PasswordHash: &hash,
	})
	if err != nil {
		switch {
		case errors.Is(err, users.ErrDuplicateEmail):
			jsonutil.Error(w, http.StatusConflict, "a user with that email already exists")
		default:
			jsonutil.BadRequest(w, err.Error())
		}
		return
	}

	jsonutil.Created(w, user)
}

// Get handles GET /{userID} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, ok := h.loadUser(ctx, w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, user)
}

// UpdateUserInput is the admin user-update payload; nil fields are left
// unchanged.
type UpdateUserInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Role      *string `json:"role"`
	Status    *string `json:"status"`
	Career    *string `json:"career"`
}

// Update handles PUT /{userID} requests.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, ok := h.loadUser(ctx, w, r)
	if !ok {
		return
	}

	var in UpdateUserInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	// Demoting or disabling the last active admin would lock everyone
	// out of user management.
	demotes := in.Role != nil && *in.Role != models.RoleAdmin
	disables := in.Status != nil && *in.Status != status.Active
	if user.Role == models.RoleAdmin && (demotes || disables) {
		count, err := h.users.CountActiveAdmins(ctx)
		if err != nil {
			h.logger.Error("count admins failed", zap.Error(err))
			jsonutil.InternalError(w, "failed to update user")
			return
		}
		if count <= 1 {
			jsonutil.Error(w, http.StatusConflict, "cannot demote or disable the last active admin")
			return
		}
	}

	err := h.users.Update(ctx, user.ID, users.UpdateInput{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Role:      in.Role,
		Status:    in.Status,
		Career:    in.Career,
	})
	if err != nil {
		switch {
		case errors.Is(err, users.ErrDuplicateEmail):
			jsonutil.Error(w, http.StatusConflict, "a user with that email already exists")
		case errors.Is(err, mongo.ErrNoDocuments):
			jsonutil.NotFound(w, "user not found")
		default:
			jsonutil.BadRequest(w, err.Error())
		}
		return
	}

	updated, err := h.users.GetByID(ctx, user.ID)
	if err != nil {
		h.logger.Error("reload user failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to load updated user")
		return
	}
	jsonutil.OK(w, updated)
}

// Delete handles DELETE /{userID} requests.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, ok := h.loadUser(ctx, w, r)
	if !ok {
		return
	}

	if user.Role == models.RoleAdmin {
		count, err := h.users.CountActiveAdmins(ctx)
		if err != nil {
			h.logger.Error("count admins failed", zap.Error(err))
			jsonutil.InternalError(w, "failed to delete user")
			return
		}
		if count <= 1 {
			jsonutil.Error(w, http.StatusConflict, "cannot delete the last active admin")
			return
		}
	}

	if _, err := h.users.Delete(ctx, user.ID); err != nil {
		h.logger.Error("delete user failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to delete user")
		return
	}

	if user.PhotoPath != "" {
		if err := h.photos.Delete(ctx, user.PhotoPath); err != nil {
			h.logger.Warn("profile photo cleanup failed",
				zap.String("key", user.PhotoPath), zap.Error(err))
		}
	}

	jsonutil.NoContent(w)
}

// Me handles GET /me requests, returning the caller's own record.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, ok := h.currentUser(ctx, w, r)
	if !ok {
		return
	}

	resp := map[string]any{"user": user}
	if user.PhotoPath != "" {
		resp["photo_url"] = h.photos.URL(user.PhotoPath)
	}
	jsonutil.OK(w, resp)
}

// ChangePassword handles PUT /me/password requests.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, ok := h.currentUser(ctx, w, r)
	if !ok {
		return
	}

	var in struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	if user.PasswordHash == nil || !authutil.CheckPassword(in.CurrentPassword, *user.PasswordHash) {
		jsonutil.Forbidden(w, "current password is incorrect")
		return
	}
	if err := authutil.ValidatePassword(in.NewPassword); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}

	hash, err := authutil.HashPassword(in.NewPassword)
	if err != nil {
		h.logger.Error("password hash failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to change password")
		return
	}
	if err := h.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		h.logger.Error("password update failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to change password")
		return
	}

	jsonutil.NoContent(w)
}

// UploadPhoto handles PUT /me/photo requests. The photo is stored at
// profile-photos/{userID}{ext}, one photo per user; re-uploads replace.
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, ok := h.currentUser(ctx, w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		jsonutil.BadRequest(w, "photo too large (max 8 MB)")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		jsonutil.BadRequest(w, "missing photo field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	ext, allowed := photoTypes[contentType]
	if !allowed {
		jsonutil.Error(w, http.StatusUnsupportedMediaType, "profile photos must be JPEG, PNG, or GIF")
		return
	}

	key := "profile-photos/" + user.ID.Hex() + ext
	err = h.photos.Put(ctx, key, file, header.Size, &blob.PutOptions{
		ContentType: contentType,
	})
	if err != nil {
		h.logger.Error("photo upload failed", zap.String("key", key), zap.Error(err))
		jsonutil.InternalError(w, "failed to store photo")
		return
	}

	// A changed extension leaves the old object behind; remove it.
	if user.PhotoPath != "" && user.PhotoPath != key {
		if err := h.photos.Delete(ctx, user.PhotoPath); err != nil {
			h.logger.Warn("stale photo cleanup failed",
				zap.String("key", user.PhotoPath), zap.Error(err))
		}
	}

	if err := h.users.Update(ctx, user.ID, users.UpdateInput{PhotoPath: &key}); err != nil {
		h.logger.Error("photo path update failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to save photo reference")
		return
	}

	jsonutil.OK(w, map[string]string{
		"photo_path": key,
		"photo_url":  h.photos.URL(key),
	})
}

// currentUser loads the caller's full user record from the session
// identity, writing the error response itself on failure.
func (h *Handler) currentUser(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	_, _, id, ok := authz.UserCtx(r)
	if !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return nil, false
	}

	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.Unauthorized(w, "account no longer exists")
			return nil, false
		}
		h.logger.Error("load current user failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to load profile")
		return nil, false
	}
	return user, true
}

func (h *Handler) loadUser(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		jsonutil.BadRequest(w, "invalid user ID")
		return nil, false
	}

	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "user not found")
			return nil, false
		}
		h.logger.Error("load user failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to load user")
		return nil, false
	}
	return user, true
}
