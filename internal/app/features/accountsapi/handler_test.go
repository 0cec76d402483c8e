package accountsapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fie-storage/fiestorage/internal/app/blob"
	users "github.com/fie-storage/fiestorage/internal/app/store/users"
	"github.com/fie-storage/fiestorage/internal/app/system/authutil"
	"github.com/fie-storage/fiestorage/internal/domain/models"
	"github.com/fie-storage/fiestorage/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*Handler, *users.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	store, err := blob.NewLocal(blob.LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:9000/test",
	})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	userStore := users.New(db)
	return NewHandler(userStore, store, zap.NewNop()), userStore
}

func testRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/me", h.Me)
	r.Put("/me/password", h.ChangePassword)
	r.Put("/me/photo", h.UploadPhoto)
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{userID}", h.Get)
	r.Put("/{userID}", h.Update)
	r.Delete("/{userID}", h.Delete)
	return r
}

func do(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// seedUser creates a user directly in the store and returns it with a
// context user matching its identity.
func seedUser(t *testing.T, store *users.Store, role, career, password string) (models.User, testutil.TestUser) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	hash, err := authutil.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := store.Create(ctx, models.User{
		FirstName:    "Ana",
		LastName:     "Torres",
		Email:        role + career + "@test.edu",
		Role:         role,
		Career:       career,
		PasswordHash: &hash,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u, testutil.TestUser{
		ID:     u.ID.Hex(),
		Name:   u.FullName(),
		Email:  u.Email,
		Role:   u.Role,
		Career: u.Career,
	}
}

func TestHandler_CreateAndList(t *testing.T) {
	h, _ := newTestHandler(t)
	router := testRouter(h)
	admin := testutil.AdminUser()

	body := `{"first_name":"Zoe","last_name":"Lam","email":"zoe@test.edu","role":"student","career":"CS","password":"correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = testutil.WithUser(req, admin)
	rec := do(router, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if created.Email != "zoe@test.edu" || created.Status != "active" {
		t.Errorf("unexpected created user: %+v", created)
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Error("password hash leaked into the response")
	}

	// Duplicate email conflicts.
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = testutil.WithUser(req, admin)
	if rec := do(router, req); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", rec.Code)
	}

	// Weak password rejected.
	weak := `{"first_name":"A","last_name":"B","email":"ab@test.edu","role":"student","password":"123"}`
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(weak))
	req = testutil.WithUser(req, admin)
	if rec := do(router, req); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for weak password, got %d", rec.Code)
	}

	// Career filter returns only that career's students.
	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/?career=CS", admin)
	rec = do(router, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "zoe@test.edu") {
		t.Errorf("expected CS student in filtered list, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Update_LastAdminGuard(t *testing.T) {
	h, store := newTestHandler(t)
	router := testRouter(h)
	adminUser, adminCtx := seedUser(t, store, "admin", "", "correct-horse")

	// Demoting the only active admin is refused.
	req := httptest.NewRequest(http.MethodPut, "/"+adminUser.ID.Hex(), strings.NewReader(`{"role":"teacher"}`))
	req = testutil.WithUser(req, adminCtx)
	if rec := do(router, req); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 demoting last admin, got %d", rec.Code)
	}

	// With a second admin it goes through.
	seedUser(t, store, "admin", "second", "correct-horse")
	req = httptest.NewRequest(http.MethodPut, "/"+adminUser.ID.Hex(), strings.NewReader(`{"role":"teacher"}`))
	req = testutil.WithUser(req, adminCtx)
	rec := do(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Role != "teacher" {
		t.Errorf("expected role teacher, got %q", updated.Role)
	}
}

func TestHandler_Delete_LastAdminGuard(t *testing.T) {
	h, store := newTestHandler(t)
	router := testRouter(h)
	adminUser, adminCtx := seedUser(t, store, "admin", "", "correct-horse")

	req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/"+adminUser.ID.Hex(), adminCtx)
	if rec := do(router, req); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 deleting last admin, got %d", rec.Code)
	}

	student, _ := seedUser(t, store, "student", "CS", "correct-horse")
	req = testutil.NewAuthenticatedRequest(http.MethodDelete, "/"+student.ID.Hex(), adminCtx)
	if rec := do(router, req); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 deleting student, got %d", rec.Code)
	}

	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/"+student.ID.Hex(), adminCtx)
	if rec := do(router, req); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestHandler_Me(t *testing.T) {
	h, store := newTestHandler(t)
	router := testRouter(h)
	_, studentCtx := seedUser(t, store, "student", "CS", "correct-horse")

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/me", studentCtx)
	rec := do(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), studentCtx.Email) {
		t.Errorf("expected own email in profile, got %s", rec.Body.String())
	}
}

func TestHandler_ChangePassword(t *testing.T) {
	h, store := newTestHandler(t)
	router := testRouter(h)
	user, userCtx := seedUser(t, store, "teacher", "", "correct-horse")

	// Wrong current password.
	req := httptest.NewRequest(http.MethodPut, "/me/password",
		strings.NewReader(`{"current_password":"wrong","new_password":"battery-staple"}`))
	req = testutil.WithUser(req, userCtx)
	if rec := do(router, req); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong current password, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/me/password",
		strings.NewReader(`{"current_password":"correct-horse","new_password":"battery-staple"}`))
	req = testutil.WithUser(req, userCtx)
	if rec := do(router, req); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	reloaded, err := store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !authutil.CheckPassword("battery-staple", *reloaded.PasswordHash) {
		t.Error("new password does not verify after change")
	}
}

func TestHandler_UploadPhoto(t *testing.T) {
	h, store := newTestHandler(t)
	router := testRouter(h)
	user, userCtx := seedUser(t, store, "student", "CS", "correct-horse")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := map[string][]string{
		"Content-Disposition": {`form-data; name="photo"; filename="me.png"`},
		"Content-Type":        {"image/png"},
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte("\x89PNG fake")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/me/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = testutil.WithUser(req, userCtx)
	rec := do(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	wantKey := "profile-photos/" + user.ID.Hex() + ".png"
	if !strings.Contains(rec.Body.String(), wantKey) {
		t.Errorf("expected photo key %q in response, got %s", wantKey, rec.Body.String())
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	reloaded, err := store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PhotoPath != wantKey {
		t.Errorf("PhotoPath = %q, want %q", reloaded.PhotoPath, wantKey)
	}
}

func TestHandler_UploadPhoto_BadType(t *testing.T) {
	h, store := newTestHandler(t)
	router := testRouter(h)
	_, userCtx := seedUser(t, store, "student", "CS", "correct-horse")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := map[string][]string{
		"Content-Disposition": {`form-data; name="photo"; filename="cv.pdf"`},
		"Content-Type":        {"application/pdf"},
	}
	part, _ := mw.CreatePart(hdr)
	_, _ = part.Write([]byte("%PDF"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPut, "/me/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = testutil.WithUser(req, userCtx)
	if rec := do(router, req); rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415 for non-image photo, got %d", rec.Code)
	}
}
