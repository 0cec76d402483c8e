package foldersapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fie-storage/fiestorage/internal/app/blob"
	"github.com/fie-storage/fiestorage/internal/app/repo"
	"github.com/fie-storage/fiestorage/internal/app/store/activity"
	workstore "github.com/fie-storage/fiestorage/internal/app/store/works"
	"github.com/fie-storage/fiestorage/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*Handler, *repo.Service) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	store, err := blob.NewLocal(blob.LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:9000/test",
	})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	svc := repo.New(blob.NewTree(store), workstore.New(db, zap.NewNop()), zap.NewNop())
	return NewHandler(svc, activity.New(db), zap.NewNop()), svc
}

func testRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/tree", h.Tree)
	r.Post("/", h.Create)
	r.Put("/rename", h.Rename)
	r.Delete("/", h.Delete)
	return r
}

func do(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateAndList(t *testing.T) {
	h, _ := newTestHandler(t)
	router := testRouter(h)
	admin := testutil.AdminUser()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"parent_path":"","name":"CS"}`))
	req = testutil.WithUser(req, admin)
	rec := do(router, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"parent_path":"CS","name":"Algorithms"}`))
	req = testutil.WithUser(req, admin)
	rec = do(router, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for nested folder, got %d: %s", rec.Code, rec.Body.String())
	}

	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/?path=CS", admin)
	rec = do(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Algorithms") {
		t.Errorf("expected Algorithms in listing, got %s", rec.Body.String())
	}
}

func TestHandler_Tree(t *testing.T) {
	h, svc := newTestHandler(t)
	router := testRouter(h)
	admin := testutil.AdminUser()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	actor := repo.Actor{Name: admin.Name, Email: admin.Email, Role: admin.Role}
	if _, err := svc.CreateFolder(ctx, "", "CS", actor); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.CreateFolder(ctx, "CS", "Algorithms", actor); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.CreateFolder(ctx, "", "Math", actor); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/tree?path=CS", admin)
	rec := do(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"CS/Algorithms"`) {
		t.Errorf("expected nested folder record in tree, got %s", body)
	}
	if strings.Contains(body, `"Math"`) {
		t.Errorf("sibling outside the prefix leaked into the tree: %s", body)
	}

	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/tree?path=profile-photos", admin)
	if rec := do(router, req); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for reserved path, got %d", rec.Code)
	}
}

func TestHandler_Create_Duplicate(t *testing.T) {
	h, _ := newTestHandler(t)
	router := testRouter(h)
	admin := testutil.AdminUser()

	body := `{"parent_path":"","name":"CS"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = testutil.WithUser(req, admin)
	if rec := do(router, req); rec.Code != http.StatusCreated {
		t.Fatalf("first create: got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = testutil.WithUser(req, admin)
	if rec := do(router, req); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate, got %d", rec.Code)
	}
}

func TestHandler_Create_InvalidName(t *testing.T) {
	h, _ := newTestHandler(t)
	router := testRouter(h)

	for _, body := range []string{
		`{"parent_path":"","name":".folder"}`,
		`{"parent_path":"","name":"a/b"}`,
		`{"parent_path":"","name":"  "}`,
		`{"parent_path":"","name":"profile-photos"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req = testutil.WithUser(req, testutil.AdminUser())
		if rec := do(router, req); rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestHandler_Rename(t *testing.T) {
	h, svc := newTestHandler(t)
	router := testRouter(h)
	admin := testutil.AdminUser()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	actor := repo.Actor{Name: admin.Name, Email: admin.Email, Role: admin.Role}
	if _, err := svc.CreateFolder(ctx, "", "CS", actor); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.CreateFolder(ctx, "CS", "Algorithms", actor); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/rename",
		strings.NewReader(`{"parent_path":"CS","old_name":"Algorithms","new_name":"DataStructures"}`))
	req = testutil.WithUser(req, admin)
	rec := do(router, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/?path=CS", admin)
	rec = do(router, req)
	if !strings.Contains(rec.Body.String(), "DataStructures") {
		t.Errorf("expected renamed folder in listing, got %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "Algorithms") {
		t.Errorf("old folder still listed: %s", rec.Body.String())
	}
}

func TestHandler_Rename_Missing(t *testing.T) {
	h, _ := newTestHandler(t)
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodPut, "/rename",
		strings.NewReader(`{"parent_path":"","old_name":"Ghost","new_name":"Solid"}`))
	req = testutil.WithUser(req, testutil.AdminUser())
	if rec := do(router, req); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_Delete(t *testing.T) {
	h, svc := newTestHandler(t)
	router := testRouter(h)
	admin := testutil.AdminUser()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	actor := repo.Actor{Name: admin.Name, Email: admin.Email, Role: admin.Role}
	if _, err := svc.CreateFolder(ctx, "", "CS", actor); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/?path=CS", admin)
	if rec := do(router, req); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/?path=", admin)
	rec := do(router, req)
	if strings.Contains(rec.Body.String(), `"CS"`) {
		t.Errorf("deleted folder still listed: %s", rec.Body.String())
	}

	// Missing path parameter.
	req = testutil.NewAuthenticatedRequest(http.MethodDelete, "/", admin)
	if rec := do(router, req); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without path, got %d", rec.Code)
	}
}
