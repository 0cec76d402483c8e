package worksapi

import (
	"net/http"

	"github.com/fie-storage/fiestorage/internal/app/system/auth"
	"github.com/fie-storage/fiestorage/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the coursework file API endpoints.
//
// All routes require a signed-in session. Uploads are restricted to
// students, grading to teachers; comment and delete permissions are
// enforced per-handler (author and uploader ownership).
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()

	r.Use(sessionMgr.RequireSignedIn)

	r.Get("/", h.List)

	r.Group(func(gr chi.Router) {
		gr.Use(sessionMgr.RequireRole(models.RoleStudent))
		gr.Post("/", h.Upload)
	})

	r.Route("/{workID}", func(wr chi.Router) {
		wr.Get("/", h.Get)
		wr.Get("/download", h.Download)
		wr.Delete("/", h.Delete)

		wr.Post("/comments", h.AddComment)
		wr.Put("/comments/{commentID}", h.UpdateComment)
		wr.Delete("/comments/{commentID}", h.DeleteComment)

		wr.Group(func(gr chi.Router) {
			gr.Use(sessionMgr.RequireRole(models.RoleTeacher))
			gr.Put("/grade", h.SetGrade)
		})
	})

	return r
}
