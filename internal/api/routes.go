package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/apiview/internal/api/view"
)

// Handlers groups the views mounted by Routes. A nil Files disables uploads.
type Handlers struct {
	Auth  *AuthHandler
	Users *UserHandler
	Files *FileHandler
}

// Routes registers every view under r. Views are mounted for all methods so
// the dispatcher answers unsupported ones with 405 and an Allow header.
func Routes(d *view.Dispatcher, h Handlers) func(r chi.Router) {
	return func(r chi.Router) {
		r.Handle("/auth/login", d.Handle(h.Auth.LoginView()))
		r.Handle("/auth/register", d.Handle(h.Auth.RegisterView()))

		r.Handle("/basic", d.Handle(BasicView()))
		r.Handle("/me", d.Handle(h.Users.MeView()))
		r.Handle("/users/{"+UserIDParam+"}", d.Handle(h.Users.DetailView()))

		if h.Files != nil {
			r.Handle("/files", d.Handle(h.Files.UploadView()))
			r.Get("/files/*", h.Files.Download(d))
		}
	}
}
