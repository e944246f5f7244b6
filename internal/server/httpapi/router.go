package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router builds the route tree.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/v1/health", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(s.requireBody).Post("/signup", s.signup)
		r.With(s.limitAttempts("login"), s.requireBody).Post("/login", s.login)
		r.With(s.limitAttempts("verify"), s.requireBody).Post("/verify", s.verifyEmail)
		r.With(s.limitAttempts("verify")).Post("/verify/resend", s.resendVerification)
		r.With(s.requireBody).Post("/refresh", s.refresh)
		r.With(s.requireBody).Post("/logout", s.logout)
		r.With(s.authenticate, s.requireBody).Post("/reset-password", s.resetPassword)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(s.authenticate)
		r.With(s.requireBody).Post("/", s.createUser)

		r.Group(func(r chi.Router) {
			r.Use(s.allowRoles(models.RoleAdmin))
			r.Get("/", s.listUsers)
			r.Get("/{id}", s.getUser)
			r.With(s.requireBody).Patch("/{id}", s.updateUser)
			r.Delete("/{id}", s.deleteUser)
		})
	})

	return r
}

func (s *HTTPServer) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
