// Package httpapi exposes the FreshKeep REST API over chi.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/RamanVasko/freshkeep/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	log      *zap.Logger
	auth     service.AuthService
	products service.ProductService
	images   *ImageStore
}

// New constructs the API server with injected services. images may be nil
// when uploads are disabled.
func New(log *zap.Logger, auth service.AuthService, products service.ProductService, images *ImageStore) *Server {
	return &Server{log: log, auth: auth, products: products, images: images}
}

// Router builds the full route tree including middleware and the metrics and
// health endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(Recoverer(s.log))
	r.Use(RequestLogger(s.log))
	r.Use(Metrics)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if s.images != nil {
		r.Mount("/static", http.StripPrefix("/static", s.images.FileServer()))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Group(func(r chi.Router) {
				r.Use(s.authenticate)
				r.Post("/logout", s.handleLogout)
				r.Get("/me", s.handleMe)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Route("/products", func(r chi.Router) {
				r.Get("/", s.handleListProducts)
				r.Post("/", s.handleCreateProduct)
				r.Get("/expiring", s.handleListExpiring)
				r.Post("/scan", s.handleScan)
				r.Get("/{id}", s.handleGetProduct)
				r.Put("/{id}", s.handleUpdateProduct)
				r.Delete("/{id}", s.handleDeleteProduct)
			})
			r.Get("/categories", s.handleListCategories)
		})
	})
	return r
}
