package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yuzvak/pdv-service/internal/infrastructure/http/middleware"
	"github.com/yuzvak/pdv-service/internal/infrastructure/monitoring"
)

func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.corsMiddleware)
	r.Use(middleware.NewLoggingMiddleware(s.logger))
	r.Use(middleware.NewRecoveryMiddleware(s.logger))
	r.Use(monitoring.Middleware)

	r.Handle("/metrics", monitoring.Handler())
	r.Get("/health", s.healthHandler.HandleHealth())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.timeoutMiddleware)

		r.Post("/sales", s.saleHandler.HandleFinalizeSale)

		r.Get("/products", s.productHandler.HandleSearch)
		r.Post("/products", s.productHandler.HandleCreate)
		r.Patch("/products/{id}", s.productHandler.HandleUpdate)
		r.Patch("/products/{id}/stock", s.productHandler.HandleAddStock)
	})

	return r
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "300")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	timeout := s.requestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return http.TimeoutHandler(next, timeout, `{"message":"Request timeout","code":"internal_error"}`)
}
