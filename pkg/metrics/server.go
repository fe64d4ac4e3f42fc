package metrics

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server exposes /metrics and /health over an internal-only HTTP listener;
// it is never the coordinator's query surface, only its observability one.
type Server struct {
	server *http.Server
	log    *logrus.Logger
}

// NewServer builds a metrics/health server bound to ":"+port.
func NewServer(port string, log *logrus.Logger) *Server {
	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	router.Get("/metrics", promhttp.Handler().ServeHTTP)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    ":" + port,
			Handler: router,
		},
		log: log,
	}
}

// StartAsync starts the listener in a background goroutine, logging (but
// not panicking on) any error other than a clean shutdown.
func (s *Server) StartAsync() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("metrics server stopped unexpectedly")
		}
	}()
}

// Stop gracefully shuts the server down within ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
