// Package httpapi exposes the board repository over a JSON HTTP API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"flowboard/internal/service"
)

// maxImportBytes caps request bodies for saves and imports.
const maxImportBytes = 32 << 20

// Router wires the board handlers behind the shared middleware.
type Router struct {
	boards         *service.BoardService
	logger         *zap.Logger
	allowedOrigins []string
}

func NewRouter(boards *service.BoardService, logger *zap.Logger, allowedOrigins []string) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Router{boards: boards, logger: logger, allowedOrigins: allowedOrigins}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(rt.logger))
	router.Use(chimiddleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	h := &boardHandler{boards: rt.boards, logger: rt.logger}

	router.Get("/health", h.health)
	router.Get("/save-status", h.saveStatus)
	router.Get("/storage/usage", h.storageUsage)

	router.Route("/boards", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.save)
		r.Get("/name-exists", h.nameExists)
		r.Post("/import", h.importBoard)
		r.Post("/cleanup", h.cleanup)

		r.Route("/{boardID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Delete("/", h.delete)
			r.Get("/graph", h.graph)
			r.Get("/export", h.export)
			r.Post("/merge-preview", h.mergePreview)
		})
	})

	return router
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
