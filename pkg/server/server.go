package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sarychdb/sarychdb/pkg/api"
	"github.com/sarychdb/sarychdb/pkg/logger"
	"github.com/sarychdb/sarychdb/pkg/metrics"
)

// RequestIDHeader echoes the id assigned to each request.
const RequestIDHeader = "X-Request-ID"

// Server holds the router and the logger shared by its middleware.
type Server struct {
	router *mux.Router
	logger *zap.Logger
}

// NewServer creates a new instance of Server.
func NewServer(handler *api.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		router: mux.NewRouter(),
		logger: log,
	}

	handler.RegisterRoutes(s.router)
	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	s.router.Use(s.requestLoggerMiddleware)
	s.router.Use(metrics.Middleware)

	// Customize NotFoundHandler to log 404s
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Warn("no route found", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		api.WriteJSONError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})

	return s
}

// requestLoggerMiddleware tags each request with an id, stores a request-scoped
// logger in its context and logs the method, path and duration.
func (s *Server) requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx, reqLogger := logger.With(logger.NewContext(r.Context(), s.logger), zap.String("request_id", requestID))
		next.ServeHTTP(w, r.WithContext(ctx))

		reqLogger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}
