// Package api exposes the model service over HTTP.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"go.uber.org/zap"

	"github.com/asaidimu/go-daybed/core/model"
	"github.com/asaidimu/go-daybed/core/schema"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// Options configure a Server.
type Options struct {
	// MaxBodyBytes is the largest accepted request body.
	MaxBodyBytes int64
	// CORSOrigins lists the origins allowed by CORS; "*" allows any.
	CORSOrigins []string
	// Version is reported by the hello endpoint.
	Version string
}

// Server wraps the model service and provides the HTTP handlers.
type Server struct {
	service *model.Service
	logger  *zap.Logger
	options Options
	router  chi.Router
}

// NewServer creates a new API server instance.
func NewServer(service *model.Service, logger *zap.Logger, options Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.MaxBodyBytes <= 0 {
		options.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(options.CORSOrigins) == 0 {
		options.CORSOrigins = []string{"*"}
	}

	server := &Server{
		service: service,
		logger:  logger,
		options: options,
		router:  chi.NewRouter(),
	}
	server.setupRoutes()
	return server
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the server wrapped with panic recovery and CORS.
func (s *Server) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins(s.options.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(s.logger)),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(cors(s))
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.accessLog)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeIssues(w, http.StatusNotFound, []schema.Issue{{
			Location: schema.LocationPath,
			Field:    "path",
			Message:  fmt.Sprintf("No route for %s", r.URL.Path),
		}})
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeIssues(w, http.StatusMethodNotAllowed, []schema.Issue{{
			Location: schema.LocationPath,
			Field:    "method",
			Message:  fmt.Sprintf("Method %s is not allowed on %s", r.Method, r.URL.Path),
		}})
	})

	s.router.Get("/", s.handleHello)
	s.router.Get("/definition/{model}", s.handleGetDefinition)
	s.router.Put("/definition/{model}", s.handlePutDefinition)
	s.router.Get("/{model}", s.handleListRecords)
	s.router.Post("/{model}", s.handleCreateRecord)
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, map[string]string{
		"name":    "daybed",
		"version": s.options.Version,
	})
}

func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	definition, err := s.service.Definition(r.Context(), chi.URLParam(r, "model"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeRawJSON(w, http.StatusOK, definition)
}

func (s *Server) handlePutDefinition(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	token, err := s.service.DefineModel(r.Context(), chi.URLParam(r, "model"), body, r.URL.Query().Get("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSONResponse(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	id, err := s.service.CreateRecord(r.Context(), chi.URLParam(r, "model"), body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSONResponse(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListRecords(r.Context(), chi.URLParam(r, "model"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSONResponse(w, http.StatusOK, listResponse{Data: records})
}

// readBody reads the capped request body, answering the request itself when
// the body cannot be read.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.options.MaxBodyBytes))
	if err == nil {
		return body, true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeIssues(w, http.StatusRequestEntityTooLarge, []schema.Issue{{
			Location: schema.LocationBody,
			Field:    "body",
			Message:  fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit),
		}})
		return nil, false
	}

	s.logger.Warn("Failed to read request body", zap.Error(err))
	s.writeIssues(w, http.StatusBadRequest, []schema.Issue{{
		Location: schema.LocationBody,
		Field:    "body",
		Message:  "Could not read request body",
	}})
	return nil, false
}
