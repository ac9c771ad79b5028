package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/asaidimu/go-daybed/core/model"
	"github.com/asaidimu/go-daybed/core/schema"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status string         `json:"status"`
	Errors []schema.Issue `json:"errors"`
}

type listResponse struct {
	Data []json.RawMessage `json:"data"`
}

// statusFor maps a model error kind to its HTTP status.
func statusFor(kind model.Kind) int {
	switch kind {
	case model.KindMetaSchema, model.KindValidation:
		return http.StatusBadRequest
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	modelErr, ok := model.AsError(err)
	if !ok {
		s.logger.Error("Unclassified error", zap.Error(err))
		s.writeIssues(w, http.StatusInternalServerError, []schema.Issue{{
			Location: schema.LocationServer,
			Field:    "server",
			Message:  "Internal server error",
		}})
		return
	}

	status := statusFor(modelErr.Kind)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("model", modelErr.Model), zap.Error(err))
	}
	s.writeIssues(w, status, modelErr.Issues)
}

func (s *Server) writeIssues(w http.ResponseWriter, statusCode int, issues []schema.Issue) {
	s.writeJSONResponse(w, statusCode, ErrorResponse{Status: "error", Errors: issues})
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

func (s *Server) writeRawJSON(w http.ResponseWriter, statusCode int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err := w.Write(raw); err != nil {
		s.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}
