package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/logger"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/pipeline"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/queue"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// AnalyzeRequest is the analyze payload. Domain is the role name.
type AnalyzeRequest struct {
	FileKey string `json:"fileKey" validate:"required"`
	Domain  string `json:"domain" validate:"required"`
	JD      string `json:"jd" validate:"required"`
}

// EnqueueResponse acknowledges an asynchronous analysis.
type EnqueueResponse struct {
	ID     string       `json:"id"`
	Status queue.Status `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoles(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string][]string{"roles": s.roles.Roles()})
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	if s.uploads == nil {
		s.errorResponse(w, ErrUnavailable)
		return
	}

	q := r.URL.Query()
	upload, err := s.uploads.PresignUpload(r.Context(), q.Get("ext"), q.Get("contentType"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, upload)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeAnalyzeRequest(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	report, err := s.analyzer.AnalyzeDocument(r.Context(), pipeline.DocumentRequest{
		Key:            req.FileKey,
		Role:           req.Domain,
		JobDescription: req.JD,
	})
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	if s.reports != nil {
		if err := s.reports.Save(r.Context(), report); err != nil {
			s.logger.Warn("failed to save analysis", append(logger.AnalysisFields(report.ID, report.Role), zap.Error(err))...)
		}
	}

	s.jsonResponse(w, http.StatusOK, report)
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		s.errorResponse(w, ErrUnavailable)
		return
	}

	req, err := s.decodeAnalyzeRequest(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	id, err := s.queue.Enqueue(r.Context(), queue.Message{FileKey: req.FileKey, Domain: req.Domain, JD: req.JD})
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusAccepted, EnqueueResponse{ID: id, Status: queue.StatusQueued})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		s.errorResponse(w, ErrUnavailable)
		return
	}

	report, err := s.reports.Latest(r.Context())
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		s.errorResponse(w, ErrUnavailable)
		return
	}

	report, err := s.reports.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

func (s *Server) decodeAnalyzeRequest(r *http.Request) (AnalyzeRequest, error) {
	var req AnalyzeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return req, &ErrValidation{Field: "body", Message: "invalid JSON"}
	}

	req.FileKey = strings.TrimSpace(req.FileKey)
	req.Domain = strings.TrimSpace(req.Domain)

	if err := s.validator.Struct(req); err != nil {
		return req, validationError(err)
	}
	return req, nil
}

func validationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return &ErrValidation{Field: ve.Field(), Message: ve.Tag()}
	}
	return &ErrValidation{Field: "request", Message: "invalid request"}
}
