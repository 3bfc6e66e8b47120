package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/extract"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/pipeline"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/storage"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/store"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUnavailable is returned when an endpoint's backend is not configured.
var ErrUnavailable = errors.New("service not configured")

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		document   *pipeline.DocumentError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation),
		errors.Is(err, pipeline.ErrNoDocument),
		errors.Is(err, store.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, extract.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, storage.ErrNotConfigured), errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &document):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
