package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/topgen/pkg/httputil"
	"github.com/platinummonkey/topgen/pkg/observability"
	"github.com/platinummonkey/topgen/pkg/validation"
)

// ValidationHandlers handles configuration validation HTTP requests
type ValidationHandlers struct {
	validator *validation.ConfigValidator
}

// NewValidationHandlers creates a new validation handlers instance
func NewValidationHandlers(validator *validation.ConfigValidator) *ValidationHandlers {
	return &ValidationHandlers{
		validator: validator,
	}
}

// RegisterRoutes registers validation routes
func (h *ValidationHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/validate", h.validateConfig).Methods("POST")
}

// validateConfig handles POST /api/validate
func (h *ValidationHandlers) validateConfig(w http.ResponseWriter, r *http.Request) {
	var body any
	if err := httputil.ParseJSON(r, &body); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httputil.WriteJSON(w, status, validationResponse{Errors: []string{err.Error()}})
		return
	}

	req, err := parseConfigRequest(body)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, validationResponse{Errors: []string{err.Error()}})
		return
	}

	result := runValidation(r.Context(), h.validator, req.Config)
	if !result.Valid {
		observability.FromContext(r.Context()).
			WithField("error_count", len(result.Errors)).
			Debug("configuration rejected")
	}

	httputil.WriteSuccess(w, validationResponse{
		Valid:  result.Valid,
		Errors: result.Errors,
	})
}

// runValidation dispatches on the config representation: text is parsed
// as YAML, anything else is treated as a parsed document
func runValidation(ctx context.Context, v *validation.ConfigValidator, config any) *validation.Result {
	if text, ok := config.(string); ok {
		return v.ValidateContext(ctx, []byte(text))
	}
	return v.ValidateDocumentContext(ctx, config)
}
