package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/topgen/pkg/httputil"
	"github.com/platinummonkey/topgen/pkg/validation"
)

// ServiceName is reported by the health endpoint
const ServiceName = "topgen"

// SystemHandlers serves health and schema information
type SystemHandlers struct {
	gate *validation.SchemaGate
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(gate *validation.SchemaGate) *SystemHandlers {
	return &SystemHandlers{gate: gate}
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.health).Methods("GET")
	router.HandleFunc("/schemas/current", h.currentSchema).Methods("GET")
}

// health handles GET /api/health
func (h *SystemHandlers) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}

// currentSchema handles GET /api/schemas/current
func (h *SystemHandlers) currentSchema(w http.ResponseWriter, r *http.Request) {
	if h.gate == nil {
		httputil.WriteNotFoundError(w, "Schema file not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(h.gate.Raw())
}
