package handler

import (
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/pizza-api/internal/model"
	"github.com/vyrodovalexey/pizza-api/internal/store"
)

// ProbeHandler serves liveness and readiness checks.
type ProbeHandler struct {
	store  store.Store
	logger *zap.Logger
	ready  atomic.Bool
}

// NewProbeHandler creates a ProbeHandler that reports not ready until
// SetReady(true) is called.
func NewProbeHandler(s store.Store, logger *zap.Logger) *ProbeHandler {
	return &ProbeHandler{
		store:  s,
		logger: logger,
	}
}

// RegisterRoutes registers /health and /ready with the router.
func (h *ProbeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
}

// SetReady flips the readiness state.
func (h *ProbeHandler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Ready reports the current readiness state.
func (h *ProbeHandler) Ready() bool {
	return h.ready.Load()
}

// HealthCheck handles GET /health requests.
func (h *ProbeHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(response))
}

// ReadyCheck handles GET /ready requests.
func (h *ProbeHandler) ReadyCheck(w http.ResponseWriter, _ *http.Request) {
	if !h.ready.Load() {
		writeJSON(w, h.logger, http.StatusServiceUnavailable, NotReadyResponse{Status: "not ready"})
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ReadyResponse{
		Status: "ready",
		Pizzas: h.store.Len(),
	})
}
