package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/textweather/internal/controller"
	"github.com/kjstillabower/textweather/internal/lifecycle"
	"github.com/kjstillabower/textweather/internal/traffic"
	"github.com/kjstillabower/textweather/internal/validation"
)

//go:embed static/index.html
var indexHTML []byte

var validate = validator.New()

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int // 0 when rate limiter disabled
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	// StoragePing, when set, is called to check that the favorites slot is reachable.
	StoragePing func(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	ctrl             *controller.Controller
	healthConfig     *HealthConfig
	logger           *zap.Logger
	searchMinLength  int
	searchMaxLength  int
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(
	ctrl *controller.Controller,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	searchMinLength, searchMaxLength int,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		ctrl:            ctrl,
		healthConfig:    healthConfig,
		logger:          logger,
		searchMinLength: searchMinLength,
		searchMaxLength: searchMaxLength,
	}
}

type searchRequest struct {
	City  string `json:"city" validate:"required"`
	State string `json:"state" validate:"required"`
}

// Index handles GET /.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

// GetView handles GET /api/view.
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.View())
}

// PostSetup handles POST /api/setup.
func (h *Handler) PostSetup(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.ShowSetup())
}

// PostSearch handles POST /api/search.
func (h *Handler) PostSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_SEARCH", "request body must be JSON with city and state")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_SEARCH", "city and state are required")
		return
	}
	city, err := validation.ValidateSearchField(req.City, h.searchMinLength, h.searchMaxLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_SEARCH", "city: "+err.Error())
		return
	}
	state, err := validation.ValidateSearchField(req.State, h.searchMinLength, h.searchMaxLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_SEARCH", "state: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Search(r.Context(), city, state))
}

// PostResult handles POST /api/results/{index}.
func (h *Handler) PostResult(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_RESULT", "result index must be an integer")
		return
	}
	view, err := h.ctrl.PickResult(r.Context(), index)
	if errors.Is(err, controller.ErrNoSuchResult) {
		writeError(w, r, http.StatusBadRequest, "INVALID_RESULT", "no search result at index "+strconv.Itoa(index))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// PostTab handles POST /api/tabs/{id}.
func (h *Handler) PostTab(w http.ResponseWriter, r *http.Request) {
	view, err := h.ctrl.SwitchTab(mux.Vars(r)["id"])
	if errors.Is(err, controller.ErrNoSuchFavorite) {
		writeError(w, r, http.StatusNotFound, "FAVORITE_NOT_FOUND", "no favorite with that id")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// PostTabMenu handles POST /api/tabs/{id}/menu.
func (h *Handler) PostTabMenu(w http.ResponseWriter, r *http.Request) {
	view, err := h.ctrl.OpenContextMenu(mux.Vars(r)["id"])
	if errors.Is(err, controller.ErrNoSuchFavorite) {
		writeError(w, r, http.StatusNotFound, "FAVORITE_NOT_FOUND", "no favorite with that id")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// PostClick handles POST /api/click.
func (h *Handler) PostClick(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.PrimaryClick())
}

// PostMenuDelete handles POST /api/menu/delete.
func (h *Handler) PostMenuDelete(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.DeleteTarget(r.Context()))
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	storageErr := h.pingStorage(r.Context())
	result := h.computeHealthStatus(storageErr)

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"gateway": "healthy"}
	if result.reason == "error_rate_breach" {
		checks["gateway"] = "unhealthy"
	}
	if h.healthConfig != nil && h.healthConfig.StoragePing != nil {
		if storageErr == nil {
			checks["storage"] = "healthy"
		} else {
			checks["storage"] = "unhealthy"
		}
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "textweather",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) pingStorage(ctx context.Context) error {
	if h.healthConfig == nil || h.healthConfig.StoragePing == nil {
		return nil
	}
	return h.healthConfig.StoragePing(ctx)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > storage unreachable > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus(storageErr error) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if storageErr != nil {
		return healthResult{"degraded", http.StatusServiceUnavailable, "storage_unreachable"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	// Overloaded when /api traffic in the window exceeds the configured share of limiter capacity.
	if h.healthConfig.RateLimitRPS > 0 && h.healthConfig.OverloadWindow > 0 {
		threshold := float64(h.healthConfig.RateLimitRPS) * h.healthConfig.OverloadWindow.Seconds() * float64(h.healthConfig.OverloadThresholdPct) / 100
		if float64(traffic.RequestCount(h.healthConfig.OverloadWindow)) > threshold {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		failures, total := traffic.UpstreamErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := float64(failures) * 100 / float64(total)
			if pct >= float64(h.healthConfig.DegradedErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
			}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v, ok := r.Context().Value("correlation_id").(string); ok {
		corrID = v
	}
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("request rejected", zap.String("code", code), zap.String("message", message))
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
