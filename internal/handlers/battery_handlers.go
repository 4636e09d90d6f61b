package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"battery-platform/internal/models"
	"battery-platform/internal/services"
	"battery-platform/pkg/logging"
	"battery-platform/pkg/metrics"
)

// maxBodyBytes bounds request bodies; requests are a handful of numbers
const maxBodyBytes = 1 << 20

// HealthChecker reports whether a dependency is usable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// BatteryHandler handles the battery API endpoints
type BatteryHandler struct {
	cycleLife  *services.CycleLifeService
	impact     *services.ImpactService
	validation *services.ValidationService
	health     HealthChecker
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewBatteryHandler creates a new battery handler. validation and health may be nil
// when the service runs without a database.
func NewBatteryHandler(
	cycleLife *services.CycleLifeService,
	impact *services.ImpactService,
	validation *services.ValidationService,
	health HealthChecker,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *BatteryHandler {
	return &BatteryHandler{
		cycleLife:  cycleLife,
		impact:     impact,
		validation: validation,
		health:     health,
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Field   string `json:"field,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// ListResponse wraps list payloads
type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int         `json:"total"`
}

// ImpactRequest is the body of POST /api/impact
type ImpactRequest struct {
	BinderType    string  `json:"binder_type"`
	SolventType   string  `json:"solvent_type"`
	DryingTempC   float64 `json:"drying_temp_c"`
	DryingTimeMin float64 `json:"drying_time_min"`
	LoadingMass   float64 `json:"loading_mass"`
}

// Condition converts the request into a process condition
func (req ImpactRequest) Condition() (models.ProcessCondition, error) {
	solvent, err := models.ParseSolvent(req.SolventType)
	if err != nil {
		return models.ProcessCondition{}, err
	}
	return models.ProcessCondition{
		Binder:        models.ParseBinder(req.BinderType),
		Solvent:       solvent,
		DryingTempC:   req.DryingTempC,
		DryingTimeMin: req.DryingTimeMin,
		LoadingMass:   req.LoadingMass,
	}, nil
}

// ListProfiles handles GET /api/profiles
func (h *BatteryHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/profiles"
	defer h.observe(endpoint, time.Now())

	profiles := h.cycleLife.Profiles()
	h.sendJSON(w, r, endpoint, ListResponse{Data: profiles, Total: len(profiles)}, http.StatusOK)
}

// SimulateCycleLife handles POST /api/cycle-life
func (h *BatteryHandler) SimulateCycleLife(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/cycle-life"
	defer h.observe(endpoint, time.Now())

	var req services.CycleLifeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.sendError(w, r, endpoint, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.cycleLife.Simulate(r.Context(), req)
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}

	h.sendJSON(w, r, endpoint, report, http.StatusOK)
}

// EstimateImpact handles POST /api/impact?method=rules|surrogate
func (h *BatteryHandler) EstimateImpact(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/impact"
	defer h.observe(endpoint, time.Now())

	var req ImpactRequest
	if err := h.decode(w, r, &req); err != nil {
		h.sendError(w, r, endpoint, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	cond, err := req.Condition()
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}

	report, err := h.impact.Estimate(r.Context(), cond, r.URL.Query().Get("method"))
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}

	h.sendJSON(w, r, endpoint, report, http.StatusOK)
}

// ListSamples handles GET /api/validation/samples
func (h *BatteryHandler) ListSamples(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/validation/samples"
	defer h.observe(endpoint, time.Now())

	if h.validation == nil {
		h.sendServiceError(w, r, endpoint, models.ErrNoData)
		return
	}

	samples, err := h.validation.ListSamples(r.Context())
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}

	h.sendJSON(w, r, endpoint, ListResponse{Data: samples, Total: len(samples)}, http.StatusOK)
}

// GetSample handles GET /api/validation/samples/{sample_id}
func (h *BatteryHandler) GetSample(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/validation/samples/{sample_id}"
	defer h.observe(endpoint, time.Now())

	if h.validation == nil {
		h.sendServiceError(w, r, endpoint, models.ErrNoData)
		return
	}

	comparison, err := h.validation.Compare(r.Context(), mux.Vars(r)["sample_id"])
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}

	h.sendJSON(w, r, endpoint, comparison, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *BatteryHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"surrogate": h.impact.SurrogateAvailable(),
		"baseline":  h.impact.Baseline().Source,
	}
	code := http.StatusOK

	if h.health != nil {
		if err := h.health.HealthCheck(ctx); err != nil {
			h.logger.Warn(ctx, "[HEALTH_CHECK] Dependency unhealthy", logging.Fields{
				"error": err.Error(),
			})
			status["status"] = "unhealthy"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, r, "/health", status, code)
}

// observe records the request duration for endpoint
func (h *BatteryHandler) observe(endpoint string, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// decode reads a JSON body. An empty body leaves dst at its zero value.
func (h *BatteryHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// sendServiceError maps domain errors onto HTTP status codes
func (h *BatteryHandler) sendServiceError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var (
		argErr       *models.InvalidArgumentError
		incompatible *models.IncompatibleMaterialsError
	)

	switch {
	case errors.As(err, &argErr):
		h.metrics.RecordAPIError("invalid_argument", endpoint)
		h.sendErrorResponse(w, r, endpoint, ErrorResponse{
			Message: argErr.Error(),
			Code:    http.StatusBadRequest,
			Field:   argErr.Field,
		})
	case errors.As(err, &incompatible):
		h.metrics.RecordAPIError("incompatible_materials", endpoint)
		h.sendErrorResponse(w, r, endpoint, ErrorResponse{
			Message: incompatible.Error(),
			Code:    http.StatusUnprocessableEntity,
			Reason:  incompatible.Reason,
		})
	case errors.Is(err, models.ErrNoData):
		h.metrics.RecordAPIError("no_data", endpoint)
		h.sendError(w, r, endpoint, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrSurrogateUnavailable):
		h.metrics.RecordAPIError("unavailable", endpoint)
		h.sendError(w, r, endpoint, err.Error(), http.StatusServiceUnavailable)
	default:
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
			"endpoint": endpoint,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, endpoint, fmt.Sprintf("failed to serve %s", endpoint), http.StatusInternalServerError)
	}
}

// sendJSON encodes data before the status line goes out, so a value that cannot
// be encoded is still answered with a 500
func (h *BatteryHandler) sendJSON(w http.ResponseWriter, r *http.Request, endpoint string, data interface{}, statusCode int) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		h.logger.Error(r.Context(), "[API_ENCODE_ERROR] Failed to encode response", logging.Fields{
			"endpoint":    endpoint,
			"status_code": statusCode,
		}, err)
		h.metrics.RecordAPIError("encode_error", endpoint)

		statusCode = http.StatusInternalServerError
		buf.Reset()
		json.NewEncoder(&buf).Encode(ErrorResponse{
			Error:   http.StatusText(statusCode),
			Message: fmt.Sprintf("failed to encode %s response", endpoint),
			Code:    statusCode,
		})
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Debug(r.Context(), "[API_WRITE_ERROR] Client went away", logging.Fields{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
	}
}

// sendError sends an error response
func (h *BatteryHandler) sendError(w http.ResponseWriter, r *http.Request, endpoint, message string, statusCode int) {
	h.sendErrorResponse(w, r, endpoint, ErrorResponse{Message: message, Code: statusCode})
}

func (h *BatteryHandler) sendErrorResponse(w http.ResponseWriter, r *http.Request, endpoint string, resp ErrorResponse) {
	resp.Error = http.StatusText(resp.Code)
	h.sendJSON(w, r, endpoint, resp, resp.Code)
}

// RegisterRoutes registers all battery API routes
func (h *BatteryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/profiles", h.ListProfiles).Methods("GET")
	router.HandleFunc("/api/cycle-life", h.SimulateCycleLife).Methods("POST")
	router.HandleFunc("/api/impact", h.EstimateImpact).Methods("POST")
	router.HandleFunc("/api/validation/samples", h.ListSamples).Methods("GET")
	router.HandleFunc("/api/validation/samples/{sample_id}", h.GetSample).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", h.SwaggerUI).Methods("GET")
	router.HandleFunc(openAPIPath, OpenAPISpec).Methods("GET")
}
