package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/config"
	"github.com/lexivault/vocab-web-app/api-service/internal/constants"
	"github.com/lexivault/vocab-web-app/api-service/internal/database/postgres"
)

// HealthCheckTimeout is the default timeout for health check operations.
const HealthCheckTimeout = 5 * time.Second

// HealthHandler provides health check and monitoring endpoints.
type HealthHandler struct {
	config    *config.Config
	dbMgr     *postgres.Manager
	redis     *goredis.Client
	logger    *logrus.Logger
	metrics   *Metrics
	startTime time.Time
}

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	// StatusHealthy indicates the component is healthy.
	StatusHealthy HealthStatus = "healthy"
	// StatusUnhealthy indicates the component is unhealthy.
	StatusUnhealthy HealthStatus = "unhealthy"
	// StatusDegraded indicates the component has degraded performance.
	StatusDegraded HealthStatus = "degraded"
)

// HealthResponse represents the overall health check response.
type HealthResponse struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
	Details    map[string]interface{}     `json:"details,omitempty"`
}

// ComponentHealth represents the health of an individual component.
type ComponentHealth struct {
	Status       HealthStatus `json:"status"`
	Message      string       `json:"message,omitempty"`
	LastChecked  time.Time    `json:"last_checked"`
	ResponseTime string       `json:"response_time,omitempty"`
}

// ReadinessResponse represents the readiness check response.
type ReadinessResponse struct {
	Ready      bool                       `json:"ready"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// Metrics holds Prometheus metrics for monitoring.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsCreated  prometheus.Counter
	SessionsDeleted  *prometheus.CounterVec
	SessionsSwept    prometheus.Counter
	SessionProbes    *prometheus.CounterVec
	LogoutEventsRecv *prometheus.CounterVec

	// Assistant metrics
	LookupsTotal       *prometheus.CounterVec
	SpeechRequests     *prometheus.CounterVec
	AssistantLatency   *prometheus.HistogramVec

	// Health metrics
	HealthChecksTotal     *prometheus.CounterVec
	ComponentHealthStatus *prometheus.GaugeVec
}

// NewHealthHandler creates a new health check handler and registers the
// service metrics.
func NewHealthHandler(
	cfg *config.Config,
	dbMgr *postgres.Manager,
	redisClient *goredis.Client,
	logger *logrus.Logger,
) *HealthHandler {
	metrics := NewMetrics()
	prometheus.MustRegister(
		metrics.HTTPRequestsTotal,
		metrics.HTTPRequestDuration,
		metrics.SessionsCreated,
		metrics.SessionsDeleted,
		metrics.SessionsSwept,
		metrics.SessionProbes,
		metrics.LogoutEventsRecv,
		metrics.LookupsTotal,
		metrics.SpeechRequests,
		metrics.AssistantLatency,
		metrics.HealthChecksTotal,
		metrics.ComponentHealthStatus,
	)

	return &HealthHandler{
		config:    cfg,
		dbMgr:     dbMgr,
		redis:     redisClient,
		logger:    logger,
		metrics:   metrics,
		startTime: time.Now(),
	}
}

// NewMetrics creates and returns Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vocab_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vocab_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		SessionsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vocab_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		SessionsDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vocab_sessions_deleted_total",
				Help: "Total number of sessions deleted",
			},
			[]string{"scope"},
		),
		SessionsSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vocab_sessions_swept_total",
				Help: "Total number of expired sessions removed by the janitor",
			},
		),
		SessionProbes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vocab_session_probes_total",
				Help: "Total number of session liveness probes",
			},
			[]string{"status"},
		),
		LogoutEventsRecv: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vocab_logout_events_received_total",
				Help: "Total number of logout analytics events received",
			},
			[]string{"type"},
		),
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vocab_lookups_total",
				Help: "Total number of word lookups",
			},
			[]string{"action", "status"},
		),
		SpeechRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vocab_speech_requests_total",
				Help: "Total number of speech synthesis requests",
			},
			[]string{"status"},
		),
		AssistantLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vocab_assistant_request_duration_seconds",
				Help:    "Assistant upstream request duration in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		HealthChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vocab_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"endpoint", "status"},
		),
		ComponentHealthStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vocab_component_health_status",
				Help: "Health status of service components (1=healthy, 0=unhealthy)",
			},
			[]string{"component"},
		),
	}
}

// Metrics exposes the registered metrics so other handlers can record
// domain counters.
func (h *HealthHandler) Metrics() *Metrics {
	return h.metrics
}

// RegisterRoutes registers health check and monitoring endpoints.
func (h *HealthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/live", h.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.Readiness).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Health provides a comprehensive health check including all components.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	components := make(map[string]ComponentHealth)
	overallStatus := StatusHealthy

	databaseHealth := h.checkDatabase(ctx)
	components["database"] = databaseHealth
	if databaseHealth.Status == StatusUnhealthy {
		overallStatus = StatusDegraded
	}

	redisHealth := h.checkRedis(ctx)
	components["redis"] = redisHealth
	if redisHealth.Status == StatusUnhealthy && overallStatus == StatusHealthy {
		overallStatus = StatusDegraded
	}

	configHealth := h.checkConfiguration()
	components["configuration"] = configHealth
	if configHealth.Status != StatusHealthy && overallStatus == StatusHealthy {
		overallStatus = StatusDegraded
	}

	statusLabel := string(overallStatus)
	h.metrics.HealthChecksTotal.WithLabelValues("health", statusLabel).Inc()

	for component, health := range components {
		healthValue := float64(0)
		if health.Status == StatusHealthy {
			healthValue = 1
		}
		h.metrics.ComponentHealthStatus.WithLabelValues(component).Set(healthValue)
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Version:    getVersion(),
		Uptime:     time.Since(h.startTime).String(),
		Components: components,
		Details: map[string]interface{}{
			"check_duration": time.Since(start).String(),
		},
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("Failed to encode health response")
	}
}

// Liveness provides a simple liveness check that returns 200 if the service
// is alive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	h.metrics.HealthChecksTotal.WithLabelValues("liveness", "healthy").Inc()

	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now(),
		"uptime":    time.Since(h.startTime).String(),
	}

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("Failed to encode liveness response")
	}
}

// Readiness checks if the service is ready to receive traffic. The service
// stays ready on an in-memory session store, so only a configured-but-down
// database blocks readiness.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	components := make(map[string]ComponentHealth)
	ready := true

	databaseHealth := h.checkDatabase(ctx)
	components["database"] = databaseHealth
	if h.config.IsDatabaseConfigured() && databaseHealth.Status == StatusUnhealthy {
		ready = false
	}

	components["redis"] = h.checkRedis(ctx)

	statusLabel := "ready"
	if !ready {
		statusLabel = "not_ready"
	}
	h.metrics.HealthChecksTotal.WithLabelValues("readiness", statusLabel).Inc()

	response := ReadinessResponse{
		Ready:      ready,
		Timestamp:  time.Now(),
		Components: components,
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("Failed to encode readiness response")
	}
}

// checkDatabase checks PostgreSQL database connectivity.
func (h *HealthHandler) checkDatabase(ctx context.Context) ComponentHealth {
	start := time.Now()

	if h.dbMgr == nil || !h.config.IsDatabaseConfigured() {
		return ComponentHealth{
			Status:      StatusHealthy,
			Message:     "Database not configured, using in-memory stores",
			LastChecked: time.Now(),
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	err := h.dbMgr.Ping(checkCtx)
	duration := time.Since(start)

	if err != nil {
		h.logger.WithError(err).Debug("Database health check failed")
		return ComponentHealth{
			Status:       StatusUnhealthy,
			Message:      "PostgreSQL connection failed: " + err.Error(),
			LastChecked:  time.Now(),
			ResponseTime: duration.String(),
		}
	}

	status := StatusHealthy
	message := "PostgreSQL is healthy"
	if duration > 2*time.Second {
		status = StatusDegraded
		message = "PostgreSQL response time is slow"
	}

	return ComponentHealth{
		Status:       status,
		Message:      message,
		LastChecked:  time.Now(),
		ResponseTime: duration.String(),
	}
}

// checkRedis checks Redis connectivity. Redis only backs rate limiting, so
// an unavailable Redis never takes the service down.
func (h *HealthHandler) checkRedis(ctx context.Context) ComponentHealth {
	start := time.Now()

	if h.redis == nil {
		return ComponentHealth{
			Status:      StatusHealthy,
			Message:     "Redis not configured, rate limiting disabled",
			LastChecked: time.Now(),
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	err := h.redis.Ping(checkCtx).Err()
	duration := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:       StatusUnhealthy,
			Message:      "Redis connection failed: " + err.Error(),
			LastChecked:  time.Now(),
			ResponseTime: duration.String(),
		}
	}

	return ComponentHealth{
		Status:       StatusHealthy,
		Message:      "Redis is healthy",
		LastChecked:  time.Now(),
		ResponseTime: duration.String(),
	}
}

// checkConfiguration validates critical configuration values.
func (h *HealthHandler) checkConfiguration() ComponentHealth {
	var issues []string

	if h.config.Assistant.APIKey == "" {
		issues = append(issues, "assistant API key is not configured")
	}

	if h.config.Session.Window < time.Hour {
		issues = append(issues, "session window is unusually short")
	}

	status := StatusHealthy
	message := "Configuration is valid"

	if len(issues) > 0 {
		status = StatusDegraded
		message = "Configuration issues: " + strings.Join(issues, ", ")
	}

	return ComponentHealth{
		Status:      status,
		Message:     message,
		LastChecked: time.Now(),
	}
}

// getVersion returns the service version (would typically come from build
// info).
func getVersion() string {
	return "1.0.0"
}
