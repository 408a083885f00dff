// Package http implements the Concordia REST API: classes, rosters,
// schedule, grading, behavior entries, derived views and AI reports, plus
// health and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/concordia-classroom/concordia/config"
	"github.com/concordia-classroom/concordia/internal/application/command"
	"github.com/concordia-classroom/concordia/internal/application/query"
	"github.com/concordia-classroom/concordia/internal/application/report"
	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/interface/http/handlers"
	"github.com/concordia-classroom/concordia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// EnableCORS - enable CORS headers.
	EnableCORS bool

	// AllowedOrigins - allowed origins for CORS.
	AllowedOrigins []string

	// EnableMetrics - expose /metrics.
	EnableMetrics bool

	// RateLimitRequests per RateLimitWindow per IP (0 = disabled).
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// APIKeyHeader - header carrying the API key.
	APIKeyHeader string

	// APIKeyHashes - bcrypt hashes of accepted keys; empty disables auth.
	APIKeyHashes []string

	// MaxUploadBytes caps roster uploads.
	MaxUploadBytes int64
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              8080,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
		EnableCORS:        true,
		AllowedOrigins:    []string{"*"},
		EnableMetrics:     true,
		RateLimitRequests: 120,
		RateLimitWindow:   time.Minute,
		APIKeyHeader:      "X-API-Key",
		MaxUploadBytes:    5 << 20,
	}
}

// ConfigFrom maps application settings onto server configuration.
func ConfigFrom(h config.HTTPConfig, metricsEnabled bool) Config {
	cfg := DefaultConfig()
	cfg.Host = h.Host
	cfg.Port = h.Port
	if h.ReadTimeout > 0 {
		cfg.ReadTimeout = h.ReadTimeout
	}
	if h.WriteTimeout > 0 {
		cfg.WriteTimeout = h.WriteTimeout
	}
	if h.IdleTimeout > 0 {
		cfg.IdleTimeout = h.IdleTimeout
	}
	cfg.EnableCORS = h.EnableCORS
	cfg.AllowedOrigins = h.AllowedOrigins
	cfg.EnableMetrics = metricsEnabled
	cfg.RateLimitRequests = h.RateLimitRequests
	if h.RateLimitWindow > 0 {
		cfg.RateLimitWindow = h.RateLimitWindow
	}
	cfg.APIKeyHashes = h.APIKeyHashes
	if h.MaxUploadBytes > 0 {
		cfg.MaxUploadBytes = h.MaxUploadBytes
	}
	return cfg
}

// Address returns the server address in host:port format.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// StateReader returns the current document.
type StateReader interface {
	Load(ctx context.Context) classroom.AppState
}

// MetricsRecorder observes served requests and exposes the scrape endpoint.
type MetricsRecorder interface {
	ObserveHTTP(route string, status int, d time.Duration)
	Handler() http.Handler
}

// FeatureChecker answers feature flag lookups.
type FeatureChecker interface {
	IsEnabled(name string) bool
}

// Dependencies contains all dependencies required by HTTP handlers.
// A nil handler makes its routes answer 501.
type Dependencies struct {
	States StateReader

	// Queries
	Schedule      *query.GetScheduleHandler
	ClassOverview *query.GetClassOverviewHandler
	ClassRoster   *query.GetClassRosterHandler
	GradingSheet  *query.GetGradingSheetHandler
	BehaviorTally *query.GetBehaviorTallyHandler
	StudentStats  *query.GetStudentStatsHandler
	ExportClass   *query.ExportClassReportHandler

	// Commands
	CreateClass        *command.CreateClassHandler
	DeleteClass        *command.DeleteClassHandler
	AddStudent         *command.AddStudentHandler
	DeleteStudent      *command.DeleteStudentHandler
	ImportRoster       *command.ImportRosterHandler
	AddScheduleItem    *command.AddScheduleItemHandler
	RemoveScheduleItem *command.RemoveScheduleItemHandler
	RecordGrades       *command.RecordGradesHandler
	RecordIncident     *command.RecordIncidentHandler

	Reports *report.Service

	Metrics       MetricsRecorder
	Features      FeatureChecker
	HealthChecker handlers.HealthChecker
	Logger        *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the HTTP server for the REST API.
type Server struct {
	config      Config
	deps        Dependencies
	httpServer  *http.Server
	router      *http.ServeMux
	logger      *logger.Logger
	rateLimiter *rateLimiter
	auth        *handlers.APIKeyAuth

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration.
func NewServer(config Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if deps.HealthChecker == nil {
		deps.HealthChecker = handlers.NewNoopHealthChecker()
	}
	if config.APIKeyHeader == "" {
		config.APIKeyHeader = "X-API-Key"
	}

	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger.With(logger.Component("http")),
		auth:   handlers.NewAPIKeyAuth(config.APIKeyHeader, config.APIKeyHashes),
	}

	if config.RateLimitRequests > 0 {
		window := config.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		s.rateLimiter = newRateLimiter(config.RateLimitRequests, window)
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.buildMiddlewareChain(s.router),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Handler returns the fully wrapped handler (tests, embedding).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Probes and metrics stay outside API-key auth.
	s.handle("GET /health", s.handleHealth)
	s.handle("GET /ready", s.handleReady)
	s.handle("GET /live", s.handleLive)
	if s.config.EnableMetrics && s.deps.Metrics != nil {
		s.router.Handle("GET /metrics", s.deps.Metrics.Handler())
	}

	s.api("GET /api/v1/state", s.handleGetState, handlers.NoCacheMiddleware)

	// Schedule
	s.api("GET /api/v1/schedule", s.handleGetSchedule)
	s.api("POST /api/v1/schedule", s.handleAddScheduleItem)
	s.api("DELETE /api/v1/schedule/{id}", s.handleRemoveScheduleItem)

	// Classes and rosters
	s.api("GET /api/v1/classes", s.handleGetClasses)
	s.api("POST /api/v1/classes", s.handleCreateClass)
	s.api("DELETE /api/v1/classes/{id}", s.handleDeleteClass)
	s.api("GET /api/v1/classes/{id}/students", s.handleGetRoster)
	s.api("POST /api/v1/classes/{id}/students", s.handleAddStudent)
	s.api("POST /api/v1/classes/{id}/students/import", s.handleImportRoster,
		handlers.RequestSizeLimitMiddleware(s.config.MaxUploadBytes))
	s.api("GET /api/v1/classes/{id}/export", s.handleExportClass)
	s.api("DELETE /api/v1/students/{id}", s.handleDeleteStudent)

	// Grading
	s.api("GET /api/v1/classes/{id}/grading", s.handleGetGradingSheet)
	s.api("POST /api/v1/classes/{id}/grades", s.handleRecordGrades)

	// Behavior
	s.api("GET /api/v1/catalogue", s.handleGetCatalogue)
	s.api("POST /api/v1/incidents", s.handleRecordIncident)
	s.api("GET /api/v1/analytics/behavior", s.handleGetBehaviorTally)
	s.api("GET /api/v1/students/{id}/stats", s.handleGetStudentStats)

	// Reports
	s.api("POST /api/v1/students/{id}/report", s.handleRequestReport)
	s.api("GET /api/v1/students/{id}/report", s.handleGetReport)

	s.handle("GET /{$}", s.handleRoot)
}

// handle registers a public route with per-route metrics.
func (s *Server) handle(pattern string, h http.HandlerFunc, mws ...handlers.MiddlewareFunc) {
	s.router.Handle(pattern, s.instrument(pattern, handlers.ChainHandler(h, mws...)))
}

// api registers an authenticated API route.
func (s *Server) api(pattern string, h http.HandlerFunc, mws ...handlers.MiddlewareFunc) {
	chain := append([]handlers.MiddlewareFunc{s.auth.Middleware}, mws...)
	s.handle(pattern, h, chain...)
}

// instrument records status and latency under the route pattern.
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	if s.deps.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		s.deps.Metrics.ObserveHTTP(route, rw.statusCode, time.Since(start))
	})
}

// buildMiddlewareChain wraps the router. The first middleware is outermost.
func (s *Server) buildMiddlewareChain(handler http.Handler) http.Handler {
	mws := []handlers.MiddlewareFunc{
		s.requestIDMiddleware,
		s.loggingMiddleware,
		s.recoveryMiddleware,
		handlers.SecurityHeadersMiddleware,
	}
	if s.config.EnableCORS {
		mws = append(mws, s.corsMiddleware)
	}
	if s.rateLimiter != nil {
		mws = append(mws, s.rateLimitMiddleware)
	}
	return handlers.ChainHandler(handler, mws...)
}

// requestIDMiddleware adds a unique request ID to each request.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		ctx = logger.WithContext(ctx, s.logger.WithRequestID(requestID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs all HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		fields := []logger.Field{
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.statusCode),
			logger.Latency(time.Since(start)),
			logger.String("ip", getClientIP(r)),
			logger.String("user_agent", r.UserAgent()),
			logger.String(logger.RequestIDKey, getRequestID(r.Context())),
		}
		if rw.statusCode >= http.StatusInternalServerError {
			s.logger.Warn("http request", fields...)
			return
		}
		s.logger.Info("http request", fields...)
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					logger.F("error", fmt.Sprint(err)),
					logger.String("stack", string(debug.Stack())),
					logger.String("path", r.URL.Path),
					logger.String(logger.RequestIDKey, getRequestID(r.Context())),
				)
				writeJSONError(w, r, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowed := false
		for _, o := range s.config.AllowedOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed && origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware implements per-IP rate limiting.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow(getClientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(s.rateLimiter.window.Seconds())))
			writeJSONError(w, r, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		logger.String("address", s.config.Address()),
		logger.Bool("auth", s.auth.Enabled()),
	)

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      interface{}   `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	response := JSONResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta: &ResponseMeta{
			Timestamp: time.Now().UTC(),
			Version:   "v1",
		},
		RequestID: getRequestID(r.Context()),
	}

	_ = json.NewEncoder(w).Encode(response)
}

// writeJSONError writes an error JSON response.
func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSONErrorWithDetails(w, r, status, code, message, "")
}

// writeJSONErrorWithDetails writes an error JSON response with details.
func writeJSONErrorWithDetails(w http.ResponseWriter, r *http.Request, status int, code, message, details string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	response := JSONResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: &ResponseMeta{
			Timestamp: time.Now().UTC(),
		},
		RequestID: getRequestID(r.Context()),
	}

	_ = json.NewEncoder(w).Encode(response)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER TYPES AND FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// getRequestID extracts the request ID from context.
func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// generateRequestID generates a unique request ID.
func generateRequestID() string {
	return uuid.NewString()
}

// getQueryParam extracts a query parameter with a default value.
func getQueryParam(r *http.Request, key, defaultValue string) string {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	stop     chan struct{}
	once     sync.Once
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		stop:     make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

func (rl *rateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	valid := pruneBefore(rl.requests[key], now.Add(-rl.window))

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

// Stop ends the cleanup goroutine.
func (rl *rateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, requests := range rl.requests {
				valid := pruneBefore(requests, now.Add(-rl.window))
				if len(valid) == 0 {
					delete(rl.requests, key)
				} else {
					rl.requests[key] = valid
				}
			}
			rl.mu.Unlock()
		}
	}
}

func pruneBefore(times []time.Time, windowStart time.Time) []time.Time {
	var valid []time.Time
	for _, t := range times {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	return valid
}
