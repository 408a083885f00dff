package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/concordia-classroom/concordia/config"
	"github.com/concordia-classroom/concordia/internal/application/report"
	"github.com/concordia-classroom/concordia/internal/application/state"
	"github.com/concordia-classroom/concordia/internal/infrastructure/messaging"
	"github.com/concordia-classroom/concordia/internal/infrastructure/metrics"
	"github.com/concordia-classroom/concordia/internal/infrastructure/persistence/file"
	"github.com/concordia-classroom/concordia/internal/interface/http/handlers"
	"github.com/concordia-classroom/concordia/pkg/logger"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// wednesday 10:00 in the school timezone.
var wednesday = timeutil.Date(2025, 3, 12).Add(10 * time.Hour)

type cannedGenerator struct {
	text string
	err  error
}

func (g cannedGenerator) GenerateReport(context.Context, report.Input) (string, error) {
	return g.text, g.err
}

type flags map[string]bool

func (f flags) IsEnabled(name string) bool {
	on, ok := f[name]
	return !ok || on
}

type testEnv struct {
	server  *Server
	store   *state.Store
	metrics *metrics.Collector
}

func newTestEnv(t *testing.T, tweak ...func(*Config, *Dependencies)) *testEnv {
	t.Helper()

	blobs, err := file.NewBlobStore(t.TempDir())
	require.NoError(t, err)

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{AsyncMode: false})
	t.Cleanup(func() { _ = bus.Close() })

	store, err := state.NewStore(state.StoreConfig{Storage: blobs, Bus: bus})
	require.NoError(t, err)

	collector := metrics.New(metrics.Config{})

	reports, err := report.NewService(report.ServiceConfig{
		States:    store,
		Generator: cannedGenerator{text: "**Stärke:** Mitarbeit"},
		Recorder:  collector,
		Timeout:   5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(reports.Close)

	cfg := DefaultConfig()
	cfg.RateLimitRequests = 0
	deps := Dependencies{
		Reports: reports,
		Metrics: collector,
		Logger:  logger.New(logger.Options{Output: io.Discard}),
	}
	deps.WireApplication(store, timeutil.FixedClock(wednesday), nil, nil)

	for _, fn := range tweak {
		fn(&cfg, &deps)
	}

	srv := NewServer(cfg, deps)
	t.Cleanup(func() {
		if srv.rateLimiter != nil {
			srv.rateLimiter.Stop()
		}
	})
	return &testEnv{server: srv, store: store, metrics: collector}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	RequestID string          `json:"request_id"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

// ══════════════════════════════════════════════════════════════════════════════
// PROBES
// ══════════════════════════════════════════════════════════════════════════════

func TestProbes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestReady_FailsOnCriticalCheck(t *testing.T) {
	checker := handlers.NewCompositeHealthChecker("test")
	checker.AddCheck("storage", func(context.Context) error { return errors.New("disk gone") })
	checker.AddAdvisoryCheck("gemini", func(context.Context) error { return errors.New("circuit open") })

	env := newTestEnv(t, func(_ *Config, d *Dependencies) { d.HealthChecker = checker })

	rec := env.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "gemini, storage")

	checker.RemoveCheck("storage")
	rec = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var status handlers.HealthStatus
	decodeEnvelope(t, rec, &status)
	assert.True(t, status.Degraded)
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/catalogue", nil, "X-Request-ID", "req-42")
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-42", decodeEnvelope(t, rec, nil).RequestID)
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE & SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

func TestGetState_ReturnsSeed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")

	var st struct {
		Classes []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"classes"`
		Students []json.RawMessage `json:"students"`
	}
	decodeEnvelope(t, rec, &st)
	require.Len(t, st.Classes, 2)
	assert.Equal(t, "Geschichte 7b", st.Classes[0].Name)
	assert.Len(t, st.Students, 3)
}

func TestSchedule(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/schedule?day=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var day struct {
		Day     int `json:"day"`
		Lessons []struct {
			ItemID    string `json:"itemId"`
			ClassName string `json:"className"`
		} `json:"lessons"`
	}
	decodeEnvelope(t, rec, &day)
	assert.Equal(t, 1, day.Day)
	require.Len(t, day.Lessons, 1)
	assert.Equal(t, "sch1", day.Lessons[0].ItemID)

	// defaults to today (Wednesday)
	rec = env.do(t, http.MethodGet, "/api/v1/schedule", nil)
	decodeEnvelope(t, rec, &day)
	assert.Equal(t, 3, day.Day)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/schedule?day=x", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/schedule?day=9", nil).Code)
}

func TestScheduleCommands(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/schedule", map[string]interface{}{
		"classId": "c2", "dayOfWeek": 5, "startTime": "09:45", "endTime": "10:30",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var item struct {
		ID string `json:"id"`
	}
	decodeEnvelope(t, rec, &item)
	require.NotEmpty(t, item.ID)

	rec = env.do(t, http.MethodPost, "/api/v1/schedule", map[string]interface{}{
		"classId": "c2", "dayOfWeek": 5, "startTime": "9 Uhr", "endTime": "10:30",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/v1/schedule/"+item.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/v1/schedule/"+item.ID, nil).Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASSES & ROSTERS
// ══════════════════════════════════════════════════════════════════════════════

func TestClassLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/classes", map[string]string{"name": "  Biologie 9c "})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var class struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	decodeEnvelope(t, rec, &class)
	assert.Equal(t, "Biologie 9c", class.Name)
	assert.NotEmpty(t, class.Color)

	rec = env.do(t, http.MethodPost, "/api/v1/classes/"+class.ID+"/students", map[string]string{"name": "Lena Fischer"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/classes/"+class.ID+"/students", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var roster struct {
		Students []struct {
			Name string `json:"name"`
		} `json:"students"`
	}
	decodeEnvelope(t, rec, &roster)
	require.Len(t, roster.Students, 1)
	assert.Equal(t, "Lena Fischer", roster.Students[0].Name)

	rec = env.do(t, http.MethodDelete, "/api/v1/classes/"+class.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"studentsRemoved":1`)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/v1/classes/"+class.ID, nil).Code)
	rec = env.do(t, http.MethodGet, "/api/v1/classes/"+class.ID+"/students", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"class not found"`)
}

func TestCreateClass_BadInput(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/classes", map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env1 := decodeEnvelope(t, rec, nil)
	require.NotNil(t, env1.Error)
	assert.Equal(t, "validation_error", env1.Error.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/classes", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", decodeEnvelope(t, rec, nil).Error.Code)
}

func TestDeleteStudent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/v1/students/s2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"logsPurged":false`)

	_, ok := env.store.Load(context.Background()).FindStudent("s2")
	assert.False(t, ok)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/v1/students/s2", nil).Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADING & BEHAVIOR
// ══════════════════════════════════════════════════════════════════════════════

func TestGrades(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/classes/c1/grades", map[string]interface{}{
		"grades": map[string]int{"s1": 2, "s2": -1},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"date":"2025-03-12"`)

	rec = env.do(t, http.MethodGet, "/api/v1/classes/c1/grading", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sheet struct {
		Rows []struct {
			Student struct {
				ID string `json:"id"`
			} `json:"student"`
			TodayScore *int `json:"todayScore"`
		} `json:"rows"`
	}
	decodeEnvelope(t, rec, &sheet)
	require.Len(t, sheet.Rows, 2)
	require.NotNil(t, sheet.Rows[0].TodayScore)
	assert.Equal(t, 2, *sheet.Rows[0].TodayScore)

	// s3 sits in c2
	rec = env.do(t, http.MethodPost, "/api/v1/classes/c1/grades", map[string]interface{}{
		"grades": map[string]int{"s3": 1},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/classes/c1/grades", map[string]interface{}{
		"grades": map[string]int{"s1": 3},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIncidentAndDerivedViews(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/catalogue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hausaufgaben fehlen")

	rec = env.do(t, http.MethodPost, "/api/v1/incidents", map[string]interface{}{
		"studentId":   "s1",
		"category":    "Verantwortung",
		"observation": "Hausaufgaben fehlen",
		"severity":    1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var saved struct {
		Incident struct {
			ClassID  string `json:"classId"`
			Severity int    `json:"severity"`
		} `json:"incident"`
		Message string `json:"message"`
	}
	decodeEnvelope(t, rec, &saved)
	assert.Equal(t, "c1", saved.Incident.ClassID)
	assert.Equal(t, -1, saved.Incident.Severity)
	assert.Equal(t, "Eintrag erfolgreich gespeichert", saved.Message)

	rec = env.do(t, http.MethodGet, "/api/v1/analytics/behavior", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tally struct {
		Positive int `json:"positive"`
		Negative int `json:"negative"`
	}
	decodeEnvelope(t, rec, &tally)
	assert.Equal(t, 0, tally.Positive)
	assert.Equal(t, 1, tally.Negative)

	rec = env.do(t, http.MethodGet, "/api/v1/students/s1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		IncidentCount int  `json:"incidentCount"`
		HasEntries    bool `json:"hasEntries"`
		Trend         []struct {
			Label string `json:"label"`
		} `json:"trend"`
	}
	decodeEnvelope(t, rec, &stats)
	assert.Equal(t, 1, stats.IncidentCount)
	assert.True(t, stats.HasEntries)
	require.Len(t, stats.Trend, 7)
	assert.Equal(t, "03-12", stats.Trend[6].Label)

	rec = env.do(t, http.MethodPost, "/api/v1/incidents", map[string]interface{}{
		"studentId": "ghost", "category": "Verantwortung", "observation": "x",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/students/ghost/stats", nil).Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// EXCEL
// ══════════════════════════════════════════════════════════════════════════════

func TestExportClass(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/classes/c1/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Geschichte_7b_2025-03-12.xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	assert.Contains(t, wb.GetSheetList(), "Übersicht")

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/classes/nope/export", nil).Code)
}

func TestExcelRoutesFollowFlag(t *testing.T) {
	env := newTestEnv(t, func(_ *Config, d *Dependencies) {
		d.Features = flags{config.FlagExcel: false}
	})
	assert.Equal(t, http.StatusNotImplemented, env.do(t, http.MethodGet, "/api/v1/classes/c1/export", nil).Code)
}

func TestImportRoster(t *testing.T) {
	env := newTestEnv(t)

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]interface{}{"Name"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]interface{}{"Jonas Becker"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A3", &[]interface{}{"Emma Wagner"}))
	data, err := wb.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "klasse.xlsx")
	require.NoError(t, err)
	_, err = part.Write(data.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/classes/c2/students/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Emma Wagner")

	// no multipart body at all
	rec = env.do(t, http.MethodPost, "/api/v1/classes/c2/students/import", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportRoster_TooLarge(t *testing.T) {
	env := newTestEnv(t, func(c *Config, _ *Dependencies) { c.MaxUploadBytes = 16 })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/classes/c2/students/import", strings.NewReader(strings.Repeat("x", 64)))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORTS
// ══════════════════════════════════════════════════════════════════════════════

func TestReportFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/students/s1/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"idle"`)

	rec = env.do(t, http.MethodGet, "/api/v1/students/s1/report?format=html", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/students/s1/report?wait=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep report.Report
	decodeEnvelope(t, rec, &rep)
	assert.Equal(t, report.StatusReady, rep.Status)
	assert.Equal(t, report.OutcomeOK, rep.Outcome)

	rec = env.do(t, http.MethodGet, "/api/v1/students/s1/report?format=html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<strong>Stärke:</strong>")

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/v1/students/ghost/report", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/students/ghost/report", nil).Code)
}

func TestReportRequest_Accepted(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/students/s3/report", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var handle report.RequestHandle
	decodeEnvelope(t, rec, &handle)
	assert.Equal(t, "s3", handle.StudentID)
	assert.NotEmpty(t, handle.ID)
}

func TestReportDisabled(t *testing.T) {
	env := newTestEnv(t, func(_ *Config, d *Dependencies) {
		svc, err := report.NewService(report.ServiceConfig{
			States:    d.States,
			Generator: cannedGenerator{text: "x"},
			Enabled:   func() bool { return false },
		})
		require.NoError(t, err)
		t.Cleanup(svc.Close)
		d.Reports = svc
	})
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodPost, "/api/v1/students/s1/report", nil).Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

func TestAPIKeyAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	env := newTestEnv(t, func(c *Config, _ *Dependencies) { c.APIKeyHashes = []string{string(hash)} })

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/v1/state", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/v1/state", nil, "X-API-Key", "wrong").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/state", nil, "X-API-Key", "s3cret").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/state", nil, "Authorization", "Bearer s3cret").Code)

	// probes stay open
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *Config, _ *Dependencies) {
		c.RateLimitRequests = 2
		c.RateLimitWindow = time.Minute
	})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/live", nil).Code)
	}
	rec := env.do(t, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(c *Config, _ *Dependencies) {
		c.EnableCORS = true
		c.AllowedOrigins = []string{"http://localhost:5173"}
	})

	rec := env.do(t, http.MethodOptions, "/api/v1/classes", nil, "Origin", "http://localhost:5173")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = env.do(t, http.MethodGet, "/live", nil, "Origin", "http://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/catalogue", nil).Code)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `concordia_http_requests_total{route="GET /api/v1/catalogue",status="200"} 1`)
}

func TestRecoveryMiddleware(t *testing.T) {
	env := newTestEnv(t)

	h := env.server.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_server_error", decodeEnvelope(t, rec, nil).Error.Code)
}

func TestServer_NotImplementedWithoutHandlers(t *testing.T) {
	srv := NewServer(DefaultConfig(), Dependencies{Logger: logger.New(logger.Options{Output: io.Discard})})
	defer srv.rateLimiter.Stop()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/classes", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
