package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/concordia-classroom/concordia/config"
	"github.com/concordia-classroom/concordia/internal/application/command"
	"github.com/concordia-classroom/concordia/internal/application/query"
	"github.com/concordia-classroom/concordia/internal/application/report"
	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"name":    "Concordia API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":    "/health",
			"state":     "/api/v1/state",
			"schedule":  "/api/v1/schedule",
			"classes":   "/api/v1/classes",
			"catalogue": "/api/v1/catalogue",
			"analytics": "/api/v1/analytics/behavior",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// handleGetState handles GET /api/v1/state
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	if s.deps.States == nil {
		s.notImplemented(w, r, "State")
		return
	}
	writeJSON(w, r, http.StatusOK, s.deps.States.Load(r.Context()))
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetSchedule handles GET /api/v1/schedule?day=N
func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	if s.deps.Schedule == nil {
		s.notImplemented(w, r, "Schedule")
		return
	}

	var q query.GetScheduleQuery
	if raw := r.URL.Query().Get("day"); raw != "" {
		day, err := strconv.Atoi(raw)
		if err != nil {
			writeJSONError(w, r, http.StatusBadRequest, "invalid_parameter", "day must be a number between 0 and 6")
			return
		}
		q.Day = &day
	}

	result, err := s.deps.Schedule.Handle(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

type addScheduleItemRequest struct {
	ClassID   string `json:"classId"`
	DayOfWeek int    `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// handleAddScheduleItem handles POST /api/v1/schedule
func (s *Server) handleAddScheduleItem(w http.ResponseWriter, r *http.Request) {
	if s.deps.AddScheduleItem == nil {
		s.notImplemented(w, r, "Schedule")
		return
	}

	var req addScheduleItemRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.deps.AddScheduleItem.Handle(r.Context(), command.AddScheduleItemCommand{
		ClassID:   req.ClassID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, result.Item)
}

// handleRemoveScheduleItem handles DELETE /api/v1/schedule/{id}
func (s *Server) handleRemoveScheduleItem(w http.ResponseWriter, r *http.Request) {
	if s.deps.RemoveScheduleItem == nil {
		s.notImplemented(w, r, "Schedule")
		return
	}

	err := s.deps.RemoveScheduleItem.Handle(r.Context(), command.RemoveScheduleItemCommand{ItemID: r.PathValue("id")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASS & ROSTER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetClasses handles GET /api/v1/classes
func (s *Server) handleGetClasses(w http.ResponseWriter, r *http.Request) {
	if s.deps.ClassOverview == nil {
		s.notImplemented(w, r, "Classes")
		return
	}

	result, err := s.deps.ClassOverview.Handle(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

type nameRequest struct {
	Name string `json:"name"`
}

// handleCreateClass handles POST /api/v1/classes
func (s *Server) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	if s.deps.CreateClass == nil {
		s.notImplemented(w, r, "Classes")
		return
	}

	var req nameRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.deps.CreateClass.Handle(r.Context(), command.CreateClassCommand{Name: req.Name})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, result.Class)
}

// handleDeleteClass handles DELETE /api/v1/classes/{id}
func (s *Server) handleDeleteClass(w http.ResponseWriter, r *http.Request) {
	if s.deps.DeleteClass == nil {
		s.notImplemented(w, r, "Classes")
		return
	}

	result, err := s.deps.DeleteClass.Handle(r.Context(), command.DeleteClassCommand{ClassID: r.PathValue("id")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"classId":         result.ClassID,
		"studentsRemoved": result.StudentsRemoved,
		"lessonsRemoved":  result.LessonsRemoved,
	})
}

// handleGetRoster handles GET /api/v1/classes/{id}/students
func (s *Server) handleGetRoster(w http.ResponseWriter, r *http.Request) {
	if s.deps.ClassRoster == nil {
		s.notImplemented(w, r, "Roster")
		return
	}

	result, err := s.deps.ClassRoster.Handle(r.Context(), query.GetClassRosterQuery{ClassID: r.PathValue("id")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleAddStudent handles POST /api/v1/classes/{id}/students
func (s *Server) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	if s.deps.AddStudent == nil {
		s.notImplemented(w, r, "Roster")
		return
	}

	var req nameRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.deps.AddStudent.Handle(r.Context(), command.AddStudentCommand{
		ClassID: r.PathValue("id"),
		Name:    req.Name,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, result.Student)
}

// handleDeleteStudent handles DELETE /api/v1/students/{id}
func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if s.deps.DeleteStudent == nil {
		s.notImplemented(w, r, "Roster")
		return
	}

	id := r.PathValue("id")
	result, err := s.deps.DeleteStudent.Handle(r.Context(), command.DeleteStudentCommand{StudentID: id})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.deps.Reports != nil {
		s.deps.Reports.Clear(id)
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"studentId":  result.StudentID,
		"logsPurged": result.LogsPurged,
	})
}

// handleImportRoster handles POST /api/v1/classes/{id}/students/import
// with a multipart "file" field holding an .xlsx workbook.
func (s *Server) handleImportRoster(w http.ResponseWriter, r *http.Request) {
	if s.deps.ImportRoster == nil || !s.enabled(config.FlagExcel) {
		s.notImplemented(w, r, "Roster import")
		return
	}

	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
			return
		}
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_upload", "Expected multipart form data", err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_upload", `Missing form field "file"`)
		return
	}
	defer file.Close()

	result, err := s.deps.ImportRoster.Handle(r.Context(), command.ImportRosterCommand{
		ClassID: r.PathValue("id"),
		File:    file,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]interface{}{
		"students": result.Students,
		"skipped":  result.Skipped,
	})
}

// handleExportClass handles GET /api/v1/classes/{id}/export
func (s *Server) handleExportClass(w http.ResponseWriter, r *http.Request) {
	if s.deps.ExportClass == nil || !s.enabled(config.FlagExcel) {
		s.notImplemented(w, r, "Class export")
		return
	}

	file, err := s.deps.ExportClass.Handle(r.Context(), query.ExportClassReportQuery{ClassID: r.PathValue("id")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADING HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetGradingSheet handles GET /api/v1/classes/{id}/grading
func (s *Server) handleGetGradingSheet(w http.ResponseWriter, r *http.Request) {
	if s.deps.GradingSheet == nil {
		s.notImplemented(w, r, "Grading")
		return
	}

	result, err := s.deps.GradingSheet.Handle(r.Context(), query.GetGradingSheetQuery{ClassID: r.PathValue("id")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

type recordGradesRequest struct {
	Grades map[string]classroom.Score `json:"grades"`
}

// handleRecordGrades handles POST /api/v1/classes/{id}/grades
func (s *Server) handleRecordGrades(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordGrades == nil {
		s.notImplemented(w, r, "Grading")
		return
	}

	var req recordGradesRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.deps.RecordGrades.Handle(r.Context(), command.RecordGradesCommand{
		ClassID: r.PathValue("id"),
		Grades:  req.Grades,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]interface{}{
		"date": result.Date,
		"logs": result.Logs,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// BEHAVIOR HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetCatalogue handles GET /api/v1/catalogue
func (s *Server) handleGetCatalogue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, classroom.Catalogue())
}

type recordIncidentRequest struct {
	StudentID   string             `json:"studentId"`
	ClassID     string             `json:"classId,omitempty"`
	Category    classroom.Category `json:"category"`
	Observation string             `json:"observation"`
	Notes       string             `json:"notes,omitempty"`
	Severity    classroom.Severity `json:"severity"`
}

// handleRecordIncident handles POST /api/v1/incidents
func (s *Server) handleRecordIncident(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordIncident == nil {
		s.notImplemented(w, r, "Incidents")
		return
	}

	var req recordIncidentRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.deps.RecordIncident.Handle(r.Context(), command.RecordIncidentCommand{
		StudentID:   req.StudentID,
		ClassID:     req.ClassID,
		Category:    req.Category,
		Observation: req.Observation,
		Notes:       req.Notes,
		Severity:    req.Severity,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]interface{}{
		"incident": result.Incident,
		"message":  result.Message,
	})
}

// handleGetBehaviorTally handles GET /api/v1/analytics/behavior
func (s *Server) handleGetBehaviorTally(w http.ResponseWriter, r *http.Request) {
	if s.deps.BehaviorTally == nil {
		s.notImplemented(w, r, "Analytics")
		return
	}

	result, err := s.deps.BehaviorTally.Handle(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleGetStudentStats handles GET /api/v1/students/{id}/stats
func (s *Server) handleGetStudentStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.StudentStats == nil {
		s.notImplemented(w, r, "Student stats")
		return
	}

	result, err := s.deps.StudentStats.Handle(r.Context(), query.GetStudentStatsQuery{StudentID: r.PathValue("id")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRequestReport handles POST /api/v1/students/{id}/report[?wait=true]
//
// Without wait the request is accepted and generation runs in the
// background; poll the GET route for the result.
func (s *Server) handleRequestReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reports == nil {
		s.notImplemented(w, r, "Reports")
		return
	}

	handle, err := s.deps.Reports.Request(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		rep, err := s.deps.Reports.Wait(r.Context(), handle)
		if err != nil {
			writeJSONError(w, r, http.StatusGatewayTimeout, "timeout", "Report generation did not finish in time")
			return
		}
		writeJSON(w, r, http.StatusOK, rep)
		return
	}

	writeJSON(w, r, http.StatusAccepted, handle)
}

// handleGetReport handles GET /api/v1/students/{id}/report[?format=html]
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reports == nil {
		s.notImplemented(w, r, "Reports")
		return
	}

	id := r.PathValue("id")
	if s.deps.States != nil {
		if _, ok := s.deps.States.Load(r.Context()).FindStudent(id); !ok {
			s.writeError(w, r, shared.ErrStudentNotFound)
			return
		}
	}

	rep := s.deps.Reports.Get(id)
	if getQueryParam(r, "format", "json") != "html" {
		writeJSON(w, r, http.StatusOK, rep)
		return
	}

	if !s.enabled(config.FlagReportHTML) {
		s.notImplemented(w, r, "HTML reports")
		return
	}
	if rep.Status != report.StatusReady {
		writeJSONError(w, r, http.StatusConflict, "report_not_ready", "Report is "+string(rep.Status))
		return
	}

	html, err := report.RenderHTML(rep.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, html)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decode reads a JSON body; on failure it writes 400 and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON", err.Error())
		return false
	}
	return true
}

// enabled reports a feature flag; everything is on without a flag source.
func (s *Server) enabled(name string) bool {
	return s.deps.Features == nil || s.deps.Features.IsEnabled(name)
}

func (s *Server) notImplemented(w http.ResponseWriter, r *http.Request, what string) {
	writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", what+" is not available")
}

// writeError maps application errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, r, http.StatusNotFound, "not_found", errorMessage(err))
	case errors.Is(err, shared.ErrNotConfigured), errors.Is(err, shared.ErrServiceUnavailable):
		writeJSONError(w, r, http.StatusServiceUnavailable, "unavailable", errorMessage(err))
	case errors.Is(err, shared.ErrUnauthorized):
		writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", errorMessage(err))
	default:
		logger.FromContext(r.Context()).Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
		writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// errorMessage prefers the domain message over the wrapped chain.
func errorMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return strings.TrimSpace(err.Error())
}
