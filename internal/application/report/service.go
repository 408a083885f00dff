// Package report runs AI narrative reports for single students.
//
// A request returns a handle immediately; generation happens in the
// background. Each student has at most one live request: starting a new one
// supersedes the previous, whose response is dropped when it arrives.
// Whatever the outcome, the stored text is display text. Failures never
// surface as errors once a request has been accepted.
package report

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// Fixed texts shown in place of a report.
const (
	NotConfiguredText = "API Key ist nicht konfiguriert."
	EmptyText         = "Bericht konnte nicht erstellt werden."
	FailedText        = "Fehler bei der Erstellung des Berichts. Bitte prüfen Sie Ihre Internetverbindung oder den API-Key."
)

// Outcome labels used for metrics and the completion event.
const (
	OutcomeOK            = "ok"
	OutcomeEmpty         = "empty"
	OutcomeNotConfigured = "not_configured"
	OutcomeError         = "error"
	OutcomeSuperseded    = "superseded"
)

// Input is everything a generator gets to see about a student.
type Input struct {
	StudentName        string
	ParticipationScore int
	Incidents          []classroom.BehaviorIncident
}

// Generator produces report text. Implementations return
// shared.ErrReportNotConfigured without any network call when no
// credentials are set, and shared.ErrReportEmpty for a blank answer.
type Generator interface {
	GenerateReport(ctx context.Context, in Input) (string, error)
}

// StateReader is the read side of state.Store.
type StateReader interface {
	Load(ctx context.Context) classroom.AppState
}

// Recorder receives one outcome per finished request.
type Recorder interface {
	ReportFinished(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) ReportFinished(string) {}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status of a student's report.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
)

// RequestHandle identifies one report invocation.
type RequestHandle struct {
	ID        string    `json:"requestId"`
	StudentID string    `json:"studentId"`
	StartedAt time.Time `json:"startedAt"`
}

// Report is the per-student view of the latest request.
type Report struct {
	StudentID   string     `json:"studentId"`
	RequestID   string     `json:"requestId,omitempty"`
	Status      Status     `json:"status"`
	Text        string     `json:"text,omitempty"`
	Outcome     string     `json:"outcome,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type entry struct {
	handle      RequestHandle
	status      Status
	text        string
	outcome     string
	completedAt time.Time
}

func (e *entry) view() Report {
	started := e.handle.StartedAt
	r := Report{
		StudentID: e.handle.StudentID,
		RequestID: e.handle.ID,
		Status:    e.status,
		Text:      e.text,
		Outcome:   e.outcome,
		StartedAt: &started,
	}
	if !e.completedAt.IsZero() {
		done := e.completedAt
		r.CompletedAt = &done
	}
	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// ServiceConfig wires a Service.
type ServiceConfig struct {
	States    StateReader
	Generator Generator

	// Bus receives report.completed; optional.
	Bus shared.EventPublisher

	Recorder Recorder
	Logger   *slog.Logger
	Clock    timeutil.Clock

	// Timeout bounds a single generation. Zero means 90s.
	Timeout time.Duration

	// Enabled is consulted per request; nil means always enabled.
	Enabled func() bool
}

// Service owns the per-student report slots.
type Service struct {
	states   StateReader
	gen      Generator
	bus      shared.EventPublisher
	recorder Recorder
	logger   *slog.Logger
	clock    timeutil.Clock
	timeout  time.Duration
	enabled  func() bool

	mu      sync.Mutex
	entries map[string]*entry
	waiters map[string]chan struct{}

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ErrDisabled is returned by Request when AI reports are switched off.
var ErrDisabled = shared.NewDomainError("report", "Request", shared.ErrNotConfigured, "AI reports are disabled")

// NewService creates a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.States == nil {
		return nil, errors.New("report: state reader is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("report: generator is required")
	}
	if cfg.Recorder == nil {
		cfg.Recorder = noopRecorder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.SystemClock
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.Enabled == nil {
		cfg.Enabled = func() bool { return true }
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		states:   cfg.States,
		gen:      cfg.Generator,
		bus:      cfg.Bus,
		recorder: cfg.Recorder,
		logger:   cfg.Logger.With("component", "report"),
		clock:    cfg.Clock,
		timeout:  cfg.Timeout,
		enabled:  cfg.Enabled,
		entries:  make(map[string]*entry),
		waiters:  make(map[string]chan struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
	}, nil
}

// Request starts a report for studentID and returns at once. The input is
// captured from the current state, so later edits do not affect this run.
func (s *Service) Request(ctx context.Context, studentID string) (RequestHandle, error) {
	if strings.TrimSpace(studentID) == "" {
		return RequestHandle{}, shared.NewDomainError("report", "Request", shared.ErrValidation, "student_id is required")
	}
	if !s.enabled() {
		return RequestHandle{}, ErrDisabled
	}

	st := s.states.Load(ctx)
	student, ok := st.FindStudent(studentID)
	if !ok {
		return RequestHandle{}, shared.ErrStudentNotFound
	}
	in := InputFor(st, student)

	handle := RequestHandle{
		ID:        uuid.NewString(),
		StudentID: studentID,
		StartedAt: s.clock(),
	}
	done := make(chan struct{})

	s.mu.Lock()
	if err := s.baseCtx.Err(); err != nil {
		s.mu.Unlock()
		return RequestHandle{}, errors.New("report: service is closed")
	}
	if prev, ok := s.entries[studentID]; ok && prev.status == StatusLoading {
		s.logger.Debug("report request superseded",
			"student_id", studentID,
			"request_id", prev.handle.ID,
		)
	}
	s.entries[studentID] = &entry{handle: handle, status: StatusLoading}
	s.waiters[handle.ID] = done
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(handle, in, done)

	return handle, nil
}

// InputFor collects the generator input for one student.
func InputFor(st classroom.AppState, student classroom.Student) Input {
	total := 0
	for _, l := range st.ParticipationOf(student.ID) {
		total += int(l.Score)
	}
	return Input{
		StudentName:        student.Name,
		ParticipationScore: total,
		Incidents:          st.IncidentsOf(student.ID),
	}
}

func (s *Service) run(handle RequestHandle, in Input, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)

	ctx, cancel := context.WithTimeout(s.baseCtx, s.timeout)
	defer cancel()

	start := time.Now()
	text, outcome := s.generate(ctx, in)

	s.mu.Lock()
	delete(s.waiters, handle.ID)
	current, ok := s.entries[handle.StudentID]
	if !ok || current.handle.ID != handle.ID {
		s.mu.Unlock()
		s.recorder.ReportFinished(OutcomeSuperseded)
		s.logger.Debug("superseded report discarded",
			"student_id", handle.StudentID,
			"request_id", handle.ID,
		)
		return
	}
	current.status = StatusReady
	current.text = text
	current.outcome = outcome
	current.completedAt = s.clock()
	s.mu.Unlock()

	s.recorder.ReportFinished(outcome)
	s.logger.Info("report finished",
		"student_id", handle.StudentID,
		"request_id", handle.ID,
		"outcome", outcome,
		"latency", time.Since(start),
	)

	if s.bus != nil {
		if err := s.bus.Publish(shared.NewReportCompletedEvent(handle.StudentID, handle.ID, outcome)); err != nil {
			s.logger.Warn("report.completed not delivered", "error", err)
		}
	}
}

// generate maps every generator result onto display text.
func (s *Service) generate(ctx context.Context, in Input) (string, string) {
	text, err := s.gen.GenerateReport(ctx, in)
	switch {
	case errors.Is(err, shared.ErrReportNotConfigured):
		return NotConfiguredText, OutcomeNotConfigured
	case errors.Is(err, shared.ErrReportEmpty):
		return EmptyText, OutcomeEmpty
	case err != nil:
		s.logger.Error("report generation failed", "error", err)
		return FailedText, OutcomeError
	case strings.TrimSpace(text) == "":
		return EmptyText, OutcomeEmpty
	default:
		return text, OutcomeOK
	}
}

// Get returns the latest report for a student; idle when none was requested.
func (s *Service) Get(studentID string) Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[studentID]
	if !ok {
		return Report{StudentID: studentID, Status: StatusIdle}
	}
	return e.view()
}

// Wait blocks until the request behind handle has finished, then returns
// the student's current report. A superseded handle therefore yields the
// newer request's view.
func (s *Service) Wait(ctx context.Context, handle RequestHandle) (Report, error) {
	s.mu.Lock()
	done, ok := s.waiters[handle.ID]
	s.mu.Unlock()

	if ok {
		select {
		case <-done:
		case <-ctx.Done():
			return Report{}, ctx.Err()
		}
	}
	return s.Get(handle.StudentID), nil
}

// Clear resets a student's slot to idle. A pending request is superseded.
func (s *Service) Clear(studentID string) {
	s.mu.Lock()
	delete(s.entries, studentID)
	s.mu.Unlock()
}

// Close cancels running generations and waits for them to finish.
func (s *Service) Close() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}
