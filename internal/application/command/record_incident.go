package command

import (
	"context"
	"fmt"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD INCIDENT COMMAND
// Saves one behavior observation. The command is replayed through an
// IncidentDraft so the rules of the entry form apply unchanged:
//   - a catalogue observation takes the catalogue severity;
//   - free-text categories are always neutral;
//   - text that is not in a catalogue category keeps the submitted severity;
//   - an empty observation falls back to the notes where the category allows it.
// ══════════════════════════════════════════════════════════════════════════════

// IncidentSavedMessage is the confirmation shown after a successful save.
const IncidentSavedMessage = "Eintrag erfolgreich gespeichert"

// RecordIncidentCommand contains the submitted entry form.
type RecordIncidentCommand struct {
	StudentID string `validate:"required"`

	// ClassID may be empty; it then defaults to the student's class.
	ClassID string

	Category    classroom.Category `validate:"category"`
	Observation string             `validate:"max=500"`
	Notes       string             `validate:"max=2000"`
	Severity    classroom.Severity `validate:"min=-1,max=1"`
}

// RecordIncidentResult contains the stored incident.
type RecordIncidentResult struct {
	Incident classroom.BehaviorIncident
	Message  string
}

// RecordIncidentHandler handles the RecordIncidentCommand.
type RecordIncidentHandler struct {
	store StateUpdater
	clock timeutil.Clock
	newID func() string
}

// NewRecordIncidentHandler creates a new handler.
func NewRecordIncidentHandler(store StateUpdater, clock timeutil.Clock) *RecordIncidentHandler {
	return &RecordIncidentHandler{store: store, clock: clockOrSystem(clock), newID: classroom.NewID}
}

// Handle executes the command. The student must exist; a non-empty ClassID
// must match the student's class.
func (h *RecordIncidentHandler) Handle(ctx context.Context, cmd RecordIncidentCommand) (*RecordIncidentResult, error) {
	if err := validateStruct("RecordIncident", cmd); err != nil {
		return nil, fmt.Errorf("record_incident: validation failed: %w", err)
	}

	draft, err := draftFrom(cmd)
	if err != nil {
		return nil, fmt.Errorf("record_incident: %w", err)
	}

	var saved classroom.BehaviorIncident
	_, err = h.store.Update(ctx, func(st classroom.AppState) (classroom.AppState, error) {
		student, ok := st.FindStudent(cmd.StudentID)
		if !ok {
			return st, shared.ErrStudentNotFound
		}
		switch draft.ClassID {
		case "":
			draft.ClassID = student.ClassID
		case student.ClassID:
		default:
			return st, shared.ErrStudentNotInClass
		}

		incident, err := draft.Build(h.newID(), h.clock())
		if err != nil {
			return st, err
		}
		saved = incident
		return st.WithIncident(incident), nil
	})
	if err != nil {
		return nil, fmt.Errorf("record_incident: %w", err)
	}

	return &RecordIncidentResult{Incident: saved, Message: IncidentSavedMessage}, nil
}

// draftFrom fills an IncidentDraft in the order the form is used:
// category, severity, observation, notes.
func draftFrom(cmd RecordIncidentCommand) (*classroom.IncidentDraft, error) {
	draft := classroom.NewIncidentDraft(cmd.ClassID, cmd.StudentID)
	if err := draft.SelectCategory(cmd.Category); err != nil {
		return nil, err
	}
	if err := draft.SetSeverity(cmd.Severity); err != nil {
		return nil, err
	}
	if cmd.Category.IsFreeText() {
		draft.SetFreeText(cmd.Observation)
	} else {
		draft.SelectObservation(cmd.Observation)
	}
	draft.SetNotes(cmd.Notes)
	return draft, nil
}
