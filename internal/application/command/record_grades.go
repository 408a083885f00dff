package command

import (
	"context"
	"fmt"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD GRADES COMMAND
// Saves the grading view: one participation log per graded student, all dated
// today and appended in a single update. Students left ungraded get nothing.
// ══════════════════════════════════════════════════════════════════════════════

// RecordGradesCommand contains the scores picked for one class.
type RecordGradesCommand struct {
	ClassID string `validate:"required"`

	// Grades maps student ID to a score in [-2, 2]. Empty is allowed and
	// results in an update that appends nothing.
	Grades map[string]classroom.Score `validate:"dive,keys,required,endkeys,min=-2,max=2"`
}

// RecordGradesResult contains the appended logs in roster order.
type RecordGradesResult struct {
	Date string
	Logs []classroom.ParticipationLog
}

// RecordGradesHandler handles the RecordGradesCommand.
type RecordGradesHandler struct {
	store StateUpdater
	clock timeutil.Clock
	newID func() string
}

// NewRecordGradesHandler creates a new handler.
func NewRecordGradesHandler(store StateUpdater, clock timeutil.Clock) *RecordGradesHandler {
	return &RecordGradesHandler{store: store, clock: clockOrSystem(clock), newID: classroom.NewID}
}

// Handle executes the command. Every graded student must belong to the class.
func (h *RecordGradesHandler) Handle(ctx context.Context, cmd RecordGradesCommand) (*RecordGradesResult, error) {
	if err := validateStruct("RecordGrades", cmd); err != nil {
		return nil, fmt.Errorf("record_grades: validation failed: %w", err)
	}

	now := h.clock()
	date := timeutil.DateKey(now)
	result := &RecordGradesResult{Date: date}

	_, err := h.store.Update(ctx, func(st classroom.AppState) (classroom.AppState, error) {
		if _, err := requireClass(st, cmd.ClassID); err != nil {
			return st, err
		}

		roster := st.StudentsOf(cmd.ClassID)
		members := make(map[string]bool, len(roster))
		for _, s := range roster {
			members[s.ID] = true
		}
		for id := range cmd.Grades {
			if !members[id] {
				return st, shared.WrapError("command", "RecordGrades", shared.ErrInvalidInput,
					fmt.Sprintf("student %s is not in class %s", id, cmd.ClassID), shared.ErrStudentNotInClass)
			}
		}

		logs := make([]classroom.ParticipationLog, 0, len(cmd.Grades))
		for _, s := range roster {
			score, ok := cmd.Grades[s.ID]
			if !ok {
				continue
			}
			logs = append(logs, classroom.ParticipationLog{
				ID:        h.newID(),
				StudentID: s.ID,
				ClassID:   cmd.ClassID,
				Date:      date,
				Score:     score,
				Timestamp: now.UnixMilli(),
			})
		}
		result.Logs = logs
		return st.WithParticipation(logs...), nil
	})
	if err != nil {
		return nil, fmt.Errorf("record_grades: %w", err)
	}

	return result, nil
}
