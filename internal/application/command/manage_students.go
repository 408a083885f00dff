package command

import (
	"context"
	"fmt"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD STUDENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// AddStudentCommand adds a student to an existing class.
type AddStudentCommand struct {
	ClassID string `validate:"required"`
	Name    string `validate:"notblank,max=120"`
}

// AddStudentResult contains the created student.
type AddStudentResult struct {
	Student classroom.Student
}

// AddStudentHandler handles the AddStudentCommand.
type AddStudentHandler struct {
	store StateUpdater
	newID func() string
}

// NewAddStudentHandler creates a new handler.
func NewAddStudentHandler(store StateUpdater) *AddStudentHandler {
	return &AddStudentHandler{store: store, newID: classroom.NewID}
}

// Handle executes the command. An unknown class yields shared.ErrClassNotFound.
func (h *AddStudentHandler) Handle(ctx context.Context, cmd AddStudentCommand) (*AddStudentResult, error) {
	if err := validateStruct("AddStudent", cmd); err != nil {
		return nil, fmt.Errorf("add_student: validation failed: %w", err)
	}
	name, err := shared.NormalizeName(cmd.Name)
	if err != nil {
		return nil, fmt.Errorf("add_student: %w", err)
	}

	student := classroom.Student{ID: h.newID(), Name: name, ClassID: cmd.ClassID}
	_, err = h.store.Update(ctx, func(st classroom.AppState) (classroom.AppState, error) {
		if _, err := requireClass(st, cmd.ClassID); err != nil {
			return st, err
		}
		return st.WithStudent(student), nil
	})
	if err != nil {
		return nil, fmt.Errorf("add_student: %w", err)
	}

	return &AddStudentResult{Student: student}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE STUDENT COMMAND
// By default only the student record goes; their logs stay behind and are
// still counted by class-level views. With purging enabled the logs go too.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteStudentCommand identifies the student to delete.
type DeleteStudentCommand struct {
	StudentID string `validate:"required"`
}

// DeleteStudentResult reports whether logs were purged.
type DeleteStudentResult struct {
	StudentID  string
	LogsPurged bool
}

// DeleteStudentHandler handles the DeleteStudentCommand.
type DeleteStudentHandler struct {
	store     StateUpdater
	purgeLogs func() bool
}

// NewDeleteStudentHandler creates a new handler. purgeLogs is consulted on
// every call so a feature flag can be flipped at runtime; nil means never.
func NewDeleteStudentHandler(store StateUpdater, purgeLogs func() bool) *DeleteStudentHandler {
	if purgeLogs == nil {
		purgeLogs = func() bool { return false }
	}
	return &DeleteStudentHandler{store: store, purgeLogs: purgeLogs}
}

// Handle executes the command. An unknown student yields shared.ErrStudentNotFound.
func (h *DeleteStudentHandler) Handle(ctx context.Context, cmd DeleteStudentCommand) (*DeleteStudentResult, error) {
	if err := validateStruct("DeleteStudent", cmd); err != nil {
		return nil, fmt.Errorf("delete_student: validation failed: %w", err)
	}

	purge := h.purgeLogs()
	_, err := h.store.Update(ctx, func(st classroom.AppState) (classroom.AppState, error) {
		if _, ok := st.FindStudent(cmd.StudentID); !ok {
			return st, shared.ErrStudentNotFound
		}
		next := st.WithoutStudent(cmd.StudentID)
		if purge {
			next = next.WithoutStudentLogs(cmd.StudentID)
		}
		return next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete_student: %w", err)
	}

	return &DeleteStudentResult{StudentID: cmd.StudentID, LogsPurged: purge}, nil
}
