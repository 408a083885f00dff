package command

import (
	"context"
	"fmt"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE CLASS COMMAND
// Adds a class group with a color picked at random from the palette.
// ══════════════════════════════════════════════════════════════════════════════

// CreateClassCommand contains the data for a new class.
type CreateClassCommand struct {
	// Name is the display name, e.g. "Geschichte 7b".
	Name string `validate:"notblank,max=120"`
}

// CreateClassResult contains the created class.
type CreateClassResult struct {
	Class classroom.ClassGroup
}

// CreateClassHandler handles the CreateClassCommand.
type CreateClassHandler struct {
	store StateUpdater

	// newID and color are swappable for tests.
	newID func() string
	color func() string
}

// NewCreateClassHandler creates a new handler.
func NewCreateClassHandler(store StateUpdater) *CreateClassHandler {
	return &CreateClassHandler{
		store: store,
		newID: classroom.NewID,
		color: classroom.RandomColor,
	}
}

// Handle executes the command.
func (h *CreateClassHandler) Handle(ctx context.Context, cmd CreateClassCommand) (*CreateClassResult, error) {
	if err := validateStruct("CreateClass", cmd); err != nil {
		return nil, fmt.Errorf("create_class: validation failed: %w", err)
	}
	name, err := shared.NormalizeName(cmd.Name)
	if err != nil {
		return nil, fmt.Errorf("create_class: %w", err)
	}

	c := classroom.ClassGroup{ID: h.newID(), Name: name, Color: h.color()}
	_, err = h.store.Update(ctx, func(st classroom.AppState) (classroom.AppState, error) {
		return st.WithClass(c), nil
	})
	if err != nil {
		return nil, fmt.Errorf("create_class: %w", err)
	}

	return &CreateClassResult{Class: c}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE CLASS COMMAND
// Removes a class together with its students and schedule slots. Participation
// and behavior logs of those students stay in the document.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteClassCommand identifies the class to delete.
type DeleteClassCommand struct {
	ClassID string `validate:"required"`
}

// DeleteClassResult reports what the cascade removed.
type DeleteClassResult struct {
	ClassID         string
	StudentsRemoved int
	LessonsRemoved  int
}

// DeleteClassHandler handles the DeleteClassCommand.
type DeleteClassHandler struct {
	store StateUpdater
}

// NewDeleteClassHandler creates a new handler.
func NewDeleteClassHandler(store StateUpdater) *DeleteClassHandler {
	return &DeleteClassHandler{store: store}
}

// Handle executes the command. An unknown class yields shared.ErrClassNotFound.
func (h *DeleteClassHandler) Handle(ctx context.Context, cmd DeleteClassCommand) (*DeleteClassResult, error) {
	if err := validateStruct("DeleteClass", cmd); err != nil {
		return nil, fmt.Errorf("delete_class: validation failed: %w", err)
	}

	result := &DeleteClassResult{ClassID: cmd.ClassID}
	_, err := h.store.Update(ctx, func(st classroom.AppState) (classroom.AppState, error) {
		if _, err := requireClass(st, cmd.ClassID); err != nil {
			return st, err
		}
		result.StudentsRemoved = len(st.StudentsOf(cmd.ClassID))
		for _, it := range st.Schedule {
			if it.ClassID == cmd.ClassID {
				result.LessonsRemoved++
			}
		}
		return st.WithoutClass(cmd.ClassID), nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete_class: %w", err)
	}

	return result, nil
}
