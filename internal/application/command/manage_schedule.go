package command

import (
	"context"
	"fmt"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD SCHEDULE ITEM COMMAND
// Adds a weekly recurring lesson. Overlapping slots are allowed.
// ══════════════════════════════════════════════════════════════════════════════

// AddScheduleItemCommand contains the lesson slot.
type AddScheduleItemCommand struct {
	ClassID string `validate:"required"`

	// DayOfWeek is 0 (Sunday) through 6 (Saturday).
	DayOfWeek int `validate:"min=0,max=6"`

	StartTime string `validate:"hhmm"`
	EndTime   string `validate:"hhmm"`
}

// AddScheduleItemResult contains the created slot.
type AddScheduleItemResult struct {
	Item classroom.ScheduleItem
}

// AddScheduleItemHandler handles the AddScheduleItemCommand.
type AddScheduleItemHandler struct {
	store StateUpdater
	newID func() string
}

// NewAddScheduleItemHandler creates a new handler.
func NewAddScheduleItemHandler(store StateUpdater) *AddScheduleItemHandler {
	return &AddScheduleItemHandler{store: store, newID: classroom.NewID}
}

// Handle executes the command.
func (h *AddScheduleItemHandler) Handle(ctx context.Context, cmd AddScheduleItemCommand) (*AddScheduleItemResult, error) {
	if err := validateStruct("AddScheduleItem", cmd); err != nil {
		return nil, fmt.Errorf("add_schedule_item: validation failed: %w", err)
	}
	day, err := classroom.NewWeekday(cmd.DayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("add_schedule_item: %w", err)
	}

	item := classroom.ScheduleItem{
		ID:        h.newID(),
		ClassID:   cmd.ClassID,
		DayOfWeek: day,
		StartTime: shared.ClockTime(cmd.StartTime),
		EndTime:   shared.ClockTime(cmd.EndTime),
	}
	_, err = h.store.Update(ctx, func(st classroom.AppState) (classroom.AppState, error) {
		if _, err := requireClass(st, cmd.ClassID); err != nil {
			return st, err
		}
		return st.WithScheduleItem(item), nil
	})
	if err != nil {
		return nil, fmt.Errorf("add_schedule_item: %w", err)
	}

	return &AddScheduleItemResult{Item: item}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REMOVE SCHEDULE ITEM COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RemoveScheduleItemCommand identifies the slot to remove.
type RemoveScheduleItemCommand struct {
	ItemID string `validate:"required"`
}

// RemoveScheduleItemHandler handles the RemoveScheduleItemCommand.
type RemoveScheduleItemHandler struct {
	store StateUpdater
}

// NewRemoveScheduleItemHandler creates a new handler.
func NewRemoveScheduleItemHandler(store StateUpdater) *RemoveScheduleItemHandler {
	return &RemoveScheduleItemHandler{store: store}
}

// Handle executes the command. An unknown slot yields shared.ErrScheduleItemNotFound.
func (h *RemoveScheduleItemHandler) Handle(ctx context.Context, cmd RemoveScheduleItemCommand) error {
	if err := validateStruct("RemoveScheduleItem", cmd); err != nil {
		return fmt.Errorf("remove_schedule_item: validation failed: %w", err)
	}

	_, err := h.store.Update(ctx, func(st classroom.AppState) (classroom.AppState, error) {
		for _, it := range st.Schedule {
			if it.ID == cmd.ItemID {
				return st.WithoutScheduleItem(cmd.ItemID), nil
			}
		}
		return st, shared.ErrScheduleItemNotFound
	})
	if err != nil {
		return fmt.Errorf("remove_schedule_item: %w", err)
	}
	return nil
}
