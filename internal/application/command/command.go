// Package command contains write operations (CQRS - Commands).
//
// Every handler validates its command and then applies exactly one
// state.Store.Update, so a command is either fully persisted and broadcast
// or has no effect at all.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/concordia-classroom/concordia/internal/application/state"
	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// StateUpdater is the write side of state.Store.
type StateUpdater interface {
	Update(ctx context.Context, fn state.Mutation) (classroom.AppState, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// hhmm: zero-padded 24h wall clock, e.g. "08:00".
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return shared.ClockTime(fl.Field().String()).IsValid()
	})

	// category: one of the five behavior categories.
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return classroom.Category(fl.Field().String()).IsValid()
	})

	// notblank: required after trimming whitespace.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return v
}

// validateStruct runs the struct tags of cmd and converts failures into a
// shared.ErrValidation domain error naming the offending fields.
func validateStruct(op string, cmd interface{}) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.WrapError("command", op, shared.ErrValidation, err.Error(), err)
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return shared.WrapError("command", op, shared.ErrValidation, strings.Join(parts, "; "), err)
}

// clockOrSystem falls back to the system clock when none is injected.
func clockOrSystem(clock timeutil.Clock) timeutil.Clock {
	if clock == nil {
		return timeutil.SystemClock
	}
	return clock
}

// requireClass is the referential check shared by class-scoped commands.
func requireClass(st classroom.AppState, classID string) (classroom.ClassGroup, error) {
	c, ok := st.FindClass(classID)
	if !ok {
		return classroom.ClassGroup{}, shared.ErrClassNotFound
	}
	return c, nil
}
