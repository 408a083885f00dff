// Package query contains read operations (CQRS - Queries).
//
// Все запросы - чистые функции от свежезагруженного AppState и часов:
// никакого кэша, каждое обращение перечитывает документ целиком.
package query

import (
	"context"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// StateReader - источник текущего состояния (state.Store).
type StateReader interface {
	Load(ctx context.Context) classroom.AppState
}

// clockOrSystem подставляет системные часы, если clock не задан.
func clockOrSystem(clock timeutil.Clock) timeutil.Clock {
	if clock == nil {
		return timeutil.SystemClock
	}
	return clock
}

// StudentDTO - ученик вместе с названием группы.
type StudentDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ClassID   string `json:"classId"`
	ClassName string `json:"className,omitempty"`
}

func toStudentDTO(st classroom.Student, state classroom.AppState) StudentDTO {
	dto := StudentDTO{ID: st.ID, Name: st.Name, ClassID: st.ClassID}
	if c, ok := state.FindClass(st.ClassID); ok {
		dto.ClassName = c.Name
	}
	return dto
}

// ClassDTO - группа без учеников.
type ClassDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func toClassDTO(c classroom.ClassGroup) ClassDTO {
	return ClassDTO{ID: c.ID, Name: c.Name, Color: c.Color}
}
