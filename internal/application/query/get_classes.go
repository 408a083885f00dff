package query

import (
	"context"
	"errors"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLASS OVERVIEW AND ROSTER QUERIES
// Страница групп: все группы со списками учеников, и список одной группы.
// ══════════════════════════════════════════════════════════════════════════════

// ClassWithRosterDTO - группа и её ученики в порядке добавления.
type ClassWithRosterDTO struct {
	ClassDTO
	Students []StudentDTO `json:"students"`
}

// ClassOverviewResult - результат запроса обзора групп.
type ClassOverviewResult struct {
	Classes []ClassWithRosterDTO `json:"classes"`
}

// GetClassOverviewHandler строит обзор всех групп.
type GetClassOverviewHandler struct {
	states StateReader
}

// NewGetClassOverviewHandler создаёт новый обработчик.
func NewGetClassOverviewHandler(states StateReader) *GetClassOverviewHandler {
	return &GetClassOverviewHandler{states: states}
}

// Handle выполняет запрос.
func (h *GetClassOverviewHandler) Handle(ctx context.Context) (*ClassOverviewResult, error) {
	state := h.states.Load(ctx)

	classes := make([]ClassWithRosterDTO, 0, len(state.Classes))
	for _, c := range state.Classes {
		classes = append(classes, ClassWithRosterDTO{
			ClassDTO: toClassDTO(c),
			Students: rosterOf(state, c.ID),
		})
	}
	return &ClassOverviewResult{Classes: classes}, nil
}

// GetClassRosterQuery - параметры запроса списка группы.
type GetClassRosterQuery struct {
	ClassID string
}

// Validate проверяет параметры.
func (q GetClassRosterQuery) Validate() error {
	if q.ClassID == "" {
		return errors.New("class_id is required")
	}
	return nil
}

// GetClassRosterHandler возвращает одну группу со списком.
type GetClassRosterHandler struct {
	states StateReader
}

// NewGetClassRosterHandler создаёт новый обработчик.
func NewGetClassRosterHandler(states StateReader) *GetClassRosterHandler {
	return &GetClassRosterHandler{states: states}
}

// Handle выполняет запрос. Неизвестная группа - ErrClassNotFound.
func (h *GetClassRosterHandler) Handle(ctx context.Context, query GetClassRosterQuery) (*ClassWithRosterDTO, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetClassRoster", shared.ErrValidation, err.Error(), err)
	}

	state := h.states.Load(ctx)
	c, ok := state.FindClass(query.ClassID)
	if !ok {
		return nil, shared.ErrClassNotFound
	}
	return &ClassWithRosterDTO{ClassDTO: toClassDTO(c), Students: rosterOf(state, c.ID)}, nil
}

func rosterOf(state classroom.AppState, classID string) []StudentDTO {
	students := state.StudentsOf(classID)
	out := make([]StudentDTO, 0, len(students))
	for _, st := range students {
		out = append(out, toStudentDTO(st, state))
	}
	return out
}
