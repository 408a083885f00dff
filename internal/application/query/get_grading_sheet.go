package query

import (
	"context"
	"errors"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET GRADING SHEET QUERY
// Лист оценок активности: группа, её ученики и варианты оценки на сегодня.
// ══════════════════════════════════════════════════════════════════════════════

// GetGradingSheetQuery - параметры запроса.
type GetGradingSheetQuery struct {
	ClassID string
}

// Validate проверяет параметры.
func (q GetGradingSheetQuery) Validate() error {
	if q.ClassID == "" {
		return errors.New("class_id is required")
	}
	return nil
}

// GradingRowDTO - строка листа: ученик и уже выставленная сегодня оценка.
type GradingRowDTO struct {
	Student StudentDTO `json:"student"`

	// TodayScore - последняя оценка за сегодня, если она уже есть.
	TodayScore *classroom.Score `json:"todayScore,omitempty"`
}

// GradingSheetResult - результат запроса.
type GradingSheetResult struct {
	Class ClassDTO `json:"class"`

	// Date - ключ дня (YYYY-MM-DD), под которым сохранятся оценки.
	Date string `json:"date"`

	// DateLabel - та же дата в немецком формате.
	DateLabel string `json:"dateLabel"`

	Rows    []GradingRowDTO         `json:"rows"`
	Options []classroom.ScoreOption `json:"options"`
}

// GetGradingSheetHandler обрабатывает запрос.
type GetGradingSheetHandler struct {
	states StateReader
	clock  timeutil.Clock
}

// NewGetGradingSheetHandler создаёт новый обработчик.
func NewGetGradingSheetHandler(states StateReader, clock timeutil.Clock) *GetGradingSheetHandler {
	return &GetGradingSheetHandler{states: states, clock: clockOrSystem(clock)}
}

// Handle выполняет запрос. Неизвестная группа - ErrClassNotFound.
func (h *GetGradingSheetHandler) Handle(ctx context.Context, query GetGradingSheetQuery) (*GradingSheetResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetGradingSheet", shared.ErrValidation, err.Error(), err)
	}

	state := h.states.Load(ctx)
	c, ok := state.FindClass(query.ClassID)
	if !ok {
		return nil, shared.ErrClassNotFound
	}

	now := h.clock()
	date := timeutil.DateKey(now)

	// последняя оценка за сегодня по каждому ученику
	today := make(map[string]classroom.Score)
	for _, l := range state.ParticipationLogs {
		if l.ClassID == c.ID && l.Date == date {
			today[l.StudentID] = l.Score
		}
	}

	students := state.StudentsOf(c.ID)
	rows := make([]GradingRowDTO, 0, len(students))
	for _, st := range students {
		row := GradingRowDTO{Student: toStudentDTO(st, state)}
		if score, ok := today[st.ID]; ok {
			row.TodayScore = &score
		}
		rows = append(rows, row)
	}

	options := make([]classroom.ScoreOption, len(classroom.ScoreOptions))
	copy(options, classroom.ScoreOptions)

	return &GradingSheetResult{
		Class:     toClassDTO(c),
		Date:      date,
		DateLabel: timeutil.FormatGerman(now),
		Rows:      rows,
		Options:   options,
	}, nil
}
