package query

import (
	"context"
	"errors"
	"time"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT STATS QUERY
// Карточка ученика на странице анализа: сумма баллов, число наблюдений,
// тренд за 7 дней и последние записи о поведении.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// TrendDays - длина тренда, включая сегодня.
	TrendDays = 7

	// RecentIncidentsLimit - сколько последних наблюдений показывать.
	RecentIncidentsLimit = 5

	// NoEntriesMessage - текст пустого списка наблюдений.
	NoEntriesMessage = "Keine Einträge vorhanden."
)

// GetStudentStatsQuery - параметры запроса.
type GetStudentStatsQuery struct {
	StudentID string
}

// Validate проверяет параметры.
func (q GetStudentStatsQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	return nil
}

// TrendPointDTO - столбец графика: день (MM-DD) и сумма баллов за день.
type TrendPointDTO struct {
	Label string `json:"label"`
	Date  string `json:"date"`
	Score int    `json:"score"`
}

// IncidentDTO - наблюдение для отображения.
type IncidentDTO struct {
	ID          string             `json:"id"`
	Category    classroom.Category `json:"category"`
	Observation string             `json:"observation"`
	Notes       string             `json:"notes,omitempty"`
	Severity    classroom.Severity `json:"severity"`
	Timestamp   int64              `json:"timestamp"`
	Date        string             `json:"date"`
}

func toIncidentDTO(b classroom.BehaviorIncident) IncidentDTO {
	return IncidentDTO{
		ID:          b.ID,
		Category:    b.Category,
		Observation: b.Observation,
		Notes:       b.Notes,
		Severity:    b.Severity,
		Timestamp:   b.Timestamp,
		Date:        timeutil.FormatGerman(timeutil.FromUnixMilli(b.Timestamp)),
	}
}

// StudentStatsResult - результат запроса.
type StudentStatsResult struct {
	Student StudentDTO `json:"student"`

	// TotalScore - сумма всех оценок активности (0, если оценок нет).
	TotalScore int `json:"totalScore"`

	// IncidentCount - число всех наблюдений.
	IncidentCount int `json:"incidentCount"`

	// Trend - ровно TrendDays точек, от самой старой к сегодняшней.
	Trend []TrendPointDTO `json:"trend"`

	// RecentIncidents - до RecentIncidentsLimit последних, новые первыми.
	RecentIncidents []IncidentDTO `json:"recentIncidents"`

	// HasEntries == false означает пустой список; показывается EmptyMessage.
	HasEntries   bool   `json:"hasEntries"`
	EmptyMessage string `json:"emptyMessage,omitempty"`
}

// GetStudentStatsHandler обрабатывает запрос.
type GetStudentStatsHandler struct {
	states StateReader
	clock  timeutil.Clock
}

// NewGetStudentStatsHandler создаёт новый обработчик.
func NewGetStudentStatsHandler(states StateReader, clock timeutil.Clock) *GetStudentStatsHandler {
	return &GetStudentStatsHandler{states: states, clock: clockOrSystem(clock)}
}

// Handle выполняет запрос. Неизвестный ученик - ErrStudentNotFound.
func (h *GetStudentStatsHandler) Handle(ctx context.Context, query GetStudentStatsQuery) (*StudentStatsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetStudentStats", shared.ErrValidation, err.Error(), err)
	}

	state := h.states.Load(ctx)
	st, ok := state.FindStudent(query.StudentID)
	if !ok {
		return nil, shared.ErrStudentNotFound
	}

	return BuildStudentStats(state, st, h.clock()), nil
}

// BuildStudentStats считает статистику по уже загруженному состоянию.
// Используется и отчётом, чтобы не загружать документ повторно.
func BuildStudentStats(state classroom.AppState, st classroom.Student, now time.Time) *StudentStatsResult {
	logs := state.ParticipationOf(st.ID)
	incidents := state.IncidentsOf(st.ID)

	total := 0
	byDate := make(map[string]int)
	for _, l := range logs {
		total += int(l.Score)
		byDate[l.Date] += int(l.Score)
	}

	days := timeutil.LastNDays(now, TrendDays)
	trend := make([]TrendPointDTO, 0, len(days))
	for _, d := range days {
		key := timeutil.DateKey(d)
		trend = append(trend, TrendPointDTO{
			Label: timeutil.ChartLabel(d),
			Date:  key,
			Score: byDate[key],
		})
	}

	recent := make([]IncidentDTO, 0, RecentIncidentsLimit)
	for i := len(incidents) - 1; i >= 0 && len(recent) < RecentIncidentsLimit; i-- {
		recent = append(recent, toIncidentDTO(incidents[i]))
	}

	result := &StudentStatsResult{
		Student:         toStudentDTO(st, state),
		TotalScore:      total,
		IncidentCount:   len(incidents),
		Trend:           trend,
		RecentIncidents: recent,
		HasEntries:      len(incidents) > 0,
	}
	if !result.HasEntries {
		result.EmptyMessage = NoEntriesMessage
	}
	return result
}
