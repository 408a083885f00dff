package query

import (
	"context"
	"sort"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SCHEDULE FOR DAY QUERY
// Дневной вид расписания: уроки выбранного дня недели по времени начала,
// с навигацией на соседние дни (суббота <-> воскресенье по кругу).
// ══════════════════════════════════════════════════════════════════════════════

// EmptyDayMessage показывается, когда в выбранный день нет уроков.
const EmptyDayMessage = "Kein Unterricht an diesem Tag geplant."

// GetScheduleQuery - параметры запроса. Day == nil означает "сегодня".
type GetScheduleQuery struct {
	Day *int
}

// Validate проверяет день недели.
func (q GetScheduleQuery) Validate() error {
	if q.Day != nil {
		if _, err := classroom.NewWeekday(*q.Day); err != nil {
			return err
		}
	}
	return nil
}

// LessonDTO - урок вместе с данными группы.
type LessonDTO struct {
	ItemID     string `json:"itemId"`
	ClassID    string `json:"classId"`
	ClassName  string `json:"className"`
	ClassColor string `json:"classColor"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
}

// DayRefDTO - ссылка на соседний день.
type DayRefDTO struct {
	Day  int    `json:"day"`
	Name string `json:"name"`
}

// ScheduleDayResult - результат запроса.
type ScheduleDayResult struct {
	Day     int    `json:"day"`
	DayName string `json:"dayName"`
	IsToday bool   `json:"isToday"`

	// Today - дата сегодня в немецком формате (шапка страницы).
	Today string `json:"today"`

	Prev DayRefDTO `json:"prev"`
	Next DayRefDTO `json:"next"`

	Lessons []LessonDTO `json:"lessons"`

	// EmptyMessage заполнен, только когда Lessons пуст.
	EmptyMessage string `json:"emptyMessage,omitempty"`
}

// GetScheduleHandler обрабатывает запрос расписания.
type GetScheduleHandler struct {
	states StateReader
	clock  timeutil.Clock
}

// NewGetScheduleHandler создаёт новый обработчик.
func NewGetScheduleHandler(states StateReader, clock timeutil.Clock) *GetScheduleHandler {
	return &GetScheduleHandler{states: states, clock: clockOrSystem(clock)}
}

// Handle выполняет запрос.
func (h *GetScheduleHandler) Handle(ctx context.Context, query GetScheduleQuery) (*ScheduleDayResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetSchedule", shared.ErrValidation, err.Error(), err)
	}

	now := h.clock()
	today := classroom.WeekdayOf(now)
	day := today
	if query.Day != nil {
		day = classroom.Weekday(*query.Day)
	}

	state := h.states.Load(ctx)
	lessons := lessonsFor(state, day)
	result := &ScheduleDayResult{
		Day:     int(day),
		DayName: day.Name(),
		IsToday: day == today,
		Today:   timeutil.FormatGerman(now),
		Prev:    DayRefDTO{Day: int(day.Prev()), Name: day.Prev().Name()},
		Next:    DayRefDTO{Day: int(day.Next()), Name: day.Next().Name()},
		Lessons: lessons,
	}
	if len(lessons) == 0 {
		result.EmptyMessage = EmptyDayMessage
	}
	return result, nil
}

// lessonsFor отбирает уроки дня и сортирует по началу. Уроки удалённых
// групп пропускаются.
func lessonsFor(state classroom.AppState, day classroom.Weekday) []LessonDTO {
	items := make([]classroom.ScheduleItem, 0)
	for _, it := range state.Schedule {
		if it.DayOfWeek == day {
			items = append(items, it)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].StartTime < items[j].StartTime
	})

	lessons := make([]LessonDTO, 0, len(items))
	for _, it := range items {
		c, ok := state.FindClass(it.ClassID)
		if !ok {
			continue
		}
		lessons = append(lessons, LessonDTO{
			ItemID:     it.ID,
			ClassID:    c.ID,
			ClassName:  c.Name,
			ClassColor: c.Color,
			StartTime:  it.StartTime.String(),
			EndTime:    it.EndTime.String(),
		})
	}
	return lessons
}
