package classroom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/concordia-classroom/concordia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// ClassGroup - учебная группа учителя (например, "Geschichte 7b").
type ClassGroup struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Student - ученик, всегда принадлежит ровно одной группе.
type Student struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	ClassID string `json:"classId"`
}

// ScheduleItem - повторяющийся еженедельный урок.
// Пересечения слотов не проверяются.
type ScheduleItem struct {
	ID        string           `json:"id"`
	ClassID   string           `json:"classId"`
	DayOfWeek Weekday          `json:"dayOfWeek"`
	StartTime shared.ClockTime `json:"startTime"`
	EndTime   shared.ClockTime `json:"endTime"`
}

// ParticipationLog - оценка активности ученика за день. Только добавляется.
type ParticipationLog struct {
	ID        string `json:"id"`
	StudentID string `json:"studentId"`
	ClassID   string `json:"classId"`
	Date      string `json:"date"` // YYYY-MM-DD
	Score     Score  `json:"score"`
	Timestamp int64  `json:"timestamp"` // Unix ms
}

// BehaviorIncident - наблюдение о поведении ученика. Только добавляется.
type BehaviorIncident struct {
	ID          string   `json:"id"`
	StudentID   string   `json:"studentId"`
	ClassID     string   `json:"classId"`
	Category    Category `json:"category"`
	Observation string   `json:"observation"`
	Notes       string   `json:"notes,omitempty"`
	Severity    Severity `json:"severity"`
	Timestamp   int64    `json:"timestamp"` // Unix ms
}

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATE
// ══════════════════════════════════════════════════════════════════════════════

// AppState - весь журнал. Сохраняется и загружается одним документом.
type AppState struct {
	Classes           []ClassGroup       `json:"classes"`
	Students          []Student          `json:"students"`
	Schedule          []ScheduleItem     `json:"schedule"`
	ParticipationLogs []ParticipationLog `json:"participationLogs"`
	BehaviorLogs      []BehaviorIncident `json:"behaviorLogs"`
}

// Clone возвращает глубокую копию состояния. Пустые коллекции
// нормализуются в пустые срезы, чтобы JSON всегда содержал [] а не null.
func (s AppState) Clone() AppState {
	return AppState{
		Classes:           cloneSlice(s.Classes),
		Students:          cloneSlice(s.Students),
		Schedule:          cloneSlice(s.Schedule),
		ParticipationLogs: cloneSlice(s.ParticipationLogs),
		BehaviorLogs:      cloneSlice(s.BehaviorLogs),
	}
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// FindClass ищет группу по ID.
func (s AppState) FindClass(id string) (ClassGroup, bool) {
	for _, c := range s.Classes {
		if c.ID == id {
			return c, true
		}
	}
	return ClassGroup{}, false
}

// FindStudent ищет ученика по ID.
func (s AppState) FindStudent(id string) (Student, bool) {
	for _, st := range s.Students {
		if st.ID == id {
			return st, true
		}
	}
	return Student{}, false
}

// StudentsOf возвращает учеников группы в порядке добавления.
func (s AppState) StudentsOf(classID string) []Student {
	out := make([]Student, 0)
	for _, st := range s.Students {
		if st.ClassID == classID {
			out = append(out, st)
		}
	}
	return out
}

// ParticipationOf возвращает все оценки ученика в порядке добавления.
func (s AppState) ParticipationOf(studentID string) []ParticipationLog {
	out := make([]ParticipationLog, 0)
	for _, l := range s.ParticipationLogs {
		if l.StudentID == studentID {
			out = append(out, l)
		}
	}
	return out
}

// IncidentsOf возвращает все наблюдения об ученике в порядке добавления.
func (s AppState) IncidentsOf(studentID string) []BehaviorIncident {
	out := make([]BehaviorIncident, 0)
	for _, b := range s.BehaviorLogs {
		if b.StudentID == studentID {
			out = append(out, b)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// SERIALIZATION
// ══════════════════════════════════════════════════════════════════════════════

// ErrMalformedState - документ не удалось разобрать как AppState.
var ErrMalformedState = errors.New("malformed state document")

// EncodeState сериализует состояние в формат хранения.
func EncodeState(s AppState) ([]byte, error) {
	data, err := json.Marshal(s.Clone())
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// DecodeState разбирает документ. Проверка только синтаксическая:
// документ должен быть JSON-объектом, отсутствующие коллекции становятся пустыми.
func DecodeState(data []byte) (AppState, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return AppState{}, ErrMalformedState
	}
	var s AppState
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return AppState{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	return s.Clone(), nil
}
