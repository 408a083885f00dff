package classroom

import (
	"math/big"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// IDENTIFIERS
// ══════════════════════════════════════════════════════════════════════════════

// IDLength - длина идентификаторов сущностей.
const IDLength = 9

var idModulus = new(big.Int).Exp(big.NewInt(36), big.NewInt(IDLength), nil)

// NewID возвращает короткий случайный base36 идентификатор.
// Уникальность не перепроверяется: коллизия 1 к 10^14 считается допустимой.
func NewID() string {
	u := uuid.New()
	n := new(big.Int).SetBytes(u[:])
	n.Mod(n, idModulus)
	s := n.Text(36)
	if len(s) < IDLength {
		s = strings.Repeat("0", IDLength-len(s)) + s
	}
	return s
}

// ClassColors - палитра меток групп.
var ClassColors = []string{
	"bg-red-500",
	"bg-blue-500",
	"bg-green-500",
	"bg-purple-500",
	"bg-orange-500",
	"bg-pink-500",
}

// RandomColor выбирает случайный цвет из палитры.
func RandomColor() string {
	return ClassColors[rand.IntN(len(ClassColors))]
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORE
// ══════════════════════════════════════════════════════════════════════════════

// Score - оценка активности за день, от -2 до 2.
type Score int

const (
	MinScore Score = -2
	MaxScore Score = 2
)

// IsValid проверяет диапазон.
func (s Score) IsValid() bool {
	return s >= MinScore && s <= MaxScore
}

// ScoreOption - вариант оценки для формы выставления баллов.
type ScoreOption struct {
	Value Score  `json:"value"`
	Label string `json:"label"`
}

// ScoreOptions - варианты в порядке отображения.
var ScoreOptions = []ScoreOption{
	{Value: 2, Label: "++"},
	{Value: 1, Label: "+"},
	{Value: 0, Label: "0"},
	{Value: -1, Label: "-"},
	{Value: -2, Label: "--"},
}

// ══════════════════════════════════════════════════════════════════════════════
// SEVERITY
// ══════════════════════════════════════════════════════════════════════════════

// Severity - знак наблюдения: -1 негативное, 0 нейтральное, 1 позитивное.
type Severity int

const (
	SeverityNegative Severity = -1
	SeverityNeutral  Severity = 0
	SeverityPositive Severity = 1
)

// IsValid проверяет диапазон.
func (s Severity) IsValid() bool {
	return s >= SeverityNegative && s <= SeverityPositive
}

// ══════════════════════════════════════════════════════════════════════════════
// WEEKDAY
// ══════════════════════════════════════════════════════════════════════════════

// Weekday - день недели, 0 = воскресенье (как time.Weekday).
type Weekday int

// IsValid проверяет диапазон 0..6.
func (d Weekday) IsValid() bool {
	return d >= 0 && d <= 6
}

// Name возвращает немецкое название дня.
func (d Weekday) Name() string {
	return timeutil.WeekdayNameDe(time.Weekday(d))
}

// Next - следующий день, после субботы идёт воскресенье.
func (d Weekday) Next() Weekday {
	return (d + 1) % 7
}

// Prev - предыдущий день, перед воскресеньем суббота.
func (d Weekday) Prev() Weekday {
	return (d + 6) % 7
}

// WeekdayOf возвращает день недели момента t в часовом поясе школы.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(timeutil.Weekday(t))
}

// NewWeekday создаёт Weekday с проверкой.
func NewWeekday(n int) (Weekday, error) {
	d := Weekday(n)
	if !d.IsValid() {
		return 0, shared.ErrInvalidWeekday
	}
	return d, nil
}
