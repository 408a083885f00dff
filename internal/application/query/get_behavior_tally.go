package query

import (
	"context"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET BEHAVIOR TALLY QUERY
// Баланс класса: позитивные против негативных наблюдений по всем ученикам.
// ══════════════════════════════════════════════════════════════════════════════

// Подписи и цвета секторов диаграммы.
const (
	SlicePositive = "Positiv"
	SliceNegative = "Negativ"
	SliceNoData   = "Keine Daten"

	ColorPositive = "#22c55e"
	ColorNegative = "#ef4444"
	ColorNoData   = "#e2e8f0"
)

// SliceDTO - сектор диаграммы.
type SliceDTO struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// BehaviorTallyResult - результат запроса.
type BehaviorTallyResult struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`

	// Neutral в диаграмму не попадает.
	Neutral int `json:"neutral"`

	// Slices - два сектора, либо один "Keine Daten", если считать нечего.
	Slices []SliceDTO `json:"slices"`
}

// GetBehaviorTallyHandler обрабатывает запрос.
type GetBehaviorTallyHandler struct {
	states StateReader
}

// NewGetBehaviorTallyHandler создаёт новый обработчик.
func NewGetBehaviorTallyHandler(states StateReader) *GetBehaviorTallyHandler {
	return &GetBehaviorTallyHandler{states: states}
}

// Handle выполняет запрос.
func (h *GetBehaviorTallyHandler) Handle(ctx context.Context) (*BehaviorTallyResult, error) {
	return BuildBehaviorTally(h.states.Load(ctx).BehaviorLogs), nil
}

// BuildBehaviorTally считает баланс по списку наблюдений.
func BuildBehaviorTally(logs []classroom.BehaviorIncident) *BehaviorTallyResult {
	result := &BehaviorTallyResult{}
	for _, b := range logs {
		switch {
		case b.Severity > 0:
			result.Positive++
		case b.Severity < 0:
			result.Negative++
		default:
			result.Neutral++
		}
	}

	if result.Positive == 0 && result.Negative == 0 {
		result.Slices = []SliceDTO{{Name: SliceNoData, Value: 1, Color: ColorNoData}}
		return result
	}
	result.Slices = []SliceDTO{
		{Name: SlicePositive, Value: result.Positive, Color: ColorPositive},
		{Name: SliceNegative, Value: result.Negative, Color: ColorNegative},
	}
	return result
}
