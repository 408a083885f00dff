package classroom

import (
	"strings"
	"time"

	"github.com/concordia-classroom/concordia/internal/domain/shared"
)

// IncidentDraft - состояние формы ввода наблюдения.
// Правила:
//   - смена категории очищает наблюдение;
//   - выбор пункта каталога выставляет оценку из каталога, перекрывая ручную;
//   - свободный текст (категория без каталога) всегда нейтрален;
//   - без ученика, или без наблюдения в категории с каталогом, отправка невозможна.
type IncidentDraft struct {
	StudentID   string
	ClassID     string
	Category    Category
	Observation string
	Notes       string
	Severity    Severity
}

// NewIncidentDraft создаёт пустую форму с категорией по умолчанию.
func NewIncidentDraft(classID, studentID string) *IncidentDraft {
	return &IncidentDraft{
		ClassID:   classID,
		StudentID: studentID,
		Category:  CategoryResponsibility,
	}
}

// SelectCategory переключает категорию и очищает наблюдение.
func (d *IncidentDraft) SelectCategory(c Category) error {
	if !c.IsValid() {
		return shared.ErrInvalidCategory
	}
	d.Category = c
	d.Observation = ""
	if c.IsFreeText() {
		d.Severity = SeverityNeutral
	}
	return nil
}

// SelectObservation выбирает пункт каталога текущей категории.
// Для текста не из каталога оценка остаётся прежней.
func (d *IncidentDraft) SelectObservation(text string) {
	d.Observation = text
	if item, ok := LookupObservation(d.Category, text); ok {
		d.Severity = item.Severity
	}
}

// SetFreeText вводит наблюдение вручную и сбрасывает оценку в нейтральную.
func (d *IncidentDraft) SetFreeText(text string) {
	d.Observation = text
	d.Severity = SeverityNeutral
}

// SetSeverity выставляет оценку вручную.
func (d *IncidentDraft) SetSeverity(s Severity) error {
	if !s.IsValid() {
		return shared.ErrInvalidSeverity
	}
	d.Severity = s
	return nil
}

// SetNotes задаёт необязательную заметку.
func (d *IncidentDraft) SetNotes(notes string) {
	d.Notes = notes
}

// finalObservation - наблюдение, а если его нет, то заметка.
func (d *IncidentDraft) finalObservation() string {
	if obs := strings.TrimSpace(d.Observation); obs != "" {
		return obs
	}
	return strings.TrimSpace(d.Notes)
}

// CanSubmit повторяет условие активности кнопки "Speichern".
func (d *IncidentDraft) CanSubmit() bool {
	if d.StudentID == "" {
		return false
	}
	if strings.TrimSpace(d.Observation) == "" && !d.Category.IsFreeText() {
		return false
	}
	return d.finalObservation() != ""
}

// Build превращает форму в запись журнала.
func (d *IncidentDraft) Build(id string, now time.Time) (BehaviorIncident, error) {
	if !d.CanSubmit() {
		return BehaviorIncident{}, shared.ErrIncidentIncomplete
	}
	if !d.Category.IsValid() {
		return BehaviorIncident{}, shared.ErrInvalidCategory
	}
	if !d.Severity.IsValid() {
		return BehaviorIncident{}, shared.ErrInvalidSeverity
	}
	return BehaviorIncident{
		ID:          id,
		StudentID:   d.StudentID,
		ClassID:     d.ClassID,
		Category:    d.Category,
		Observation: d.finalObservation(),
		Notes:       strings.TrimSpace(d.Notes),
		Severity:    d.Severity,
		Timestamp:   now.UnixMilli(),
	}, nil
}

// Reset очищает поля после успешного сохранения; ученик и категория остаются.
func (d *IncidentDraft) Reset() {
	d.Observation = ""
	d.Notes = ""
	d.Severity = SeverityNeutral
}
