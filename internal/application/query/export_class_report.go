package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPORT CLASS REPORT QUERY
// Выгрузка группы в Excel: сводка по ученикам, журнал наблюдений и журнал
// оценок. В журналы попадают записи группы, включая удалённых учеников.
// ══════════════════════════════════════════════════════════════════════════════

// Названия листов.
const (
	SheetOverview      = "Übersicht"
	SheetBehavior      = "Verhalten"
	SheetParticipation = "Mitarbeit"
)

// XLSXContentType - MIME-тип книги.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportClassReportQuery - параметры выгрузки.
type ExportClassReportQuery struct {
	ClassID string
}

// Validate проверяет параметры.
func (q ExportClassReportQuery) Validate() error {
	if q.ClassID == "" {
		return errors.New("class_id is required")
	}
	return nil
}

// ClassReportFile - готовая книга.
type ClassReportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportClassReportHandler строит книгу Excel.
type ExportClassReportHandler struct {
	states StateReader
	clock  timeutil.Clock
}

// NewExportClassReportHandler создаёт новый обработчик.
func NewExportClassReportHandler(states StateReader, clock timeutil.Clock) *ExportClassReportHandler {
	return &ExportClassReportHandler{states: states, clock: clockOrSystem(clock)}
}

// Handle выполняет выгрузку. Неизвестная группа - ErrClassNotFound.
func (h *ExportClassReportHandler) Handle(ctx context.Context, query ExportClassReportQuery) (*ClassReportFile, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "ExportClassReport", shared.ErrValidation, err.Error(), err)
	}

	state := h.states.Load(ctx)
	c, ok := state.FindClass(query.ClassID)
	if !ok {
		return nil, shared.ErrClassNotFound
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E2E8F0"}},
	})
	if err != nil {
		return nil, fmt.Errorf("export: header style: %w", err)
	}

	w := &sheetWriter{f: f, header: header}
	if err := f.SetSheetName(f.GetSheetName(0), SheetOverview); err != nil {
		return nil, fmt.Errorf("export: rename sheet: %w", err)
	}
	w.overview(state, c)
	w.behavior(state, c)
	w.participation(state, c)
	if w.err != nil {
		return nil, fmt.Errorf("export: %w", w.err)
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}

	return &ClassReportFile{
		FileName:    reportFileName(c, h.clock()),
		ContentType: XLSXContentType,
		Data:        buf.Bytes(),
	}, nil
}

func reportFileName(c classroom.ClassGroup, now time.Time) string {
	name := strings.Map(func(r rune) rune {
		if r == ' ' || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, c.Name)
	return fmt.Sprintf("%s_%s.xlsx", name, timeutil.DateKey(now))
}

// sheetWriter запоминает первую ошибку, чтобы не проверять каждую ячейку.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) ensureSheet(name string) {
	if w.err != nil {
		return
	}
	if idx, _ := w.f.GetSheetIndex(name); idx >= 0 {
		return
	}
	_, w.err = w.f.NewSheet(name)
}

func (w *sheetWriter) row(sheet string, rowNum int, values ...interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func (w *sheetWriter) headerRow(sheet string, titles ...string) {
	values := make([]interface{}, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	w.row(sheet, 1, values...)
	if w.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(titles), 1)
	if err != nil {
		w.err = err
		return
	}
	if w.err = w.f.SetCellStyle(sheet, "A1", last, w.header); w.err != nil {
		return
	}
	w.err = w.f.SetColWidth(sheet, "A", "F", 18)
}

func (w *sheetWriter) overview(state classroom.AppState, c classroom.ClassGroup) {
	w.headerRow(SheetOverview, "Schüler", "Mitarbeit", "Positiv", "Negativ", "Neutral", "Einträge")
	for i, st := range state.StudentsOf(c.ID) {
		total := 0
		for _, l := range state.ParticipationOf(st.ID) {
			total += int(l.Score)
		}
		incidents := state.IncidentsOf(st.ID)
		tally := BuildBehaviorTally(incidents)
		w.row(SheetOverview, i+2, st.Name, total, tally.Positive, tally.Negative, tally.Neutral, len(incidents))
	}
}

func (w *sheetWriter) behavior(state classroom.AppState, c classroom.ClassGroup) {
	w.ensureSheet(SheetBehavior)
	w.headerRow(SheetBehavior, "Datum", "Schüler", "Kategorie", "Beobachtung", "Wertung", "Notiz")
	row := 2
	for _, b := range state.BehaviorLogs {
		if b.ClassID != c.ID {
			continue
		}
		date := timeutil.FormatGerman(timeutil.FromUnixMilli(b.Timestamp))
		w.row(SheetBehavior, row, date, studentName(state, b.StudentID), string(b.Category), b.Observation, int(b.Severity), b.Notes)
		row++
	}
}

func (w *sheetWriter) participation(state classroom.AppState, c classroom.ClassGroup) {
	w.ensureSheet(SheetParticipation)
	w.headerRow(SheetParticipation, "Datum", "Schüler", "Wertung")
	row := 2
	for _, l := range state.ParticipationLogs {
		if l.ClassID != c.ID {
			continue
		}
		w.row(SheetParticipation, row, l.Date, studentName(state, l.StudentID), int(l.Score))
		row++
	}
}

// studentName возвращает имя, а для удалённого ученика - его ID.
func studentName(state classroom.AppState, id string) string {
	if st, ok := state.FindStudent(id); ok {
		return st.Name
	}
	return id
}
