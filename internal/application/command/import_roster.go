package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IMPORT ROSTER COMMAND
// Bulk-adds students from an Excel workbook: first sheet, header row skipped,
// first column is the student name, blank rows ignored. All students are
// appended in one update.
// ══════════════════════════════════════════════════════════════════════════════

// ImportRosterCommand contains the target class and the workbook.
type ImportRosterCommand struct {
	ClassID string    `validate:"required"`
	File    io.Reader `validate:"required"`
}

// ImportRosterResult contains the students that were added.
type ImportRosterResult struct {
	Students []classroom.Student
	Skipped  int
}

// ImportRosterHandler handles the ImportRosterCommand.
type ImportRosterHandler struct {
	store  StateUpdater
	newID  func() string
	logger *slog.Logger
}

// NewImportRosterHandler creates a new handler.
func NewImportRosterHandler(store StateUpdater, logger *slog.Logger) *ImportRosterHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportRosterHandler{store: store, newID: classroom.NewID, logger: logger}
}

// Handle executes the command. A workbook without usable rows is rejected
// with a validation error and nothing is written.
func (h *ImportRosterHandler) Handle(ctx context.Context, cmd ImportRosterCommand) (*ImportRosterResult, error) {
	if err := validateStruct("ImportRoster", cmd); err != nil {
		return nil, fmt.Errorf("import_roster: validation failed: %w", err)
	}

	names, skipped, err := readRosterNames(cmd.File)
	if err != nil {
		return nil, fmt.Errorf("import_roster: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("import_roster: %w",
			shared.NewDomainError("command", "ImportRoster", shared.ErrValidation, "workbook contains no student names"))
	}

	students := make([]classroom.Student, 0, len(names))
	for _, name := range names {
		students = append(students, classroom.Student{ID: h.newID(), Name: name, ClassID: cmd.ClassID})
	}

	_, err = h.store.Update(ctx, func(st classroom.AppState) (classroom.AppState, error) {
		if _, err := requireClass(st, cmd.ClassID); err != nil {
			return st, err
		}
		for _, s := range students {
			st = st.WithStudent(s)
		}
		return st, nil
	})
	if err != nil {
		return nil, fmt.Errorf("import_roster: %w", err)
	}

	h.logger.Info("roster imported",
		"class_id", cmd.ClassID,
		"added", len(students),
		"skipped", skipped,
	)
	return &ImportRosterResult{Students: students, Skipped: skipped}, nil
}

// readRosterNames extracts normalized names from the first sheet.
func readRosterNames(r io.Reader) (names []string, skipped int, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, shared.WrapError("command", "ImportRoster", shared.ErrInvalidFormat, "not a readable xlsx workbook", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, 0, shared.NewDomainError("command", "ImportRoster", shared.ErrInvalidFormat, "workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, 0, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			skipped++
			continue
		}
		name, err := shared.NormalizeName(row[0])
		if err != nil {
			skipped++
			continue
		}
		names = append(names, name)
	}
	return names, skipped, nil
}
