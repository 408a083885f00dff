package http

import (
	"log/slog"

	"github.com/concordia-classroom/concordia/internal/application/command"
	"github.com/concordia-classroom/concordia/internal/application/query"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// StateStore is the read and write side of state.Store.
type StateStore interface {
	StateReader
	command.StateUpdater
}

// WireApplication builds every query and command handler over one store.
// purgeLogs decides whether deleting a student also drops their logs.
func (d *Dependencies) WireApplication(store StateStore, clock timeutil.Clock, purgeLogs func() bool, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}

	d.States = store

	d.Schedule = query.NewGetScheduleHandler(store, clock)
	d.ClassOverview = query.NewGetClassOverviewHandler(store)
	d.ClassRoster = query.NewGetClassRosterHandler(store)
	d.GradingSheet = query.NewGetGradingSheetHandler(store, clock)
	d.BehaviorTally = query.NewGetBehaviorTallyHandler(store)
	d.StudentStats = query.NewGetStudentStatsHandler(store, clock)
	d.ExportClass = query.NewExportClassReportHandler(store, clock)

	d.CreateClass = command.NewCreateClassHandler(store)
	d.DeleteClass = command.NewDeleteClassHandler(store)
	d.AddStudent = command.NewAddStudentHandler(store)
	d.DeleteStudent = command.NewDeleteStudentHandler(store, purgeLogs)
	d.ImportRoster = command.NewImportRosterHandler(store, log)
	d.AddScheduleItem = command.NewAddScheduleItemHandler(store)
	d.RemoveScheduleItem = command.NewRemoveScheduleItemHandler(store)
	d.RecordGrades = command.NewRecordGradesHandler(store, clock)
	d.RecordIncident = command.NewRecordIncidentHandler(store, clock)
}
