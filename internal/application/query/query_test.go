package query

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/concordia-classroom/concordia/internal/application/state"
	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/internal/infrastructure/messaging"
	"github.com/concordia-classroom/concordia/internal/infrastructure/persistence/file"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

type staticState struct {
	state classroom.AppState
}

func (s staticState) Load(context.Context) classroom.AppState {
	return s.state.Clone()
}

// Wednesday, 12 March 2025, 10:00 school time.
func wednesday() time.Time {
	return timeutil.Date(2025, 3, 12).Add(10 * time.Hour)
}

func dayPtr(d int) *int { return &d }

func TestGetSchedule_SortsAndJoinsClass(t *testing.T) {
	st := classroom.SeedState().
		WithScheduleItem(classroom.ScheduleItem{ID: "x1", ClassID: "c2", DayOfWeek: 3, StartTime: "07:45", EndTime: "08:30"})
	h := NewGetScheduleHandler(staticState{st}, timeutil.FixedClock(wednesday()))

	res, err := h.Handle(context.Background(), GetScheduleQuery{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Day)
	assert.Equal(t, "Mittwoch", res.DayName)
	assert.True(t, res.IsToday)
	assert.Equal(t, "12.03.2025", res.Today)
	require.Len(t, res.Lessons, 2)
	assert.Equal(t, "x1", res.Lessons[0].ItemID)
	assert.Equal(t, "Mathe 5a", res.Lessons[0].ClassName)
	assert.Equal(t, "sch2", res.Lessons[1].ItemID)
	assert.Equal(t, "bg-blue-500", res.Lessons[1].ClassColor)
	assert.Empty(t, res.EmptyMessage)
}

func TestGetSchedule_WrapsAroundWeek(t *testing.T) {
	h := NewGetScheduleHandler(staticState{classroom.SeedState()}, timeutil.FixedClock(wednesday()))

	sunday, err := h.Handle(context.Background(), GetScheduleQuery{Day: dayPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 6, sunday.Prev.Day)
	assert.Equal(t, "Samstag", sunday.Prev.Name)
	assert.Equal(t, 1, sunday.Next.Day)
	assert.False(t, sunday.IsToday)
	assert.Empty(t, sunday.Lessons)
	assert.Equal(t, EmptyDayMessage, sunday.EmptyMessage)

	saturday, err := h.Handle(context.Background(), GetScheduleQuery{Day: dayPtr(6)})
	require.NoError(t, err)
	assert.Equal(t, 0, saturday.Next.Day)
	assert.Equal(t, "Sonntag", saturday.Next.Name)
}

func TestGetSchedule_SkipsDeletedClass(t *testing.T) {
	st := classroom.SeedState()
	st.Classes = st.Classes[1:] // drop c1, keep its schedule rows
	h := NewGetScheduleHandler(staticState{st}, timeutil.FixedClock(wednesday()))

	res, err := h.Handle(context.Background(), GetScheduleQuery{Day: dayPtr(1)})
	require.NoError(t, err)
	assert.Empty(t, res.Lessons)
	assert.Equal(t, EmptyDayMessage, res.EmptyMessage)
}

func TestGetSchedule_InvalidDay(t *testing.T) {
	h := NewGetScheduleHandler(staticState{classroom.SeedState()}, nil)

	_, err := h.Handle(context.Background(), GetScheduleQuery{Day: dayPtr(7)})
	assert.True(t, shared.IsValidation(err))
}

func TestGetClassOverview(t *testing.T) {
	h := NewGetClassOverviewHandler(staticState{classroom.SeedState()})

	res, err := h.Handle(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Classes, 2)
	assert.Equal(t, "Geschichte 7b", res.Classes[0].Name)
	require.Len(t, res.Classes[0].Students, 2)
	assert.Equal(t, "Leon Müller", res.Classes[0].Students[0].Name)
	assert.Equal(t, "Mia Schmidt", res.Classes[0].Students[1].Name)
	assert.Len(t, res.Classes[1].Students, 1)
}

func TestGetClassRoster_NotFound(t *testing.T) {
	h := NewGetClassRosterHandler(staticState{classroom.SeedState()})

	_, err := h.Handle(context.Background(), GetClassRosterQuery{ClassID: "nope"})
	assert.ErrorIs(t, err, shared.ErrClassNotFound)
	assert.True(t, shared.IsNotFound(err))
}

func TestGetGradingSheet(t *testing.T) {
	st := classroom.SeedState().WithParticipation(
		classroom.ParticipationLog{ID: "p1", StudentID: "s2", ClassID: "c1", Date: "2025-03-12", Score: 1},
		classroom.ParticipationLog{ID: "p2", StudentID: "s2", ClassID: "c1", Date: "2025-03-12", Score: 2},
		classroom.ParticipationLog{ID: "p3", StudentID: "s1", ClassID: "c1", Date: "2025-03-11", Score: -1},
	)
	h := NewGetGradingSheetHandler(staticState{st}, timeutil.FixedClock(wednesday()))

	res, err := h.Handle(context.Background(), GetGradingSheetQuery{ClassID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, "2025-03-12", res.Date)
	assert.Equal(t, "12.03.2025", res.DateLabel)
	require.Len(t, res.Rows, 2)
	assert.Nil(t, res.Rows[0].TodayScore)
	require.NotNil(t, res.Rows[1].TodayScore)
	assert.Equal(t, classroom.Score(2), *res.Rows[1].TodayScore)
	require.Len(t, res.Options, 5)
	assert.Equal(t, "++", res.Options[0].Label)

	_, err = h.Handle(context.Background(), GetGradingSheetQuery{ClassID: "gone"})
	assert.ErrorIs(t, err, shared.ErrClassNotFound)
}

func TestGetStudentStats_TrendAndRecent(t *testing.T) {
	st := classroom.SeedState().WithParticipation(
		classroom.ParticipationLog{ID: "p1", StudentID: "s1", ClassID: "c1", Date: "2025-03-12", Score: 2},
		classroom.ParticipationLog{ID: "p2", StudentID: "s1", ClassID: "c1", Date: "2025-03-12", Score: -1},
		classroom.ParticipationLog{ID: "p3", StudentID: "s1", ClassID: "c1", Date: "2025-03-06", Score: 1},
		// outside the 7-day window, still in the total
		classroom.ParticipationLog{ID: "p4", StudentID: "s1", ClassID: "c1", Date: "2025-03-05", Score: 2},
		classroom.ParticipationLog{ID: "p5", StudentID: "s2", ClassID: "c1", Date: "2025-03-12", Score: 2},
	)
	for i := 0; i < 7; i++ {
		st = st.WithIncident(classroom.BehaviorIncident{
			ID: string(rune('a' + i)), StudentID: "s1", ClassID: "c1",
			Category: classroom.CategoryConduct, Observation: "x", Timestamp: int64(i),
		})
	}

	h := NewGetStudentStatsHandler(staticState{st}, timeutil.FixedClock(wednesday()))
	res, err := h.Handle(context.Background(), GetStudentStatsQuery{StudentID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, 4, res.TotalScore)
	assert.Equal(t, 7, res.IncidentCount)
	assert.Equal(t, "Geschichte 7b", res.Student.ClassName)

	require.Len(t, res.Trend, TrendDays)
	assert.Equal(t, "03-06", res.Trend[0].Label)
	assert.Equal(t, 1, res.Trend[0].Score)
	assert.Equal(t, "03-12", res.Trend[6].Label)
	assert.Equal(t, 1, res.Trend[6].Score)
	assert.Zero(t, res.Trend[3].Score)

	require.Len(t, res.RecentIncidents, RecentIncidentsLimit)
	assert.Equal(t, "g", res.RecentIncidents[0].ID)
	assert.Equal(t, "c", res.RecentIncidents[4].ID)
	assert.True(t, res.HasEntries)
	assert.Empty(t, res.EmptyMessage)
}

func TestGetStudentStats_TwoGradesThroughStore(t *testing.T) {
	ctx := context.Background()
	storage, err := file.NewBlobStore(t.TempDir())
	require.NoError(t, err)
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()
	store, err := state.NewStore(state.StoreConfig{Storage: storage, Bus: bus})
	require.NoError(t, err)

	today := timeutil.DateKey(wednesday())
	for i, score := range []classroom.Score{2, -1} {
		log := classroom.ParticipationLog{
			ID: classroom.NewID(), StudentID: "s1", ClassID: "c1",
			Date: today, Score: score, Timestamp: wednesday().UnixMilli() + int64(i),
		}
		_, err := store.Update(ctx, func(st classroom.AppState) (classroom.AppState, error) {
			return st.WithParticipation(log), nil
		})
		require.NoError(t, err)
	}

	h := NewGetStudentStatsHandler(store, timeutil.FixedClock(wednesday()))

	s1, err := h.Handle(ctx, GetStudentStatsQuery{StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, s1.TotalScore)
	assert.Equal(t, 1, s1.Trend[TrendDays-1].Score)

	s2, err := h.Handle(ctx, GetStudentStatsQuery{StudentID: "s2"})
	require.NoError(t, err)
	assert.Zero(t, s2.TotalScore)
	assert.False(t, s2.HasEntries)
}

func TestGetStudentStats_Empty(t *testing.T) {
	h := NewGetStudentStatsHandler(staticState{classroom.SeedState()}, timeutil.FixedClock(wednesday()))

	res, err := h.Handle(context.Background(), GetStudentStatsQuery{StudentID: "s3"})
	require.NoError(t, err)
	assert.Zero(t, res.TotalScore)
	assert.Len(t, res.Trend, 7)
	assert.Empty(t, res.RecentIncidents)
	assert.False(t, res.HasEntries)
	assert.Equal(t, NoEntriesMessage, res.EmptyMessage)

	_, err = h.Handle(context.Background(), GetStudentStatsQuery{StudentID: "missing"})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
}

func TestBuildBehaviorTally(t *testing.T) {
	empty := BuildBehaviorTally(nil)
	require.Len(t, empty.Slices, 1)
	assert.Equal(t, SliceDTO{Name: SliceNoData, Value: 1, Color: ColorNoData}, empty.Slices[0])

	onlyNeutral := BuildBehaviorTally([]classroom.BehaviorIncident{{Severity: 0}})
	assert.Len(t, onlyNeutral.Slices, 1)
	assert.Equal(t, 1, onlyNeutral.Neutral)

	mixed := BuildBehaviorTally([]classroom.BehaviorIncident{{Severity: 1}, {Severity: 1}, {Severity: -1}, {Severity: 0}})
	require.Len(t, mixed.Slices, 2)
	assert.Equal(t, SliceDTO{Name: SlicePositive, Value: 2, Color: ColorPositive}, mixed.Slices[0])
	assert.Equal(t, SliceDTO{Name: SliceNegative, Value: 1, Color: ColorNegative}, mixed.Slices[1])
}

func TestExportClassReport(t *testing.T) {
	st := classroom.SeedState().
		WithParticipation(classroom.ParticipationLog{ID: "p1", StudentID: "s1", ClassID: "c1", Date: "2025-03-12", Score: 2}).
		WithIncident(classroom.BehaviorIncident{ID: "b1", StudentID: "s2", ClassID: "c1", Category: classroom.CategoryOther, Observation: "Hat geholfen", Severity: 1, Timestamp: wednesday().UnixMilli()}).
		WithIncident(classroom.BehaviorIncident{ID: "b2", StudentID: "s3", ClassID: "c2", Category: classroom.CategoryOther, Observation: "andere Klasse"})
	h := NewExportClassReportHandler(staticState{st}, timeutil.FixedClock(wednesday()))

	file, err := h.Handle(context.Background(), ExportClassReportQuery{ClassID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "Geschichte_7b_2025-03-12.xlsx", file.FileName)
	assert.Equal(t, XLSXContentType, file.ContentType)

	wb, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{SheetOverview, SheetBehavior, SheetParticipation}, wb.GetSheetList())

	overview, err := wb.GetRows(SheetOverview)
	require.NoError(t, err)
	require.Len(t, overview, 3)
	assert.Equal(t, []string{"Leon Müller", "2", "0", "0", "0", "0"}, overview[1])
	assert.Equal(t, []string{"Mia Schmidt", "0", "1", "0", "0", "1"}, overview[2])

	behavior, err := wb.GetRows(SheetBehavior)
	require.NoError(t, err)
	require.Len(t, behavior, 2, "other classes' incidents are excluded")
	assert.Equal(t, "Hat geholfen", behavior[1][3])

	_, err = h.Handle(context.Background(), ExportClassReportQuery{ClassID: "zz"})
	assert.ErrorIs(t, err, shared.ErrClassNotFound)
}
