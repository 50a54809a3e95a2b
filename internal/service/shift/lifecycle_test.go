package shift

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/adapter/queue"
	"github.com/seu-repo/sigec-posto/internal/adapter/storage/memory"
	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/mocks"
	"github.com/seu-repo/sigec-posto/internal/service/reading"
)

const station = "station-1"

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

type fixture struct {
	lc    *Lifecycle
	repo  *memory.ShiftRepository
	queue *mocks.MockMessageQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	assets := mocks.NewMockAssetLookup(
		domain.Asset{ID: "P", Type: domain.AssetTypeFuelPump, StationID: station},
		domain.Asset{ID: "P2", Type: domain.AssetTypeFuelPump, StationID: station},
		domain.Asset{ID: "T", Type: domain.AssetTypeStorageTank, StationID: station},
		domain.Asset{ID: "I1", Type: domain.AssetTypeIsland, StationID: station},
		domain.Asset{ID: "I2", Type: domain.AssetTypeIsland, StationID: station},
		domain.Asset{ID: "foreign-pump", Type: domain.AssetTypeFuelPump, StationID: "station-2"},
	)
	repo := memory.NewShiftRepository()
	mq := mocks.NewMockMessageQueue()
	clock := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	lc := NewLifecycle(repo, reading.NewStore(zap.NewNop()), assets, mq, newTestLogger(),
		WithClock(func() time.Time { return clock }))
	return &fixture{lc: lc, repo: repo, queue: mq}
}

func startPump(id string, sales, liters, cash float64) domain.MeterReading {
	return domain.MeterReading{PumpID: id, ReadingType: domain.ReadingStart, SalesValue: sales, LitersDispensed: liters, CashMeter: cash}
}

func endPump(id string, sales, liters, cash float64) domain.MeterReading {
	m := startPump(id, sales, liters, cash)
	m.ReadingType = domain.ReadingEnd
	return m
}

func tankDip(id string, rt domain.ReadingType, volume float64) domain.DipReading {
	return domain.DipReading{TankID: id, ReadingType: rt, Volume: volume}
}

func (f *fixture) openShift(t *testing.T) *domain.Shift {
	t.Helper()
	ctx := context.Background()
	s, err := f.lc.Create(ctx, station, "sup-1")
	require.NoError(t, err)
	s, err = f.lc.Open(ctx, s.ID, domain.OpenShiftRequest{
		IslandAssignments: []domain.IslandAssignment{{IslandID: "I1", AttendantID: "att-1"}},
		PumpReadings:      []domain.MeterReading{startPump("P", 1000, 50, 200)},
		TankReadings:      []domain.DipReading{tankDip("T", domain.ReadingStart, 10000)},
	})
	require.NoError(t, err)
	return s
}

func TestCreate_NumbersShiftsPerStation(t *testing.T) {
	// Arrange
	f := newFixture(t)
	ctx := context.Background()

	// Act
	first, err1 := f.lc.Create(ctx, station, "sup-1")
	second, err2 := f.lc.Create(ctx, station, "sup-1")
	other, err3 := f.lc.Create(ctx, "station-2", "sup-2")

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.NoError(t, err3)
	assert.Equal(t, 1, first.ShiftNumber)
	assert.Equal(t, 2, second.ShiftNumber)
	assert.Equal(t, 1, other.ShiftNumber)
	assert.Equal(t, domain.ShiftStatusPlanned, first.Status)
	assert.Nil(t, first.EndTime)
	assert.Len(t, f.queue.GetPublishedMessages(queue.SubjectShiftCreated), 3)
}

func TestCreate_StationBusyWhileOpen(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.openShift(t)

	// Act
	_, err := f.lc.Create(context.Background(), station, "sup-2")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStationBusy))
}

func TestCreate_RequiresIDs(t *testing.T) {
	f := newFixture(t)

	_, err := f.lc.Create(context.Background(), "", "sup")

	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestOpen_Success(t *testing.T) {
	f := newFixture(t)

	s := f.openShift(t)

	assert.Equal(t, domain.ShiftStatusOpen, s.Status)
	require.Len(t, s.Assignments, 1)
	assert.Equal(t, domain.AssignmentPrimary, s.Assignments[0].AssignmentType)
	rd, err := f.lc.Readings(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Len(t, rd.Pumps, 1)
	assert.Len(t, rd.Tanks, 1)
	saved, err := f.repo.FindReadings(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Len(t, saved.Pumps, 1)
	assert.Len(t, f.queue.GetPublishedMessages(queue.SubjectShiftOpened), 1)
}

func TestOpen_SecondPlannedShiftIsBusy(t *testing.T) {
	// Arrange
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.lc.Create(ctx, station, "sup-1")
	require.NoError(t, err)
	b, err := f.lc.Create(ctx, station, "sup-2")
	require.NoError(t, err)
	_, err = f.lc.Open(ctx, a.ID, domain.OpenShiftRequest{})
	require.NoError(t, err)

	// Act
	_, err = f.lc.Open(ctx, b.ID, domain.OpenShiftRequest{})

	// Assert
	assert.True(t, errors.Is(err, domain.ErrStationBusy))
}

func TestOpen_ConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const n = 8
	ids := make([]string, n)
	for i := range ids {
		s, err := f.lc.Create(ctx, station, "sup")
		require.NoError(t, err)
		ids[i] = s.ID
	}

	var wg sync.WaitGroup
	results := make(chan error, n)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.lc.Open(ctx, id, domain.OpenShiftRequest{})
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	opened := 0
	for err := range results {
		if err == nil {
			opened++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrStationBusy))
	}
	assert.Equal(t, 1, opened)
}

func TestOpen_InvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.openShift(t)

	_, err := f.lc.Open(ctx, s.ID, domain.OpenShiftRequest{})
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	_, _, err = f.lc.Close(ctx, s.ID, domain.CloseShiftRequest{
		PumpReadings: []domain.MeterReading{endPump("P", 1800, 90, 400)},
		TankReadings: []domain.DipReading{tankDip("T", domain.ReadingEnd, 9960)},
	})
	require.NoError(t, err)

	_, err = f.lc.Open(ctx, s.ID, domain.OpenShiftRequest{})
	assert.True(t, errors.Is(err, domain.ErrTerminalState))
}

func TestOpen_RejectsAndKeepsNothing(t *testing.T) {
	tests := []struct {
		name string
		req  domain.OpenShiftRequest
		kind domain.ErrorKind
	}{
		{
			name: "foreign pump",
			req:  domain.OpenShiftRequest{PumpReadings: []domain.MeterReading{startPump("P", 1, 1, 1), startPump("foreign-pump", 1, 1, 1)}},
			kind: domain.KindNotFound,
		},
		{
			name: "tank reading for a pump",
			req:  domain.OpenShiftRequest{TankReadings: []domain.DipReading{tankDip("P", domain.ReadingStart, 10)}},
			kind: domain.KindValidation,
		},
		{
			name: "negative meter",
			req:  domain.OpenShiftRequest{PumpReadings: []domain.MeterReading{startPump("P", -1, 1, 1)}},
			kind: domain.KindValidation,
		},
		{
			name: "END reading on open",
			req:  domain.OpenShiftRequest{PumpReadings: []domain.MeterReading{endPump("P", 1, 1, 1)}},
			kind: domain.KindValidation,
		},
		{
			name: "pump listed twice",
			req:  domain.OpenShiftRequest{PumpReadings: []domain.MeterReading{startPump("P", 1, 1, 1), startPump("P", 2, 2, 2)}},
			kind: domain.KindDuplicateReading,
		},
		{
			name: "assignment to a pump",
			req: domain.OpenShiftRequest{
				PumpReadings:      []domain.MeterReading{startPump("P", 1, 1, 1)},
				IslandAssignments: []domain.IslandAssignment{{IslandID: "P", AttendantID: "att"}},
			},
			kind: domain.KindValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t)
			ctx := context.Background()
			s, err := f.lc.Create(ctx, station, "sup")
			require.NoError(t, err)

			// Act
			_, err = f.lc.Open(ctx, s.ID, tt.req)

			// Assert
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
			got, _ := f.lc.Get(ctx, s.ID)
			assert.Equal(t, domain.ShiftStatusPlanned, got.Status)
			assert.Empty(t, got.Assignments)
			rd, _ := f.lc.Readings(ctx, s.ID)
			assert.Empty(t, rd.Pumps)
			assert.Empty(t, rd.Tanks)
		})
	}
}

func TestOpen_DuplicateOfIncrementalReadingRollsBack(t *testing.T) {
	// Arrange
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.lc.Create(ctx, station, "sup")
	require.NoError(t, err)
	_, err = f.lc.RecordReading(ctx, s.ID, domain.TankReading(tankDip("T", domain.ReadingStart, 100)))
	require.NoError(t, err)

	// Act
	_, err = f.lc.Open(ctx, s.ID, domain.OpenShiftRequest{
		PumpReadings: []domain.MeterReading{startPump("P", 1, 1, 1)},
		TankReadings: []domain.DipReading{tankDip("T", domain.ReadingStart, 200)},
	})

	// Assert
	assert.True(t, errors.Is(err, domain.ErrDuplicateReading))
	rd, _ := f.lc.Readings(ctx, s.ID)
	assert.Empty(t, rd.Pumps, "pump reading from the failed open must be rolled back")
	require.Len(t, rd.Tanks, 1)
	assert.Equal(t, 100.0, rd.Tanks[0].Volume)
}

func TestClose_RoundTrip(t *testing.T) {
	// Arrange
	f := newFixture(t)
	s := f.openShift(t)

	// Act
	closed, report, err := f.lc.Close(context.Background(), s.ID, domain.CloseShiftRequest{
		PumpReadings: []domain.MeterReading{endPump("P", 1800, 90, 400)},
		TankReadings: []domain.DipReading{tankDip("T", domain.ReadingEnd, 9960)},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftStatusClosed, closed.Status)
	require.NotNil(t, closed.EndTime)
	require.NotNil(t, report)
	require.Len(t, report.Pumps, 1)
	assert.Equal(t, 800.0, report.Pumps[0].SalesDelta)
	assert.Equal(t, 40.0, report.Pumps[0].LitersDelta)
	assert.Equal(t, 200.0, report.Pumps[0].CashDelta)
	assert.Equal(t, 40.0, report.Totals.Volume.TankUsage)
	assert.Equal(t, 0.0, report.Totals.Volume.Variance)
	assert.Empty(t, report.Anomalies)

	stored, err := f.lc.Report(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Totals, stored.Totals)
	assert.Len(t, f.queue.GetPublishedMessages(queue.SubjectShiftClosed), 1)
}

func TestClose_UsesIncrementalEndReadings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.openShift(t)
	_, err := f.lc.RecordReading(ctx, s.ID, domain.TankReading(tankDip("T", domain.ReadingEnd, 9000)))
	require.NoError(t, err)

	_, report, err := f.lc.Close(ctx, s.ID, domain.CloseShiftRequest{
		PumpReadings: []domain.MeterReading{endPump("P", 1000, 50, 200)},
	})

	require.NoError(t, err)
	assert.Equal(t, 1000.0, report.Totals.Volume.TankUsage)
}

func TestClose_IncompleteReadingsNamesTank(t *testing.T) {
	// Arrange
	f := newFixture(t)
	ctx := context.Background()
	s := f.openShift(t)

	// Act
	_, _, err := f.lc.Close(ctx, s.ID, domain.CloseShiftRequest{
		PumpReadings: []domain.MeterReading{endPump("P", 1800, 90, 400)},
	})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIncompleteReadings))
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"T"}, de.AssetIDs)

	got, _ := f.lc.Get(ctx, s.ID)
	assert.Equal(t, domain.ShiftStatusOpen, got.Status)
	_, recorded := f.lc.readings.Get(s.ID, domain.ReadingKindPump, "P", domain.ReadingEnd)
	assert.False(t, recorded, "nothing is written when close fails")
}

func TestClose_AfterRestartStillNeedsEndReadings(t *testing.T) {
	// Arrange
	f := newFixture(t)
	ctx := context.Background()
	s := f.openShift(t)
	assets := mocks.NewMockAssetLookup(
		domain.Asset{ID: "P", Type: domain.AssetTypeFuelPump, StationID: station},
		domain.Asset{ID: "T", Type: domain.AssetTypeStorageTank, StationID: station},
	)
	restarted := NewLifecycle(f.repo, reading.NewStore(zap.NewNop()), assets, f.queue, newTestLogger())

	// Act
	_, _, err := restarted.Close(ctx, s.ID, domain.CloseShiftRequest{})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIncompleteReadings))
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"P", "T"}, de.AssetIDs)
	got, _ := restarted.Get(ctx, s.ID)
	assert.Equal(t, domain.ShiftStatusOpen, got.Status)
}

func TestClose_AfterRestartReconcilesStoredStartReadings(t *testing.T) {
	// Arrange
	f := newFixture(t)
	ctx := context.Background()
	s := f.openShift(t)
	assets := mocks.NewMockAssetLookup(
		domain.Asset{ID: "P", Type: domain.AssetTypeFuelPump, StationID: station},
		domain.Asset{ID: "T", Type: domain.AssetTypeStorageTank, StationID: station},
	)
	restarted := NewLifecycle(f.repo, reading.NewStore(zap.NewNop()), assets, f.queue, newTestLogger())

	// Act
	_, report, err := restarted.Close(ctx, s.ID, domain.CloseShiftRequest{
		PumpReadings: []domain.MeterReading{endPump("P", 1800, 90, 400)},
		TankReadings: []domain.DipReading{tankDip("T", domain.ReadingEnd, 9960)},
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 40.0, report.Totals.Volume.Dispensed)
	assert.Equal(t, 40.0, report.Totals.Volume.TankUsage)
	rd, err := restarted.Readings(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, rd.Pumps, 2)
	assert.Len(t, rd.Tanks, 2)
}

func TestClose_EndWithoutStart(t *testing.T) {
	f := newFixture(t)
	s := f.openShift(t)

	_, _, err := f.lc.Close(context.Background(), s.ID, domain.CloseShiftRequest{
		PumpReadings: []domain.MeterReading{endPump("P", 1800, 90, 400), endPump("P2", 10, 1, 0)},
		TankReadings: []domain.DipReading{tankDip("T", domain.ReadingEnd, 9960)},
	})

	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindValidation, de.Kind)
	assert.Equal(t, []string{"P2"}, de.AssetIDs)
}

func TestClose_NegativeTankUsageIsAnomaly(t *testing.T) {
	f := newFixture(t)
	s := f.openShift(t)

	_, report, err := f.lc.Close(context.Background(), s.ID, domain.CloseShiftRequest{
		PumpReadings: []domain.MeterReading{endPump("P", 1800, 90, 400)},
		TankReadings: []domain.DipReading{tankDip("T", domain.ReadingEnd, 15000)},
	})

	require.NoError(t, err)
	assert.Equal(t, -5000.0, report.Tanks[0].Usage)
	require.Len(t, report.Anomalies, 1)
	assert.Contains(t, report.Anomalies[0], "tank T")
}

func TestClose_PlannedShiftIsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	s, err := f.lc.Create(context.Background(), station, "sup")
	require.NoError(t, err)

	_, _, err = f.lc.Close(context.Background(), s.ID, domain.CloseShiftRequest{})

	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
}

func TestClosedShiftIsTerminal(t *testing.T) {
	// Arrange
	f := newFixture(t)
	ctx := context.Background()
	s := f.openShift(t)
	_, _, err := f.lc.Close(ctx, s.ID, domain.CloseShiftRequest{
		PumpReadings: []domain.MeterReading{endPump("P", 1800, 90, 400)},
		TankReadings: []domain.DipReading{tankDip("T", domain.ReadingEnd, 9960)},
	})
	require.NoError(t, err)

	// Act
	_, _, closeErr := f.lc.Close(ctx, s.ID, domain.CloseShiftRequest{})
	_, recErr := f.lc.RecordReading(ctx, s.ID, domain.PumpReading(endPump("P", 1, 1, 1)))
	_, assignErr := f.lc.AssignAttendant(ctx, s.ID, domain.IslandAssignment{IslandID: "I2", AttendantID: "att-2"})

	// Assert
	assert.True(t, errors.Is(closeErr, domain.ErrTerminalState))
	assert.True(t, errors.Is(recErr, domain.ErrTerminalState))
	assert.True(t, errors.Is(assignErr, domain.ErrTerminalState))
}

func TestRecordReading_Phases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.lc.Create(ctx, station, "sup")
	require.NoError(t, err)

	_, err = f.lc.RecordReading(ctx, s.ID, domain.PumpReading(endPump("P", 1, 1, 1)))
	assert.Equal(t, domain.KindValidation, domain.KindOf(err), "END not accepted while planned")

	_, err = f.lc.RecordReading(ctx, s.ID, domain.PumpReading(startPump("P", 1, 1, 1)))
	require.NoError(t, err)

	_, err = f.lc.Open(ctx, s.ID, domain.OpenShiftRequest{})
	require.NoError(t, err)

	_, err = f.lc.RecordReading(ctx, s.ID, domain.PumpReading(startPump("P2", 1, 1, 1)))
	assert.Equal(t, domain.KindValidation, domain.KindOf(err), "START not accepted while open")

	_, err = f.lc.RecordReading(ctx, s.ID, domain.PumpReading(endPump("P2", 1, 1, 1)))
	assert.Equal(t, domain.KindValidation, domain.KindOf(err), "END needs a START")

	_, err = f.lc.RecordReading(ctx, s.ID, domain.PumpReading(endPump("P", 2, 2, 2)))
	assert.NoError(t, err)
}

func TestAssignAttendant(t *testing.T) {
	// Arrange
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.lc.Create(ctx, station, "sup")
	require.NoError(t, err)

	// Act
	_, err1 := f.lc.AssignAttendant(ctx, s.ID, domain.IslandAssignment{IslandID: "I1", AttendantID: "att-1"})
	_, err2 := f.lc.AssignAttendant(ctx, s.ID, domain.IslandAssignment{IslandID: "I2", AttendantID: "att-1", AssignmentType: domain.AssignmentRelief})
	_, dupErr := f.lc.AssignAttendant(ctx, s.ID, domain.IslandAssignment{IslandID: "I1", AttendantID: "att-1"})
	_, badErr := f.lc.AssignAttendant(ctx, s.ID, domain.IslandAssignment{IslandID: "I1", AttendantID: "att-2", AssignmentType: "NIGHT"})

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2, "one attendant may cover two islands")
	de, ok := domain.AsError(dupErr)
	require.True(t, ok)
	assert.Equal(t, "duplicate_assignment", de.Reason)
	assert.Equal(t, domain.KindValidation, domain.KindOf(badErr))
	got, _ := f.lc.Get(ctx, s.ID)
	assert.Len(t, got.Assignments, 2)
}

func TestOpenShiftAssets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	none, err := f.lc.OpenShiftAssets(ctx, station)
	require.NoError(t, err)
	assert.Empty(t, none)

	f.openShift(t)
	ids, err := f.lc.OpenShiftAssets(ctx, station)
	require.NoError(t, err)
	assert.Equal(t, []string{"I1", "P", "T"}, ids)
}

func TestQueries_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.lc.Get(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = f.lc.OpenShift(ctx, station)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	s, _ := f.lc.Create(ctx, station, "sup")
	_, err = f.lc.Report(ctx, s.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSaveFailureLeavesShiftPlanned(t *testing.T) {
	// Arrange
	repo := memory.NewShiftRepository()
	failing := &mocks.MockShiftRepository{
		FindByIDFunc:          repo.FindByID,
		FindOpenByStationFunc: repo.FindOpenByStation,
		LastShiftNumberFunc:   repo.LastShiftNumber,
		SaveFunc: func(ctx context.Context, s *domain.Shift) error {
			if s.Status == domain.ShiftStatusOpen {
				return errors.New("db down")
			}
			return repo.Save(ctx, s)
		},
	}
	assets := mocks.NewMockAssetLookup(domain.Asset{ID: "P", Type: domain.AssetTypeFuelPump, StationID: station})
	lc := NewLifecycle(failing, reading.NewStore(zap.NewNop()), assets, nil, newTestLogger())
	ctx := context.Background()
	s, err := lc.Create(ctx, station, "sup")
	require.NoError(t, err)

	// Act
	_, err = lc.Open(ctx, s.ID, domain.OpenShiftRequest{PumpReadings: []domain.MeterReading{startPump("P", 1, 1, 1)}})

	// Assert
	require.Error(t, err)
	got, _ := repo.FindByID(ctx, s.ID)
	assert.Equal(t, domain.ShiftStatusPlanned, got.Status)
	rd, _ := lc.Readings(ctx, s.ID)
	assert.Empty(t, rd.Pumps)
}
