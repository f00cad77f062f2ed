package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func at(day, h, m int) time.Time {
	return time.Date(2025, time.March, day, h, m, 0, 0, time.Local)
}

// =============================================================================
// SNAPSHOT PERSISTENCE
// =============================================================================

func TestSnapshot_SaveLoadRoundTrip(t *testing.T) {
	// GIVEN: two workers, one complete day, one open day, one worker on two days
	db := newTestStore(t)
	ctx := context.Background()

	engine := attendance.NewStore(attendance.DefaultShift)
	engine.ApplyScan("1023", "J-Doe", at(10, 9, 0))
	engine.ApplyScan("7", "Ana", at(10, 9, 30))
	engine.ApplyScan("1023", "J-Doe", at(10, 18, 5))
	engine.ApplyScan("7", "Ana", at(11, 8, 0))
	snap := engine.Snapshot()

	// WHEN: saved and loaded back
	require.NoError(t, db.SaveSnapshot(ctx, snap))
	loaded, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)

	// THEN: equal, and first-seen order kept
	assert.True(t, snap.Equal(loaded))
	require.Len(t, loaded.Workers, 2)
	assert.Equal(t, attendance.WorkerID("1023"), loaded.Workers[0].ID)
	assert.Equal(t, attendance.WorkerID("7"), loaded.Workers[1].ID)
	assert.Len(t, loaded.Workers[1].Days, 2)
}

func TestSnapshot_SaveIsUpsert(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	engine := attendance.NewStore(attendance.DefaultShift)

	engine.ApplyScan("1", "A", at(10, 8, 0))
	require.NoError(t, db.SaveSnapshot(ctx, engine.Snapshot()))

	engine.ApplyScan("1", "A-B", at(10, 17, 30))
	engine.ApplyScan("2", "C", at(10, 9, 0))
	require.NoError(t, db.Export(ctx, engine.Snapshot()))

	loaded, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, engine.Snapshot().Equal(loaded))

	w, ok := loaded.Worker("1")
	require.True(t, ok)
	assert.Equal(t, "A-B", w.Name)
	require.NotNil(t, w.Days[0].Record.TimeOut)
	assert.Equal(t, "17:30:00", w.Days[0].Record.TimeOut.String())
	assert.Equal(t, "sqlite", db.Name())
}

func TestSnapshot_EmptyDatabase(t *testing.T) {
	loaded, err := newTestStore(t).LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded.Workers)
}

func TestReplaceSnapshot_DropsPreviousState(t *testing.T) {
	// GIVEN: a database holding worker 1 and its scan log
	db := newTestStore(t)
	ctx := context.Background()
	old := attendance.NewStore(attendance.DefaultShift)
	res := old.ApplyScan("1", "A", at(10, 8, 0))
	require.NoError(t, db.SaveSnapshot(ctx, old.Snapshot()))
	_, err := db.AppendScan(ctx, at(10, 8, 0), res)
	require.NoError(t, err)

	// WHEN: replaced with a snapshot holding only worker 2
	next := attendance.NewStore(attendance.DefaultShift)
	next.ApplyScan("2", "B", at(11, 9, 0))
	require.NoError(t, db.ReplaceSnapshot(ctx, next.Snapshot()))

	// THEN: only worker 2 remains and the log is empty
	loaded, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, next.Snapshot().Equal(loaded))
	events, err := db.ListScans(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestReplaceSnapshot_InvalidKeepsPreviousState(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	old := attendance.NewStore(attendance.DefaultShift)
	res := old.ApplyScan("1", "A", at(10, 8, 0))
	require.NoError(t, db.SaveSnapshot(ctx, old.Snapshot()))
	_, err := db.AppendScan(ctx, at(10, 8, 0), res)
	require.NoError(t, err)

	out := attendance.NewClockTime(17, 0, 0)
	bad := attendance.Snapshot{Workers: []attendance.WorkerSnapshot{{
		ID:   "2",
		Name: "B",
		Days: []attendance.DayRecord{{Date: attendance.NewDate(2025, time.March, 11), Record: attendance.DailyRecord{TimeOut: &out}}},
	}}}

	err = db.ReplaceSnapshot(ctx, bad)
	assert.ErrorIs(t, err, attendance.ErrInvalidRecord)
	assert.ErrorIs(t, db.SaveSnapshot(ctx, bad), attendance.ErrInvalidRecord)

	loaded, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, old.Snapshot().Equal(loaded))
	events, err := db.ListScans(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

// =============================================================================
// SCAN LOG
// =============================================================================

func TestScanLog_AppendAndList(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	engine := attendance.NewStore(attendance.DefaultShift)

	for _, ts := range []time.Time{at(10, 8, 0), at(10, 17, 0), at(10, 18, 0)} {
		res := engine.ApplyScan("1", "A", ts)
		id, err := db.AppendScan(ctx, ts, res)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}
	_, err := db.AppendScan(ctx, at(10, 9, 0), engine.ApplyScan("2", "B", at(10, 9, 0)))
	require.NoError(t, err)

	events, err := db.ListScans(ctx, "1", 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, attendance.OutcomeIgnored, events[0].Outcome)
	assert.Equal(t, attendance.OutcomeTimeOut, events[1].Outcome)
	assert.Equal(t, attendance.OutcomeTimeIn, events[2].Outcome)
	assert.True(t, events[2].ScannedAt.Equal(at(10, 8, 0)))

	all, err := db.ListScans(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	limited, err := db.ListScans(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestReset(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	engine := attendance.NewStore(attendance.DefaultShift)
	res := engine.ApplyScan("1", "A", at(10, 8, 0))
	require.NoError(t, db.SaveSnapshot(ctx, engine.Snapshot()))
	_, err := db.AppendScan(ctx, at(10, 8, 0), res)
	require.NoError(t, err)

	require.NoError(t, db.Reset(ctx))

	loaded, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.Workers)
	events, err := db.ListScans(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}
