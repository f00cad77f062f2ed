package ingest_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/ingest"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// fakeClock advances by step on every read.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func newIngestor(clock *fakeClock, listeners ...ingest.Listener) (*ingest.Ingestor, *attendance.Store) {
	store := attendance.NewStore(attendance.DefaultShift)
	in := ingest.New(store, attendance.NewThrottle(2*time.Second), listeners...)
	in.Now = clock.Now
	return in, store
}

type recorder struct {
	results []attendance.ScanResult
	err     error
}

func (r *recorder) ScanApplied(_ context.Context, _ time.Time, res attendance.ScanResult) error {
	r.results = append(r.results, res)
	return r.err
}

type countingExporter struct{ calls int }

func (c *countingExporter) Name() string { return "counting" }
func (c *countingExporter) Export(context.Context, attendance.Snapshot) error {
	c.calls++
	return nil
}

// =============================================================================
// PROCESS
// =============================================================================

func TestProcess_TimeInThenTimeOut(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local), step: 9 * time.Hour}
	in, store := newIngestor(clock)
	ctx := context.Background()

	res, err := in.Process(ctx, "id: 1023 name: J-Doe")
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeTimeIn, res.Outcome)

	res, err = in.Process(ctx, "id: 1023 name: J-Doe")
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeTimeOut, res.Outcome)
	assert.Equal(t, "18:00:00", res.Record.TimeOut.String())

	w, err := store.Lookup("1023")
	require.NoError(t, err)
	assert.Equal(t, "J-Doe", w.Name)
}

func TestProcess_ThrottledScanIsNotApplied(t *testing.T) {
	// GIVEN: scans one second apart with a two second throttle
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local), step: time.Second}
	in, store := newIngestor(clock)
	ctx := context.Background()

	_, err := in.Process(ctx, "id: 1 name: A")
	require.NoError(t, err)

	// WHEN: a second worker scans straight after
	_, err = in.Process(ctx, "id: 2 name: B")

	// THEN: rejected, nothing recorded
	assert.ErrorIs(t, err, ingest.ErrThrottled)
	assert.Equal(t, 1, store.Len())
}

func TestProcess_ConcurrentDuplicatesWithSlowListener(t *testing.T) {
	// GIVEN: a listener that blocks like a disk autosave
	var notified atomic.Int32
	slow := ingest.ListenerFunc(func(context.Context, time.Time, attendance.ScanResult) error {
		notified.Add(1)
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	store := attendance.NewStore(attendance.DefaultShift)
	in := ingest.New(store, attendance.NewThrottle(2*time.Second), slow)
	fixed := time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)
	in.Now = func() time.Time { return fixed }

	// WHEN: eight copies of one badge arrive at the same instant
	var (
		wg        sync.WaitGroup
		accepted  atomic.Int32
		throttled atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := in.Process(context.Background(), "id: 1 name: A")
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, ingest.ErrThrottled):
				throttled.Add(1)
			}
		}()
	}
	wg.Wait()

	// THEN: exactly one is applied and the day stays open
	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(7), throttled.Load())
	assert.Equal(t, int32(1), notified.Load())

	w, err := store.Lookup("1")
	require.NoError(t, err)
	rec := w.Days[attendance.DateOf(fixed)]
	assert.NotNil(t, rec.TimeIn)
	assert.Nil(t, rec.TimeOut)
}

func TestProcess_ParseErrorDoesNotArmThrottle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local), step: time.Second}
	in, store := newIngestor(clock)
	ctx := context.Background()

	_, err := in.Process(ctx, "garbage")
	assert.ErrorIs(t, err, attendance.ErrParse)

	_, err = in.Process(ctx, "id: 1 name: A")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestProcess_NotifiesListeners(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local), step: time.Hour}
	rec := &recorder{err: errors.New("disk full")}
	in, _ := newIngestor(clock, rec)

	// A failing listener does not fail the scan.
	_, err := in.Process(context.Background(), "id: 1 name: A")
	require.NoError(t, err)
	require.Len(t, rec.results, 1)
	assert.Equal(t, attendance.WorkerID("1"), rec.results[0].WorkerID)
}

func TestBackfill_BypassesThrottle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local), step: time.Second}
	in, store := newIngestor(clock)
	ctx := context.Background()

	_, err := in.Process(ctx, "id: 1 name: A")
	require.NoError(t, err)

	res, err := in.Backfill(ctx, "id: 2 name: B", time.Date(2025, 3, 10, 8, 15, 0, 0, time.Local))
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeTimeIn, res.Outcome)
	assert.Equal(t, "08:15:00", res.Record.TimeIn.String())
	assert.Equal(t, 2, store.Len())

	_, err = in.Backfill(ctx, "id:", time.Now())
	assert.ErrorIs(t, err, attendance.ErrParse)
}

func TestExportOnChange_SkipsIgnoredScans(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local), step: 4 * time.Hour}
	exp := &countingExporter{}
	store := attendance.NewStore(attendance.DefaultShift)
	in := ingest.New(store, attendance.NewThrottle(2*time.Second), ingest.ExportOnChange(store, exp))
	in.Now = clock.Now
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := in.Process(ctx, "id: 1 name: A")
		require.NoError(t, err)
	}

	// time in, time out, ignored
	assert.Equal(t, 2, exp.calls)
}

// =============================================================================
// RUN LOOP
// =============================================================================

func TestRun_DropsScansWhileStopped(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local), step: time.Hour}
	in, store := newIngestor(clock)

	src := ingest.NewLineSource(strings.NewReader("id: 1 name: A\n"))
	require.NoError(t, in.Run(context.Background(), src))

	assert.False(t, in.Running())
	assert.Equal(t, 0, store.Len())
}

func TestRun_AppliesEachLine(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local), step: time.Hour}
	in, store := newIngestor(clock)
	require.True(t, in.Start())
	require.False(t, in.Start())

	input := "id: 1 name: A\n\nnot a badge\nid: 2 name: B\n"
	require.NoError(t, in.Run(context.Background(), ingest.NewLineSource(strings.NewReader(input))))

	assert.Equal(t, 2, store.Len())
	assert.True(t, in.Stop())
	assert.False(t, in.Stop())
}

func TestRun_StopsOnCancel(t *testing.T) {
	clock := &fakeClock{now: time.Now(), step: time.Hour}
	in, _ := newIngestor(clock)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx, ingest.NewLineSource(pr)) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
