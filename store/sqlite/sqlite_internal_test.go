package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
)

// These tests write rows the public API refuses to produce.

func newRawStore(t *testing.T) *Store {
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestListScans_BadTimestamp(t *testing.T) {
	cases := map[string][2]string{
		"scanned_at": {"yesterday", "2025-03-10T08:00:00Z"},
		"created_at": {"2025-03-10T08:00:00Z", "10/03/2025"},
	}
	for name, ts := range cases {
		t.Run(name, func(t *testing.T) {
			s := newRawStore(t)
			ctx := context.Background()
			_, err := s.db.ExecContext(ctx, `
				INSERT INTO scan_events (id, worker_id, name, scanned_at, outcome, created_at)
				VALUES ('e1', '1', 'A', ?, 'time_in', ?)
			`, ts[0], ts[1])
			require.NoError(t, err)

			events, err := s.ListScans(ctx, "", 0)

			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
			assert.Nil(t, events)
		})
	}
}

func TestLoadSnapshot_RejectsTimeOutWithoutTimeIn(t *testing.T) {
	s := newRawStore(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `INSERT INTO workers (id, name, seq, updated_at) VALUES ('1', 'A', 0, '2025-03-10T00:00:00Z')`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_records (worker_id, date, time_in, time_out, overtime, worktime, updated_at)
		VALUES ('1', '2025-03-10', NULL, '17:00:00', '0', '0', '2025-03-10T00:00:00Z')
	`)
	require.NoError(t, err)

	_, err = s.LoadSnapshot(ctx)

	assert.ErrorIs(t, err, attendance.ErrInvalidRecord)
}
