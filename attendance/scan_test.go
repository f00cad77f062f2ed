package attendance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// ACCEPTED PAYLOADS
// =============================================================================

func TestParseScan_Accepts(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		wantID attendance.WorkerID
		wantNm string
	}{
		{"canonical", "id: 1023 name: J-Doe", "1023", "J-Doe"},
		{"no whitespace after tag", "id:7 name:Ana", "7", "Ana"},
		{"name first", "name: Bob_Smith id: 42", "42", "Bob_Smith"},
		{"surrounding noise", "BADGE\nid:   0099\nname:\tLi-Wei\nDEPT: ops", "0099", "Li-Wei"},
		{"unicode name", "id: 5 name: José", "5", "José"},
		{"name stops at punctuation", "id: 5 name: Ann.Lee", "5", "Ann"},
		{"first match wins", "id: 1 name: A id: 2 name: B", "1", "A"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := attendance.ParseScan(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, got.WorkerID)
			assert.Equal(t, tc.wantNm, got.Name)
		})
	}
}

// =============================================================================
// REJECTED PAYLOADS
// =============================================================================

func TestParseScan_Rejects(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		missing []string
	}{
		{"empty", "", []string{"id", "name"}},
		{"id only", "id: 1023", []string{"name"}},
		{"name only", "name: J-Doe", []string{"id"}},
		{"non numeric id", "id: abc name: J-Doe", []string{"id"}},
		{"empty name", "id: 12 name: ", []string{"name"}},
		{"unrelated text", "https://example.com/menu", []string{"id", "name"}},
		{"wrong tag case", "ID: 12 NAME: Joe", []string{"id", "name"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := attendance.ParseScan(tc.text)
			require.Error(t, err)
			assert.ErrorIs(t, err, attendance.ErrParse)
			assert.True(t, attendance.IsClientError(err))

			var parseErr *attendance.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tc.missing, parseErr.Missing)

			// No partial result
			assert.Equal(t, attendance.ScanIdentity{}, got)
		})
	}
}
