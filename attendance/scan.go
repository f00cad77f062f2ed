package attendance

import (
	"regexp"
	"time"
)

// =============================================================================
// SCAN EVENT PARSER - decoded text -> worker identity
// =============================================================================

// WorkerID is the digit string printed on a worker badge.
type WorkerID string

// ScanIdentity is what a badge payload carries.
type ScanIdentity struct {
	WorkerID WorkerID
	Name     string
}

// ScanEvent is a parsed payload plus the instant it was observed.
type ScanEvent struct {
	ScanIdentity
	At time.Time
}

// Badge payloads are free-form text such as "id: 1023 name: J-Doe".
// The name token accepts letters and digits from any script, underscores and hyphens.
var (
	idPattern   = regexp.MustCompile(`id:\s*(\d+)`)
	namePattern = regexp.MustCompile(`name:\s*([\p{L}\p{N}_-]+)`)
)

// ParseScan extracts the worker identity from decoded badge text.
// Both tokens must be present; otherwise a *ParseError is returned and the
// identity is the zero value.
func ParseScan(text string) (ScanIdentity, error) {
	if text == "" {
		return ScanIdentity{}, &ParseError{Missing: []string{"id", "name"}}
	}

	idMatch := idPattern.FindStringSubmatch(text)
	nameMatch := namePattern.FindStringSubmatch(text)

	var missing []string
	if idMatch == nil {
		missing = append(missing, "id")
	}
	if nameMatch == nil {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return ScanIdentity{}, &ParseError{Text: text, Missing: missing}
	}

	return ScanIdentity{WorkerID: WorkerID(idMatch[1]), Name: nameMatch[1]}, nil
}
