package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrExportFailed is wrapped by every export error that exhausted its retries.
var ErrExportFailed = errors.New("export failed")

// ExportError reports which target gave up and why.
type ExportError struct {
	Target   string
	Attempts int
	Err      error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export to %s failed after %d attempts: %v", e.Target, e.Attempts, e.Err)
}

func (e *ExportError) Unwrap() []error {
	return []error{ErrExportFailed, e.Err}
}

// RetryPolicy is a bounded retry with a fixed delay between attempts.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetry matches a spreadsheet left open in another program: five
// attempts, one second apart.
var DefaultRetry = RetryPolicy{Attempts: 5, Delay: time.Second}

// Retry runs fn until it succeeds, the attempts run out or ctx is done.
func Retry(ctx context.Context, p RetryPolicy, target string, fn func() error) error {
	attempts := max(p.Attempts, 1)

	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		log.Printf("[Export] %s: attempt %d/%d failed: %v", target, i, attempts, err)

		select {
		case <-ctx.Done():
			return &ExportError{Target: target, Attempts: i, Err: ctx.Err()}
		case <-time.After(p.Delay):
		}
	}
	return &ExportError{Target: target, Attempts: attempts, Err: err}
}
