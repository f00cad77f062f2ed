package ingest

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Source yields decoded badge payloads. Next blocks until a payload is
// available, the source is exhausted (io.EOF) or ctx is done.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// LineSource reads one payload per line. USB and serial badge readers in
// keyboard mode produce exactly this.
type LineSource struct {
	lines chan string
	err   error // set before lines is closed
}

// NewLineSource starts reading r in the background.
func NewLineSource(r io.Reader) *LineSource {
	ls := &LineSource{lines: make(chan string)}
	go ls.read(r)
	return ls
}

func (ls *LineSource) read(r io.Reader) {
	defer close(ls.lines)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ls.lines <- line
	}
	ls.err = scanner.Err()
}

func (ls *LineSource) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-ls.lines:
		if !ok {
			if ls.err != nil {
				return "", ls.err
			}
			return "", io.EOF
		}
		return line, nil
	}
}
