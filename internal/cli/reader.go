package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// LineSink receives transcript lines as they are typed.
type LineSink interface {
	Append(line string)
}

// TranscriptReader feeds lines from a reader into a live transcript.
type TranscriptReader struct {
	lines chan string
	errs  chan error
}

// NewTranscriptReader starts reading r in the background. The goroutine
// exits at EOF or on a read error; a read blocked on a terminal outlives
// cancellation until the next line arrives.
func NewTranscriptReader(r io.Reader) *TranscriptReader {
	tr := &TranscriptReader{
		lines: make(chan string),
		errs:  make(chan error, 1),
	}

	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			tr.lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			tr.errs <- err
		}
		close(tr.lines)
	}()

	return tr
}

// ReadLine returns the next non-empty line, io.EOF when input ends, or
// ErrInputCancelled when ctx is done first.
func (tr *TranscriptReader) ReadLine(ctx context.Context) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ErrInputCancelled
		case line, ok := <-tr.lines:
			if !ok {
				select {
				case err := <-tr.errs:
					return "", err
				default:
					return "", io.EOF
				}
			}
			if line = strings.TrimSpace(line); line != "" {
				return line, nil
			}
		}
	}
}

// Pump appends every line to sink until input ends or ctx is done.
func (tr *TranscriptReader) Pump(ctx context.Context, sink LineSink) error {
	for {
		line, err := tr.ReadLine(ctx)
		switch {
		case err == nil:
			sink.Append(line)
		case errors.Is(err, io.EOF), errors.Is(err, ErrInputCancelled):
			return nil
		default:
			return err
		}
	}
}
