package cli

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Spinner shows an indeterminate progress bar while a call is analyzed.
type Spinner struct {
	bar  *progressbar.ProgressBar
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartSpinner draws a spinner with description on w until Stop is called.
func StartSpinner(w io.Writer, description string) *Spinner {
	s := &Spinner{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionThrottle(0),
		),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go s.spin()
	return s
}

func (s *Spinner) spin() {
	defer close(s.done)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.bar.Add(1); err != nil {
				slog.Debug("failed to advance spinner", "error", err)
			}
		}
	}
}

// Stop halts and clears the spinner. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
		if err := s.bar.Finish(); err != nil {
			slog.Debug("failed to finish spinner", "error", err)
		}
	})
}
