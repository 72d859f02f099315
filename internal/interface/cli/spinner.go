package cli

import (
	"fmt"
	"io"
	"time"
)

// spinner shows a simple spinning animation while waiting
type spinner struct {
	writer  io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
}

func newSpinner(w io.Writer, message string) *spinner {
	return &spinner{
		writer:  w,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the animation in a goroutine
func (s *spinner) Start() {
	go func() {
		defer close(s.done)
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i = (i + 1) % len(frames) {
			_, _ = fmt.Fprintf(s.writer, "\r%s %s", frames[i], s.message)
			select {
			case <-s.stop:
				// Clear the line
				_, _ = fmt.Fprint(s.writer, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends the animation and waits until the line is cleared
func (s *spinner) Stop() {
	close(s.stop)
	<-s.done
}
