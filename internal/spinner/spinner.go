// Package spinner draws a one-line progress indicator on a terminal while a
// long step, such as notebook execution, runs.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Interval is the time between frames.
const Interval = 80 * time.Millisecond

// Start draws message behind an animated frame on w until the returned stop
// function is called. stop clears the line and may be called more than once.
func Start(w io.Writer, message string) (stop func()) {
	done := make(chan struct{})
	cleared := make(chan struct{})
	var once sync.Once

	go func() {
		defer close(cleared)

		ticker := time.NewTicker(Interval)
		defer ticker.Stop()

		start := time.Now()
		for i := 0; ; i++ {
			line := fmt.Sprintf("%s %s (%s)", frames[i%len(frames)], message, time.Since(start).Truncate(time.Second))
			fmt.Fprintf(w, "\r%s", line) //nolint:errcheck

			select {
			case <-done:
				fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", runewidth.StringWidth(line))) //nolint:errcheck
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
		<-cleared
	}
}
