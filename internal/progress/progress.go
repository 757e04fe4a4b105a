// Package progress provides a unified interface for transfer progress reporting
// in the CLI (progress bars) and in interactive sessions (event bus).
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"

	"github.com/proactive/dataspace-browser/internal/events"
)

// Reporter receives the progress of one transfer.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
}

// CLIProgress implements progress reporting for CLI mode using progress bars.
type CLIProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a CLI progress reporter writing to stderr.
func NewCLIProgress() *CLIProgress {
	return NewCLIProgressTo(os.Stderr)
}

// NewCLIProgressTo creates a CLI progress reporter writing to out.
func NewCLIProgressTo(out io.Writer) *CLIProgress {
	return &CLIProgress{out: out}
}

// Start initializes the progress bar. A negative total renders a spinner.
func (p *CLIProgress) Start(total int64, description string) {
	out := p.out
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the bar to the current position.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error clears the bar and prints the error.
func (p *CLIProgress) Error(err error) {
	if p.bar != nil {
		_ = p.bar.Clear()
	}
	if err != nil {
		fmt.Fprintf(p.out, "\nError: %v\n", err)
	}
}

// EventProgress publishes progress on the event bus.
type EventProgress struct {
	eventBus  *events.EventBus
	name      string
	direction string
	total     int64
	current   atomic.Int64 // updated from the goroutine reading the body
}

// NewEventProgress creates a reporter for one upload or download.
func NewEventProgress(eventBus *events.EventBus, name, direction string) *EventProgress {
	return &EventProgress{
		eventBus:  eventBus,
		name:      name,
		direction: direction,
	}
}

// Start publishes the initial zero position.
func (p *EventProgress) Start(total int64, description string) {
	p.total = total
	p.eventBus.PublishProgress(p.name, p.direction, 0, total)
}

// Update publishes the current position.
func (p *EventProgress) Update(current int64) {
	p.current.Store(current)
	p.eventBus.PublishProgress(p.name, p.direction, current, p.total)
}

// Finish publishes a completed position when the total is known.
func (p *EventProgress) Finish() {
	if p.total > 0 {
		p.eventBus.PublishProgress(p.name, p.direction, p.total, p.total)
	}
}

// Error publishes a terminal event carrying err so listeners can close
// whatever they drew for this transfer.
func (p *EventProgress) Error(err error) {
	p.eventBus.PublishProgressFailed(p.name, p.direction, p.current.Load(), p.total, err)
}

// ProgressReader wraps an io.Reader to report progress.
type ProgressReader struct {
	reader   io.Reader
	reporter Reporter
	mu       sync.Mutex
	current  int64
}

// NewProgressReader creates a new progress-reporting reader.
func NewProgressReader(reader io.Reader, reporter Reporter) *ProgressReader {
	return &ProgressReader{
		reader:   reader,
		reporter: reporter,
	}
}

// Read implements io.Reader with progress reporting.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.mu.Lock()
		pr.current += int64(n)
		current := pr.current
		pr.mu.Unlock()
		pr.reporter.Update(current)
	}
	return n, err
}

// Current returns the number of bytes read so far.
func (pr *ProgressReader) Current() int64 {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.current
}
