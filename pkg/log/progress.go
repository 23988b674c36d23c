package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Progress renders a single-line stage counter for long-running commands.
// It stays silent unless enabled and the writer is a terminal.
type Progress struct {
	mu        sync.Mutex
	out       io.Writer
	name      string
	unit      string
	total     int
	current   int
	startTime time.Time
	enabled   bool
	lastWidth int
}

// NewProgress creates a progress line writing to os.Stderr.
func NewProgress(name, unit string, total int, enabled bool) *Progress {
	return NewProgressTo(os.Stderr, name, unit, total, enabled && IsTerminal(os.Stderr))
}

// NewProgressTo creates a progress line on an arbitrary writer. Terminal
// detection is left to the caller.
func NewProgressTo(out io.Writer, name, unit string, total int, enabled bool) *Progress {
	return &Progress{
		out:       out,
		name:      name,
		unit:      unit,
		total:     total,
		startTime: time.Now(),
		enabled:   enabled,
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Advance moves the counter forward by one and redraws the line.
func (p *Progress) Advance(label string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current < p.total {
		p.current++
	}
	p.render(label)
}

// Done terminates the progress line.
func (p *Progress) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	elapsed := time.Since(p.startTime).Round(time.Millisecond)
	p.write(fmt.Sprintf("%s: %d/%d %s (%s)", p.name, p.current, p.total, p.unit, elapsed))
	fmt.Fprintln(p.out)
	p.lastWidth = 0
}

// Current returns the number of completed steps.
func (p *Progress) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Progress) render(label string) {
	if !p.enabled {
		return
	}
	bar := progressBar(p.current, p.total, 20)
	line := fmt.Sprintf("%s %s %d/%d %s", p.name, bar, p.current, p.total, p.unit)
	if label != "" {
		line += " | " + label
	}
	p.write(line)
}

func (p *Progress) write(line string) {
	pad := ""
	if p.lastWidth > len(line) {
		pad = strings.Repeat(" ", p.lastWidth-len(line))
	}
	fmt.Fprintf(p.out, "\r%s%s", line, pad)
	p.lastWidth = len(line)
}

func progressBar(current, total, width int) string {
	if total <= 0 {
		return "[" + strings.Repeat("-", width) + "]"
	}
	filled := current * width / total
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}
