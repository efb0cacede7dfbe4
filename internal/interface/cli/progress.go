package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// uploadProgress draws a progress bar for one file upload
type uploadProgress struct {
	mu        sync.Mutex
	writer    io.Writer
	name      string
	size      int64
	startTime time.Time
	last      float64
}

func newUploadProgress(w io.Writer, name string, size int64) *uploadProgress {
	if len([]rune(name)) > 40 {
		name = string([]rune(name)[:37]) + "..."
	}
	return &uploadProgress{
		writer:    w,
		name:      name,
		size:      size,
		startTime: time.Now(),
		last:      -1,
	}
}

// Update redraws the bar. Percentages never move backwards.
func (p *uploadProgress) Update(pct float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pct < p.last {
		return
	}
	if pct > 100 {
		pct = 100
	}
	p.last = pct

	_, _ = fmt.Fprintf(p.writer, "\r%s %3.0f%% of %s | %s",
		renderProgressBar(pct, 30), pct, humanize.Bytes(uint64(p.size)), p.name)
}

// Finish completes the progress display
func (p *uploadProgress) Finish() {
	elapsed := time.Since(p.startTime)
	_, _ = fmt.Fprintf(p.writer, "\nUploaded %s in %s\n", p.name, elapsed.Round(time.Millisecond))
}

// Fail ends the line so the error prints cleanly
func (p *uploadProgress) Fail() {
	_, _ = fmt.Fprintln(p.writer)
}

func renderProgressBar(pct float64, width int) string {
	filled := int(float64(width) * pct / 100)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
