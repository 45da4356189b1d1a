// Package progress renders a single status line for in-flight downloads.
package progress

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// Reporter receives byte counts for running transfers. Implementations must
// be safe for concurrent use.
type Reporter interface {
	Start(key string, total int64)
	Add(key string, n int64)
	Done(key string)
}

// Nop discards all reports.
type Nop struct{}

func (Nop) Start(string, int64) {}
func (Nop) Add(string, int64)   {}
func (Nop) Done(string)         {}

// test seams
var (
	isTerminal = term.IsTerminal
	termWidth  = func(fd int) int {
		w, _, err := term.GetSize(fd)
		if err != nil || w <= 0 {
			return 100
		}
		return w
	}
)

// ForFile returns a Terminal reporter drawing on f when enabled and f is a
// terminal, and Nop otherwise.
func ForFile(f *os.File, enabled bool) Reporter {
	if !enabled || !isTerminal(int(f.Fd())) {
		return Nop{}
	}
	t := NewTerminal(f)
	t.width = termWidth(int(f.Fd()))
	return t
}

type transfer struct {
	total   int64
	done    int64
	started time.Time
}

// Terminal redraws one line at most every interval.
type Terminal struct {
	mu       sync.Mutex
	w        io.Writer
	width    int
	interval time.Duration
	now      func() time.Time
	lastDraw time.Time
	active   map[string]*transfer
	drawn    bool
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{
		w:        w,
		width:    100,
		interval: 200 * time.Millisecond,
		now:      time.Now,
		active:   make(map[string]*transfer),
	}
}

func (t *Terminal) Start(key string, total int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[key] = &transfer{total: total, started: t.now()}
	t.draw(true)
}

func (t *Terminal) Add(key string, n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tr, ok := t.active[key]; ok {
		tr.done += n
	}
	t.draw(false)
}

func (t *Terminal) Done(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, key)
	if len(t.active) == 0 {
		t.clear()
		return
	}
	t.draw(true)
}

func (t *Terminal) clear() {
	if t.drawn {
		fmt.Fprint(t.w, "\r\033[K")
		t.drawn = false
	}
}

func (t *Terminal) draw(force bool) {
	now := t.now()
	if !force && now.Sub(t.lastDraw) < t.interval {
		return
	}
	t.lastDraw = now

	line := t.line(now)
	if len(line) > t.width-1 && t.width > 1 {
		line = line[:t.width-1]
	}
	fmt.Fprint(t.w, "\r\033[K"+line)
	t.drawn = true
}

// line renders the status; callers hold mu.
func (t *Terminal) line(now time.Time) string {
	keys := make([]string, 0, len(t.active))
	var done, total int64
	known := true
	var oldest time.Time
	for k, tr := range t.active {
		keys = append(keys, k)
		done += tr.done
		if tr.total < 0 {
			known = false
		} else {
			total += tr.total
		}
		if oldest.IsZero() || tr.started.Before(oldest) {
			oldest = tr.started
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%d active  %s", len(keys), humanize.IBytes(uint64(done)))
	if known && total > 0 {
		fmt.Fprintf(&b, " / %s (%.0f%%)", humanize.IBytes(uint64(total)), float64(done)*100/float64(total))
	}
	if secs := now.Sub(oldest).Seconds(); secs > 0 && done > 0 {
		fmt.Fprintf(&b, "  %s/s", humanize.IBytes(uint64(float64(done)/secs)))
	}
	if len(keys) > 0 {
		b.WriteString("  " + keys[0])
		if len(keys) > 1 {
			fmt.Fprintf(&b, " +%d", len(keys)-1)
		}
	}
	return b.String()
}
