package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/continu/internal/filex"
)

const timestampLayout = "2006-01-02 15:04:05"

type fileOnlyKey struct{}

// FileOnly returns a context whose records skip the console sink.
func FileOnly(ctx context.Context) context.Context {
	return context.WithValue(ctx, fileOnlyKey{}, true)
}

func isFileOnly(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(fileOnlyKey{}).(bool)
	return v
}

// LineHandler is a slog.Handler producing "[timestamp] message k=v" lines.
// Warnings and errors carry a WARN/ERROR tag in front of the message.
type LineHandler struct {
	mu      *sync.Mutex
	console io.Writer
	file    *DatedFile
	level   slog.Leveler
	attrs   string
	group   string
}

// NewLineHandler returns a handler writing to console and file; either may be nil.
func NewLineHandler(console io.Writer, file *DatedFile, level slog.Leveler) *LineHandler {
	return &LineHandler{mu: &sync.Mutex{}, console: console, file: file, level: level}
}

func (h *LineHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *LineHandler) Handle(ctx context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(ts.Format(timestampLayout))
	b.WriteString("] ")
	switch {
	case r.Level >= slog.LevelError:
		b.WriteString("ERROR ")
	case r.Level >= slog.LevelWarn:
		b.WriteString("WARN ")
	case r.Level < slog.LevelInfo:
		b.WriteString("DEBUG ")
	}
	b.WriteString(r.Message)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.group, a)
		return true
	})
	b.WriteString("\n")
	line := []byte(b.String())

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.console != nil && !isFileOnly(ctx) {
		if _, err := h.console.Write(line); err != nil {
			return err
		}
	}
	if h.file != nil {
		if _, err := h.file.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.group, a)
	}
	c := *h
	c.attrs = b.String()
	return &c
}

func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.group = h.group + name + "."
	return &c
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, p, ga)
		}
		return
	}

	v := a.Value.String()
	if v == "" || strings.ContainsAny(v, " \t\n\"=") {
		v = strconv.Quote(v)
	}
	fmt.Fprintf(b, " %s%s=%s", prefix, a.Key, v)
}

// DatedFile is an io.Writer appending to <dir>/<YYYY-MM-DD>.log. The file is
// reopened when the local date changes.
type DatedFile struct {
	mu  sync.Mutex
	dir string
	day string
	f   *os.File
	now func() time.Time
}

// NewDatedFile creates dir if needed and returns a writer into it.
func NewDatedFile(dir string) (*DatedFile, error) {
	if err := filex.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}
	return &DatedFile{dir: dir, now: time.Now}, nil
}

func (d *DatedFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	day := d.now().Format("2006-01-02")
	if d.f == nil || day != d.day {
		if d.f != nil {
			_ = d.f.Close()
		}
		f, err := os.OpenFile(filepath.Join(d.dir, day+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			d.f = nil
			return 0, err
		}
		d.f = f
		d.day = day
	}
	return d.f.Write(p)
}

// Path returns the file the next write goes to.
func (d *DatedFile) Path() string {
	return filepath.Join(d.dir, d.now().Format("2006-01-02")+".log")
}

func (d *DatedFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}
