package logging

import (
	"context"
	"io"
	"log/slog"
)

type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// Options configures New.
type Options struct {
	// Console receives every record unless the context is marked FileOnly.
	// Nil disables console output.
	Console io.Writer
	// Dir is the directory for dated log files. Empty disables the file sink.
	Dir string
	// Debug enables debug-level records.
	Debug bool
}

// New builds a Logger writing through a LineHandler. The returned closer
// releases the log file and must be called on shutdown.
func New(opts Options) (*SlogLogger, io.Closer, error) {
	var file *DatedFile
	if opts.Dir != "" {
		f, err := NewDatedFile(opts.Dir)
		if err != nil {
			return nil, nil, err
		}
		file = f
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	h := NewLineHandler(opts.Console, file, level)
	var closer io.Closer = nopCloser{}
	if file != nil {
		closer = file
	}

	return NewSlogLogger(slog.New(h)), closer, nil
}

// Discard returns a Logger that drops everything.
func Discard() *SlogLogger {
	return NewSlogLogger(slog.New(NewLineHandler(nil, nil, slog.LevelError+1)))
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}

// Slog exposes the underlying *slog.Logger for libraries that take one.
func (s *SlogLogger) Slog() *slog.Logger {
	return s.l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
