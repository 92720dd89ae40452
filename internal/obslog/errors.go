// Package obslog provides structured error construction and logging used throughout the
// turn controller and its collaborators. Errors built here carry structured attrs and a
// stable "msg[attrs] via wrapped" string form, logged once at the point of creation instead
// of at every layer that rewraps them.
package obslog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// Err is an error that carries a message, structured attrs, and optionally a wrapped cause.
type Err struct {
	Message string
	wrapped error
	attrs   []any
}

// Error satisfies the error interface. All aspects are serialized: msg, attrs, and wrapped error.
func (e *Err) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if len(e.attrs) > 0 {
		b.WriteString("[")
		writeAttrs(&b, e.attrs)
		b.WriteString("]")
	}

	if e.wrapped != nil {
		b.WriteString(" via ")
		b.WriteString(e.wrapped.Error())
	}

	return b.String()
}

func (e *Err) Unwrap() error {
	return e.wrapped
}

// New returns a new error (unlogged). args follows slog's Info-style argument convention:
// key/value pairs, or slog.Attr values.
func New(msg string, args ...any) error {
	return &Err{Message: msg, attrs: args}
}

// Wrap returns a new error that wraps cause.
func Wrap(msg string, cause error, args ...any) error {
	if cause == nil {
		cause = errors.New("obslog: Wrap called with a nil cause")
	}
	return &Err{Message: msg, wrapped: cause, attrs: args}
}

// LogNew creates a new error with msg and args, logs it, and returns it.
func LogNew(logger *slog.Logger, msg string, args ...any) error {
	return LogErr(logger, New(msg, args...))
}

// LogWrapped creates a new error wrapping cause, logs it, and returns it.
func LogWrapped(logger *slog.Logger, msg string, cause error, args ...any) error {
	return LogErr(logger, Wrap(msg, cause, args...))
}

// LogErr logs err to logger (if non-nil) and returns err unchanged. Enables the pattern:
//
//	return obslog.LogErr(logger, obslog.New("atc.recovery.exhausted", "category", cat))
//
// When err is an *Err, its attrs (and wrapped "via" cause) are logged alongside the message;
// otherwise err.Error() is logged as-is.
func LogErr(logger *slog.Logger, err error, args ...any) error {
	if logger == nil || err == nil {
		return err
	}

	target := err
	if human, ok := err.(*HumanErr); ok {
		target = &human.Err
	}

	e, ok := target.(*Err)
	if !ok {
		logger.Error(err.Error(), args...)
		return err
	}

	msg := e.Message

	allArgs := make([]any, 0, len(e.attrs)+len(args)+1)
	allArgs = append(allArgs, e.attrs...)
	if e.wrapped != nil {
		allArgs = append(allArgs, slog.String("via", e.wrapped.Error()))
	}
	allArgs = append(allArgs, args...)

	logger.Error(msg, allArgs...)
	return err
}

// writeAttrs writes attrs (in the protocol of slog attrs to .Log) to b in key=value form.
func writeAttrs(b *strings.Builder, attrs []any) {
	if len(attrs) == 0 {
		return
	}

	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey || a.Key == slog.MessageKey {
				return slog.Attr{}
			}
			return a
		},
	}

	handler := slog.NewTextHandler(&noNewlineWriter{w: b}, opts)
	logger := slog.New(handler)
	logger.Log(context.Background(), slog.LevelDebug, "", attrs...)
}

// noNewlineWriter wraps an io.Writer and strips a single trailing newline from p.
type noNewlineWriter struct {
	w io.Writer
}

func (n *noNewlineWriter) Write(p []byte) (int, error) {
	if len(p) > 0 && p[len(p)-1] == '\n' {
		written, err := n.w.Write(p[:len(p)-1])
		if err == nil {
			return len(p), nil
		}
		return written, err
	}
	return n.w.Write(p)
}
