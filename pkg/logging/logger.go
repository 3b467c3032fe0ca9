// Package logging writes the simulator's structured JSON logs.
//
// Log lines emitted inside a run carry a "run" group with the run ID and
// aircraft type, taken from the context. Non-finite floats are written as
// strings so a diverging state still produces readable lines.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
)

// LevelEnvVar selects the minimum log level
const LevelEnvVar = "FLIGHTSIM_LOG_LEVEL"

// Logger is a slog.Logger with context-first helpers
type Logger struct {
	*slog.Logger
}

// NewLogger writes JSON to stdout at the level named by FLIGHTSIM_LOG_LEVEL
// (DEBUG, INFO, WARN or ERROR; INFO when unset or unknown).
func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout)
}

// NewLoggerTo writes JSON to w
func NewLoggerTo(w io.Writer) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       levelFromEnv(),
		ReplaceAttr: finiteFloats,
	})
	return &Logger{slog.New(handler)}
}

// Discard returns a Logger that drops everything
func Discard() *Logger {
	return &Logger{slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.Enabled(ctx, level) {
		return
	}
	if run, ok := RunFrom(ctx); ok {
		args = append(args, slog.Group("run", "id", run.ID, "aircraft", run.Aircraft))
	}
	l.Log(ctx, level, msg, args...)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, args...)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, args...)
}

// Error logs msg at error level with err under "error"
func (l *Logger) Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.log(ctx, slog.LevelError, msg, args...)
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args...)
}

// Run identifies one simulation run in log output
type Run struct {
	ID       string
	Aircraft string
}

type runKey struct{}

// WithRun tags ctx with run. An empty ID is replaced by a generated one.
func WithRun(ctx context.Context, run Run) context.Context {
	if run.ID == "" {
		run.ID = GenerateRunID()
	}
	return context.WithValue(ctx, runKey{}, run)
}

// RunFrom returns the run tagged on ctx
func RunFrom(ctx context.Context) (Run, bool) {
	run, ok := ctx.Value(runKey{}).(Run)
	return run, ok
}

// GenerateRunID returns a random 16 character hex ID
func GenerateRunID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func levelFromEnv() slog.Level {
	switch strings.ToUpper(os.Getenv(LevelEnvVar)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// finiteFloats rewrites NaN and Inf, which encoding/json rejects
func finiteFloats(groups []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindFloat64 {
		return a
	}
	if f := a.Value.Float64(); math.IsNaN(f) || math.IsInf(f, 0) {
		a.Value = slog.StringValue(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return a
}
