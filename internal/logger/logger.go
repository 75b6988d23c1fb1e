// Package logger is the process-wide leveled logging facade. The engine logs
// preformatted human-oriented lines, so messages are fully built here and
// slog only supplies level and timestamp.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	minLevel slog.LevelVar
	current  atomic.Pointer[slog.Logger]
)

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func init() {
	SetOutput(os.Stdout)
}

// SetOutput swaps the destination for all subsequent log lines. Safe to call
// while other goroutines log.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: &minLevel})
	current.Store(slog.New(handler))
}

// SetLevel sets the minimum level by name. Unknown names fall back to info.
func SetLevel(name string) {
	lv, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		lv = slog.LevelInfo
	}
	minLevel.Set(lv)
}

func logf(lv slog.Level, format string, args ...any) {
	lg := current.Load()
	if lg == nil || !lg.Enabled(context.Background(), lv) {
		return
	}
	lg.Log(context.Background(), lv, fmt.Sprintf(format, args...))
}

func Debugf(format string, args ...any) { logf(slog.LevelDebug, format, args...) }

func Infof(format string, args ...any) { logf(slog.LevelInfo, format, args...) }

func Warnf(format string, args ...any) { logf(slog.LevelWarn, format, args...) }

func Errorf(format string, args ...any) { logf(slog.LevelError, format, args...) }

// InfoBlock logs a multi-line report one record per line so each line carries
// its own timestamp prefix. Blank lines are dropped.
func InfoBlock(block string) {
	for _, line := range strings.Split(block, "\n") {
		if line = strings.TrimRight(line, " \t"); line != "" {
			logf(slog.LevelInfo, "%s", line)
		}
	}
}
