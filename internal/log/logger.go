package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

// Log output formats.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures NewLogger.
type Options struct {
	// Verbose lowers the level from Info to Debug.
	Verbose bool

	// Quiet raises the level to Warn. Verbose wins when both are set.
	Quiet bool

	// Format is FormatAuto, FormatText or FormatJSON. Auto picks a colored
	// console handler on a terminal and plain text otherwise.
	Format string
}

func (o Options) level() slog.Level {
	switch {
	case o.Verbose:
		return slog.LevelDebug
	case o.Quiet:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a redacting logger writing to w.
func NewLogger(w io.Writer, opts Options) *slog.Logger {
	return slog.New(NewSecureHandler(newHandler(w, opts)))
}

func newHandler(w io.Writer, opts Options) slog.Handler {
	level := opts.level()

	switch strings.ToLower(opts.Format) {
	case FormatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case FormatText:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}

	if !isTerminal(w) {
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}

	console := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "feedrover",
	})
	console.SetLevel(charmLevel(level))
	return console
}

func charmLevel(level slog.Level) charmlog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmlog.DebugLevel
	case level <= slog.LevelInfo:
		return charmlog.InfoLevel
	case level <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// IsTerminal reports whether f is an interactive terminal.
// The CLI uses it to decide whether to show a spinner.
func IsTerminal(f *os.File) bool {
	return isTerminal(f)
}
