package logger

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

var levelColors = []struct {
	plain   []byte
	colored []byte
}{
	{[]byte("level=DEBUG"), []byte(colorCyan + "level=DEBUG" + colorReset)},
	{[]byte("level=INFO"), []byte(colorGreen + "level=INFO" + colorReset)},
	{[]byte("level=WARN"), []byte(colorYellow + "level=WARN" + colorReset)},
	{[]byte("level=ERROR"), []byte(colorRed + "level=ERROR" + colorReset)},
}

// colorWriter paints the level=... token of slog text output.
type colorWriter struct {
	out io.Writer
}

func (cw colorWriter) Write(p []byte) (int, error) {
	line := p
	for _, lc := range levelColors {
		if bytes.Contains(line, lc.plain) {
			line = bytes.Replace(line, lc.plain, lc.colored, 1)
			break
		}
	}
	if _, err := cw.out.Write(line); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Options controls how New builds the logger.
type Options struct {
	AppName     string
	Level       string
	Environment string
	// Output defaults to os.Stdout.
	Output io.Writer
	// Color forces coloured text output; by default it is used only when
	// Output is a terminal.
	Color *bool
}

// New builds the service logger. Local and dev environments get coloured
// text output; everything else gets JSON.
func New(appName, level, environment string) *slog.Logger {
	return NewWithOptions(Options{AppName: appName, Level: level, Environment: environment})
}

// NewWithOptions builds a logger from opts.
func NewWithOptions(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     ParseLevel(opts.Level),
		AddSource: true,
	}

	var handler slog.Handler
	if IsDevelopment(opts.Environment) {
		color := isTerminal(out)
		if opts.Color != nil {
			color = *opts.Color
		}
		if color {
			out = colorWriter{out: out}
		}
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	logger := slog.New(handler)
	if opts.AppName != "" {
		logger = logger.With("app", opts.AppName)
	}
	return logger
}

// IsDevelopment reports whether env names a developer environment.
func IsDevelopment(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "local", "dev", "development":
		return true
	}
	return false
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
