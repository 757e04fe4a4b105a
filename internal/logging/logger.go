// Package logging provides structured logging for the CLI and the browser core.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with a component name.
type Logger struct {
	zlog      zerolog.Logger
	component string
	output    io.Writer // current output writer
}

// NewLogger creates a logger tagged with the given component.
// A nil output writes to stderr so stdout stays free for command results.
func NewLogger(component string, output io.Writer) *Logger {
	if output == nil {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
	}

	return &Logger{
		zlog:      newZerolog(output, component),
		component: component,
		output:    output,
	}
}

// NewDefaultCLILogger creates a default CLI logger.
func NewDefaultCLILogger() *Logger {
	return NewLogger("cli", nil)
}

// NewNopLogger returns a logger that discards everything. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{
		zlog:      zerolog.Nop(),
		component: "nop",
		output:    io.Discard,
	}
}

func newZerolog(output io.Writer, component string) zerolog.Logger {
	ctx := zerolog.New(output).With().Timestamp()
	if component != "" {
		ctx = ctx.Str("component", component)
	}
	return ctx.Logger()
}

// Named returns a child logger for a sub-component sharing the same output.
func (l *Logger) Named(component string) *Logger {
	return &Logger{
		zlog:      l.zlog.With().Str("component", component).Logger(),
		component: component,
		output:    l.output,
	}
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Configure global logger
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
