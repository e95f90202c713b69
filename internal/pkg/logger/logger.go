package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type Logger struct {
	zl zerolog.Logger
}

func NewLogger() *Logger {
	return New(os.Stdout, "info")
}

func New(output io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = "2006-01-02T15:04:05Z07:00"

	zl := zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()

	return &Logger{zl: zl}
}

// Nop discards everything; tests use it.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) log(event *zerolog.Event, msg string, fields ...interface{}) {
	if len(fields) > 0 && len(fields)%2 == 0 {
		for i := 0; i < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			switch v := fields[i+1].(type) {
			case error:
				event = event.AnErr(key, v)
			default:
				event = event.Interface(key, v)
			}
		}
	}

	event.Msg(msg)
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.log(l.zl.Debug(), msg, fields...)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.log(l.zl.Info(), msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.log(l.zl.Warn(), msg, fields...)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log(l.zl.Error(), msg, fields...)
}

func (l *Logger) Fatal(msg string, fields ...interface{}) {
	l.log(l.zl.WithLevel(zerolog.FatalLevel), msg, fields...)
	os.Exit(1)
}

func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *Logger) WithCorrelationID(correlationID string) *Logger {
	return l.With("correlation_id", correlationID)
}

type correlationKey struct{}

// ContextWithCorrelationID attaches id so loggers further down the call can
// pick it up through ForContext.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// ForContext returns a child logger carrying the correlation id in ctx, or l
// itself when there is none.
func (l *Logger) ForContext(ctx context.Context) *Logger {
	if id := CorrelationID(ctx); id != "" {
		return l.WithCorrelationID(id)
	}
	return l
}
