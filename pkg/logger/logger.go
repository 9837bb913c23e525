package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/wecr8/damp-backend/pkg/env"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options configures the structured logger. An empty Format reads LOG_FORMAT.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	WarnStack   bool
	Format      string
	Output      io.Writer
}

// Logger wraps zerolog with context-carried fields. A nil *Logger discards
// everything, so optional loggers can be threaded through constructors.
type Logger struct {
	root      zerolog.Logger
	warnStack bool
}

type fieldsKey struct{}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	format := opts.Format
	if format == "" {
		format = env.Get("LOG_FORMAT", FormatJSON)
	}
	if format == FormatConsole {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	root := zerolog.New(out).
		Level(level).
		Hook(severityHook{}).
		With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()

	return &Logger{root: root, warnStack: opts.WarnStack}
}

// ParseLevel never fails; unknown or blank input means info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// severityHook adds the Cloud Logging severity next to zerolog's own level.
type severityHook struct{}

func (severityHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	switch level {
	case zerolog.DebugLevel, zerolog.TraceLevel:
		e.Str("severity", "DEBUG")
	case zerolog.InfoLevel:
		e.Str("severity", "INFO")
	case zerolog.WarnLevel:
		e.Str("severity", "WARNING")
	case zerolog.ErrorLevel:
		e.Str("severity", "ERROR")
	case zerolog.FatalLevel, zerolog.PanicLevel:
		e.Str("severity", "CRITICAL")
	}
}

func (l *Logger) entry(ctx context.Context) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	if ctx == nil {
		return l.root
	}
	lg := l.root
	if scoped, ok := ctx.Value(fieldsKey{}).(zerolog.Logger); ok {
		lg = scoped
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		lg = lg.With().Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String()).Logger()
	}
	return lg
}

func (l *Logger) scoped(ctx context.Context) zerolog.Logger {
	if scoped, ok := ctx.Value(fieldsKey{}).(zerolog.Logger); ok {
		return scoped
	}
	return l.root
}

// WithFields returns ctx carrying fields for every later entry logged with it.
func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	if l == nil || ctx == nil || len(fields) == 0 {
		return ctx
	}
	return context.WithValue(ctx, fieldsKey{}, l.scoped(ctx).With().Fields(fields).Logger())
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.WithFields(ctx, map[string]any{key: value})
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUID(ctx context.Context, uid string) context.Context {
	return l.WithField(ctx, "uid", uid)
}

func (l *Logger) WithVoterID(ctx context.Context, voterID string) context.Context {
	return l.WithField(ctx, "voter_id", voterID)
}

func (l *Logger) WithCartID(ctx context.Context, cartID string) context.Context {
	return l.WithField(ctx, "cart_id", cartID)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	lg := l.entry(ctx)
	lg.Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	lg := l.entry(ctx)
	lg.Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	lg := l.entry(ctx)
	ev := lg.Warn()
	if l != nil && l.warnStack {
		ev = ev.Str("stack", stack())
	}
	ev.Msg(msg)
}

// Error always records the goroutine stack.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	lg := l.entry(ctx)
	lg.Error().Err(err).Str("stack", stack()).Msg(msg)
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
