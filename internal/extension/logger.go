package extension

import (
	"context"
	"log/slog"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/ir"
)

// LoggerExtension logs every action together with the state before and after it.
type LoggerExtension struct {
	base
	logger *slog.Logger
	level  slog.Level
}

// LoggerOption configures a LoggerExtension.
type LoggerOption func(*LoggerExtension)

// WithLogLevel sets the level of action records. Default: slog.LevelInfo.
func WithLogLevel(level slog.Level) LoggerOption {
	return func(e *LoggerExtension) {
		e.level = level
	}
}

// Logger creates a logger extension writing to logger.
// A nil logger falls back to slog.Default().
func Logger(logger *slog.Logger, opts ...LoggerOption) *LoggerExtension {
	if logger == nil {
		logger = slog.Default()
	}
	e := &LoggerExtension{
		base:   newBase(LoggerID, engine.SortOrderDefault),
		logger: logger,
		level:  slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Middleware returns the logging middleware.
func (e *LoggerExtension) Middleware() engine.Middleware {
	return engine.MiddlewareFunc(func(state engine.AppState, a ir.Action, next engine.RootReducer) engine.AppState {
		out := next(state, a)
		e.logger.Log(context.Background(), e.level, a.Type,
			slog.Int64("seq", a.Seq),
			slog.String("kind", a.Meta.Kind.String()),
			slog.Any("payload", a.Payload),
			slog.Any("prev", state),
			slog.Any("next", out),
		)
		return out
	})
}
