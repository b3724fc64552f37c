// Package logger provides the process-wide structured logger built on log/slog.
//
// Handlers and services log through WithCtx so every line carries the
// request_id injected by the HTTP middleware:
//
//	log := logger.WithCtx(ctx)
//	log.Info("order confirmed", "order_id", order.ID)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/shashiranjanraj/storefront/config"
)

var L *slog.Logger

func init() {
	L = slog.New(newConsoleHandler(os.Stdout, config.IsProduction()))
	slog.SetDefault(L)
}

// newConsoleHandler returns JSON in production and text everywhere else.
func newConsoleHandler(w io.Writer, production bool) slog.Handler {
	if production {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// Setup attaches the optional MongoDB sink when mongoURI is set. The returned
// func flushes and disconnects it; it is a no-op otherwise.
func Setup(mongoURI string) (func(), error) {
	if mongoURI == "" {
		return func() {}, nil
	}

	mh, err := NewMongoHandler(mongoURI, "storefront", "logs")
	if err != nil {
		return func() {}, err
	}

	L = slog.New(NewMultiHandler(newConsoleHandler(os.Stdout, config.IsProduction()), mh))
	slog.SetDefault(L)
	return mh.Close, nil
}

type ctxKey struct{}

// WithCtx returns the request-scoped logger stored by InjectLogger, or the
// base logger when ctx carries none.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores log in ctx. Used by the request logging middleware and
// by background jobs that want a tagged logger.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
