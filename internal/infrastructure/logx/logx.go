package logx

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	traceIDKey   ctxKey = "trace_id"
)

var (
	logger *zap.Logger
)

func init() {
	l, err := New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}
	logger = l
}

// New builds a JSON production logger at the given level (info when empty
// or unknown).
func New(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Sampling = nil
	zapCfg.DisableStacktrace = true
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level != "" {
		_ = zapCfg.Level.UnmarshalText([]byte(strings.ToLower(level)))
	}
	return zapCfg.Build(zap.AddCaller())
}

// L returns the package-level logger instance.
func L() *zap.Logger {
	return logger
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func ContextWithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// WithFields enriches the logger with the request and trace IDs carried by ctx.
func WithFields(ctx context.Context) *zap.Logger {
	l := logger
	if rid := RequestID(ctx); rid != "" {
		l = l.With(zap.String("request_id", rid))
	}
	if tid := TraceID(ctx); tid != "" {
		l = l.With(zap.String("trace_id", tid))
	}
	return l
}
