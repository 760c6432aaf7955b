package unifiedllm

import (
	"context"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/teilomillet/gollm"
)

// gollmCall is what gollm reported about the most recent Generate call.
type gollmCall struct {
	status int    // HTTP status of a failed attempt, 0 if none
	body   string // response body excerpt for status
	err    error  // last attempt error
}

const maxErrorBody = 512

// callRecorder is installed as gollm's logger. gollm reports HTTP status and
// per-attempt errors only through its logger, so the adapter reads them back
// after each call. Messages at or above the configured level are forwarded to
// slog.
type callRecorder struct {
	logger *slog.Logger

	mu    sync.Mutex
	level gollm.LogLevel
	call  gollmCall
}

func newCallRecorder(logger *slog.Logger, level gollm.LogLevel) *callRecorder {
	return &callRecorder{logger: logger, level: level}
}

func (r *callRecorder) Debug(msg string, keysAndValues ...interface{}) {
	r.forward(gollm.LogLevelDebug, slog.LevelDebug, msg, keysAndValues)
}

func (r *callRecorder) Info(msg string, keysAndValues ...interface{}) {
	r.forward(gollm.LogLevelInfo, slog.LevelInfo, msg, keysAndValues)
}

func (r *callRecorder) Warn(msg string, keysAndValues ...interface{}) {
	if err, ok := value[error](keysAndValues, "error"); ok {
		r.mu.Lock()
		r.call.err = err
		r.mu.Unlock()
	}
	r.forward(gollm.LogLevelWarn, slog.LevelWarn, msg, keysAndValues)
}

func (r *callRecorder) Error(msg string, keysAndValues ...interface{}) {
	if status, ok := value[int](keysAndValues, "status"); ok {
		body, _ := value[string](keysAndValues, "body")
		if len(body) > maxErrorBody {
			cut := maxErrorBody
			for cut > 0 && !utf8.RuneStart(body[cut]) {
				cut--
			}
			body = body[:cut]
		}
		r.mu.Lock()
		r.call.status = status
		r.call.body = body
		r.mu.Unlock()
	}
	r.forward(gollm.LogLevelError, slog.LevelError, msg, keysAndValues)
}

func (r *callRecorder) SetLevel(level gollm.LogLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.level = level
}

func (r *callRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.call = gollmCall{}
}

func (r *callRecorder) last() gollmCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.call
}

func (r *callRecorder) forward(level gollm.LogLevel, slogLevel slog.Level, msg string, kv []interface{}) {
	r.mu.Lock()
	enabled := level <= r.level
	r.mu.Unlock()
	if enabled {
		r.logger.Log(context.Background(), slogLevel, "gollm: "+msg, kv...)
	}
}

// value returns the value logged under key, if it has type T.
func value[T any](kv []interface{}, key string) (T, bool) {
	var zero T
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			v, ok := kv[i+1].(T)
			return v, ok
		}
	}
	return zero, false
}
