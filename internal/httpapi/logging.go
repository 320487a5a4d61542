package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"modelgw/internal/generation"
)

// zlog is the structured logger used by the HTTP layer. Disabled until SetLogger.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

var defaultLogLevel = LevelInfo

// SetRequestLogLevel sets the default request log level (off, error, info, debug).
func SetRequestLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// reqLog carries the logging decisions for one completion request.
type reqLog struct {
	lvl   LogLevel
	path  string
	rid   string
	model string
	start time.Time
}

func newReqLog(r *http.Request, model string) *reqLog {
	return &reqLog{
		lvl:   requestLogLevel(r),
		path:  r.URL.Path,
		rid:   middleware.GetReqID(r.Context()),
		model: model,
		start: time.Now(),
	}
}

func (l *reqLog) event(e *zerolog.Event) *zerolog.Event {
	e = e.Str("path", l.path).Str("model", l.model)
	if l.rid != "" {
		e = e.Str("request_id", l.rid)
	}
	return e
}

func (l *reqLog) begin(stream bool) {
	if l.lvl >= LevelInfo {
		l.event(zlog.Info()).Bool("stream", stream).Msg("completion start")
	}
}

// chunk logs one outgoing SSE payload at debug level.
func (l *reqLog) chunk(data []byte) {
	if l.lvl >= LevelDebug {
		l.event(zlog.Debug()).Str("data", string(data)).Msg("completion>")
	}
}

// backendError logs an in-band failure, including its internal diagnostic.
func (l *reqLog) backendError(info *generation.ErrorInfo) {
	if l.lvl >= LevelError {
		l.withInternal(l.event(zlog.Error()), info).Err(info).Msg("completion error")
	}
}

func (l *reqLog) withInternal(e *zerolog.Event, err error) *zerolog.Event {
	if im := internalMessage(err); im != "" {
		e = e.Str("internal_message", im)
	}
	return e
}

func (l *reqLog) end(status int, err error) {
	switch {
	case err != nil && l.lvl >= LevelError:
		l.withInternal(l.event(zlog.Error()), err).Int("status", status).Dur("dur", time.Since(l.start)).Err(err).Msg("completion end")
	case err == nil && l.lvl >= LevelInfo:
		l.event(zlog.Info()).Int("status", status).Dur("dur", time.Since(l.start)).Msg("completion end")
	}
}
