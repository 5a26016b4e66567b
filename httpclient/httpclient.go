// Package httpclient builds the resty clients used for every outbound API
// call (analytics, job trigger, secondary data source, MCP bridge).
package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "vesselscout/1.0"

type startKey struct{}

// New returns a client for the named upstream with the given per-request
// timeout. Requests are logged at Debug through slog.
func New(name string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetLogger(slogLogger{upstream: name})
	Instrument(client, name)
	return client
}

// Instrument attaches slog hooks to client.
func Instrument(client *resty.Client, name string) {
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		ctx := context.WithValue(req.Context(), startKey{}, time.Now())
		req.SetContext(ctx)
		slog.DebugContext(ctx, "start request",
			"upstream", name,
			"method", req.Method,
			"url", req.URL,
		)
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		ctx := res.Request.Context()
		attrs := []any{
			"upstream", name,
			"method", res.Request.Method,
			"url", res.Request.URL,
			"status", res.StatusCode(),
		}
		if start, ok := ctx.Value(startKey{}).(time.Time); ok {
			attrs = append(attrs, "elapsed", time.Since(start))
		}
		slog.DebugContext(ctx, "request finished", attrs...)
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		slog.WarnContext(req.Context(), "request failed",
			"upstream", name,
			"method", req.Method,
			"url", req.URL,
			"error", err,
		)
	})
}

// slogLogger routes resty's internal messages to slog.
type slogLogger struct{ upstream string }

func (l slogLogger) Errorf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...), "upstream", l.upstream)
}

func (l slogLogger) Warnf(format string, v ...interface{}) {
	slog.Warn(fmt.Sprintf(format, v...), "upstream", l.upstream)
}

func (l slogLogger) Debugf(format string, v ...interface{}) {
	slog.Debug(fmt.Sprintf(format, v...), "upstream", l.upstream)
}
