package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/services/api-gateway/internal/port"
)

// CreateProxy создает обратный прокси: к пути запроса добавляется pathPrefix
// (/conversations/1 -> /api/v1/conversations/1), query сохраняется.
func CreateProxy(targetURL, pathPrefix string) (http.Handler, error) {
	return newProxy(targetURL, pathPrefix, 0)
}

// CreateSSEProxy - прокси для text/event-stream: каждый фрейм отдается клиенту сразу.
func CreateSSEProxy(targetURL, pathPrefix string) (http.Handler, error) {
	return newProxy(targetURL, pathPrefix, -1)
}

func newProxy(targetURL, pathPrefix string, flushInterval time.Duration) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL %q: %w", targetURL, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid target URL %q: scheme and host are required", targetURL)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.FlushInterval = flushInterval

	proxy.Director = func(req *http.Request) {
		req.URL.Scheme = target.Scheme
		req.URL.Host = target.Host
		req.Host = target.Host

		req.URL.Path = pathPrefix + req.URL.Path
		req.URL.RawPath = ""

		// Сервисы доверяют только X-User-*, сам токен им не нужен.
		req.Header.Del("Authorization")

		if traceID := contextkeys.TraceIDFromContext(req.Context()); traceID != "" {
			req.Header.Set("X-Trace-ID", traceID)
		}
	}

	// X-Trace-ID ответа уже выставлен LoggerMiddleware
	proxy.ModifyResponse = func(resp *http.Response) error {
		resp.Header.Del("X-Trace-ID")
		return nil
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, context.Canceled) {
			// клиент ушел, например закрыл SSE-поток
			return
		}
		contextkeys.LoggerFromContext(r.Context()).Error("Upstream request failed", err, port.Fields{
			"upstream": target.Host,
		})
		WriteJSONError(w, http.StatusBadGateway, "upstream service unavailable")
	}

	return proxy, nil
}
