package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// forbiddenKey matches operator-like keys ("$where", "a.b") that must never reach a store.
func forbiddenKey(key string) bool {
	return strings.HasPrefix(key, "$") || strings.Contains(key, ".")
}

// sanitize drops forbidden keys from decoded JSON, recursively.
// It reports whether anything was dropped.
func sanitize(v interface{}) bool {
	var dropped bool
	switch val := v.(type) {
	case map[string]interface{}:
		for k, child := range val {
			if forbiddenKey(k) {
				delete(val, k)
				dropped = true
				continue
			}
			if sanitize(child) {
				dropped = true
			}
		}
	case []interface{}:
		for _, child := range val {
			if sanitize(child) {
				dropped = true
			}
		}
	}
	return dropped
}

// sanitizeMiddleware strips forbidden keys from the query string and from JSON bodies.
func sanitizeMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()

		params := req.URL.Query()
		var dirty bool
		for k := range params {
			if forbiddenKey(k) {
				params.Del(k)
				dirty = true
			}
		}
		if dirty {
			req.URL.RawQuery = params.Encode()
		}

		if req.Body == nil || !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
			return next(ctx)
		}
		body, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return errHttpBadPayload
		}
		req.Body = io.NopCloser(bytes.NewReader(body))

		var data interface{}
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err = dec.Decode(&data); err != nil {
			return next(ctx) // let Bind report malformed payloads
		}
		if !sanitize(data) {
			return next(ctx)
		}

		clean, err := json.Marshal(data)
		if err != nil {
			return errHttpBadPayload
		}
		req.Body = io.NopCloser(bytes.NewReader(clean))
		req.ContentLength = int64(len(clean))
		req.Header.Set(echo.HeaderContentLength, strconv.Itoa(len(clean)))
		return next(ctx)
	}
}
