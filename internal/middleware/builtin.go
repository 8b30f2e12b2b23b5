package middleware

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/pickles-http/pickles/internal/logging"
	"github.com/pickles-http/pickles/internal/request"
)

// Catcher logs `[METHOD] - PATH` at INFO. The registry always runs it.
func Catcher(logger *logging.Logger) Middleware {
	return Func(func(req *request.Request, _ map[string]string) error {
		logger.Info("[" + req.Method + "] - " + req.Path)
		return nil
	})
}

type header struct {
	key   string
	value string
}

var defaultCORSHeaders = []header{
	{fiber.HeaderAccessControlAllowOrigin, "*"},
	{fiber.HeaderAccessControlAllowMethods, "GET, POST, PUT, DELETE, OPTIONS"},
	{fiber.HeaderAccessControlAllowHeaders, "Content-Type, Authorization"},
	{fiber.HeaderAccessControlMaxAge, "86400"},
}

// DefaultCORSHeaders returns a copy of the CORS defaults.
func DefaultCORSHeaders() map[string]string {
	out := make(map[string]string, len(defaultCORSHeaders))
	for _, h := range defaultCORSHeaders {
		out[h.key] = h.value
	}
	return out
}

// CORS stages the default CORS headers merged with the entry's custom
// headers; a custom value wins on key collision. Defaults keep their order,
// extra custom keys follow sorted.
func CORS() Middleware {
	return Func(func(req *request.Request, customHeaders map[string]string) error {
		staged := req.ResponseHeaders
		for _, h := range defaultCORSHeaders {
			value := h.value
			if override, ok := lookupFold(customHeaders, h.key); ok {
				value = override
			}
			staged.Set(h.key, value)
		}

		extra := make([]string, 0, len(customHeaders))
		for k := range customHeaders {
			if !isDefaultCORSKey(k) {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		for _, k := range extra {
			staged.Set(k, customHeaders[k])
		}
		return nil
	})
}

// RequestID stages `X-Request-ID` carrying the request's id.
func RequestID() Middleware {
	return Func(func(req *request.Request, _ map[string]string) error {
		req.ResponseHeaders.Set(fiber.HeaderXRequestID, req.ID)
		return nil
	})
}

func isDefaultCORSKey(key string) bool {
	for _, h := range defaultCORSHeaders {
		if strings.EqualFold(h.key, key) {
			return true
		}
	}
	return false
}

func lookupFold(m map[string]string, key string) (string, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}
