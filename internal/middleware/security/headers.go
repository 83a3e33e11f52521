package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HeadersConfig lists the response headers set on every API response.
// Empty values are skipped.
type HeadersConfig struct {
	Static map[string]string

	// HSTS is only sent over TLS.
	HSTSMaxAge     time.Duration
	HSTSSubdomains bool
	HSTSPreload    bool
}

// DefaultHeadersConfig suits a JSON API that also serves PNG reports.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		Static: map[string]string{
			"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'",
			"X-Content-Type-Options":       "nosniff",
			"X-Frame-Options":              "DENY",
			"Referrer-Policy":              "no-referrer",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
		HSTSMaxAge:     365 * 24 * time.Hour,
		HSTSSubdomains: true,
		HSTSPreload:    true,
	}
}

type HeadersMiddleware struct {
	static [][2]string
	hsts   string
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{}
	for k, v := range cfg.Static {
		if v != "" {
			h.static = append(h.static, [2]string{k, v})
		}
	}
	if cfg.HSTSMaxAge > 0 {
		parts := []string{"max-age=" + strconv.Itoa(int(cfg.HSTSMaxAge/time.Second))}
		if cfg.HSTSSubdomains {
			parts = append(parts, "includeSubDomains")
		}
		if cfg.HSTSPreload {
			parts = append(parts, "preload")
		}
		h.hsts = strings.Join(parts, "; ")
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		for _, kv := range h.static {
			hdr.Set(kv[0], kv[1])
		}
		if r.TLS != nil && h.hsts != "" {
			hdr.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// CacheControl pins Cache-Control, e.g. "no-store" for per-user data.
func CacheControl(value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if value == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", value)
			next.ServeHTTP(w, r)
		})
	}
}
