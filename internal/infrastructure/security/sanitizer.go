package security

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Header names whose values never reach the logs.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"apikey":              true,
	"x-api-key":           true,
	"x-auth-token":        true,
}

// Substrings that mark a JSON field or query parameter as sensitive.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"apikey",
	"api_key",
	"authorization",
	"credential",
	"private_key",
}

const redactedValue = "[REDACTED]"

func isSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, f := range sensitiveFields {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// SanitizeHeaders flattens headers into a map with sensitive values redacted.
func SanitizeHeaders(headers http.Header) map[string]string {
	sanitized := make(map[string]string, len(headers))
	for key, values := range headers {
		if sensitiveHeaders[strings.ToLower(key)] {
			sanitized[key] = redactedValue
			continue
		}
		sanitized[key] = strings.Join(values, ", ")
	}
	return sanitized
}

// SanitizeBody returns a loggable JSON rendition of body. Sensitive fields
// are redacted at any depth; bodies over maxSize are truncated; non-JSON
// text is wrapped; binary content is summarised by size only.
func SanitizeBody(body []byte, maxSize int) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if !utf8.Valid(body) {
		return marshalRaw(map[string]any{"_binary": true, "_size": len(body)})
	}
	if maxSize > 0 && len(body) > maxSize {
		return marshalRaw(map[string]any{
			"_truncated": true,
			"_size":      len(body),
			"_preview":   string(body[:maxSize]),
		})
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return marshalRaw(map[string]any{"_raw": string(body), "_format": "text"})
	}
	return marshalRaw(redact(data))
}

func marshalRaw(v any) json.RawMessage {
	out, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{"_unencodable":true}`)
	}
	return out
}

func redact(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if isSensitiveField(k) {
				out[k] = redactedValue
				continue
			}
			out[k] = redact(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = redact(inner)
		}
		return out
	default:
		return val
	}
}

// SanitizeURL redacts the values of sensitive query parameters. PostgREST
// filter syntax (id=eq.X, order=fecha.desc) is preserved.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}

	changed := false
	parts := strings.Split(u.RawQuery, "&")
	for i, part := range parts {
		name, _, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
		if isSensitiveField(name) {
			parts[i] = name + "=" + redactedValue
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = strings.Join(parts, "&")
	return u.String()
}
