package httpx

import (
	"encoding/json"
	"strings"
)

// APIError is the error envelope the salon backend uses on 4xx/5xx:
// {"error": "...", "code": "...", "message": "..."}. Any field may be missing and
// "error" is sometimes a machine code, sometimes prose.
type APIError struct {
	Code    string `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`

	// Raw holds non-JSON bodies (proxies, HTML error pages) for matching only.
	Raw string `json:"-"`
}

// ParseAPIError decodes an error body, tolerating bodies that are not JSON objects.
func ParseAPIError(body []byte) APIError {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return APIError{Raw: Snippet(body, 500)}
	}
	return APIError{
		Code:    stringField(raw, "code"),
		Error:   stringField(raw, "error"),
		Message: stringField(raw, "message"),
	}
}

// stringField tolerates non-string values, e.g. {"error": {"message": "..."}}.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if s, ok := v["message"].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// Text joins the human readable parts, for substring matching and user messages.
func (e APIError) Text() string {
	parts := make([]string, 0, 2)
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Error != "" && e.Error != e.Message {
		parts = append(parts, e.Error)
	}
	return strings.Join(parts, ": ")
}
