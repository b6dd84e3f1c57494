package apiclient

import (
	"encoding/json"
	"net/http"
)

// APIError is a non-2xx response normalized to a human-readable message
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Unauthorized reports whether the server rejected the token
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// errorMessage picks the message from an error body: detail, error, message,
// a bare JSON string, then the compact JSON of the body. Bodies that are not
// JSON fall back to the status text.
func errorMessage(status int, body []byte) string {
	fallback := "API Error: " + http.StatusText(status)

	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return fallback
	}

	switch v := raw.(type) {
	case string:
		return v
	case map[string]interface{}:
		for _, key := range []string{"detail", "error", "message"} {
			if msg := stringField(v[key]); msg != "" {
				return msg
			}
		}
	case nil:
		return fallback
	}

	compact, err := json.Marshal(raw)
	if err != nil {
		return fallback
	}
	return string(compact)
}

// stringField renders a truthy JSON value as a message, "" otherwise
func stringField(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
	case float64:
		if t == 0 {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
