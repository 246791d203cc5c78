package utils

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the envelope for every JSON endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// PageData wraps a result set with pagination metadata under the given key.
func PageData(key string, items interface{}, total int64, page, perPage int) map[string]interface{} {
	return map[string]interface{}{
		key:        items,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	}
}

// GetStringValue returns the value of a nullable string pointer or empty string if nil
func GetStringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
