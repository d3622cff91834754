// Package handlers provides the HTTP surface: server-rendered pages and
// the JSON API.
package handlers

import (
	"encoding/json"
	"net/http"

	"a11ydash/interfaces/web/templates"
	"a11ydash/logging"
)

// RenderPage renders an embedded page template to the response.
func RenderPage(w http.ResponseWriter, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Render(w, page, data); err != nil {
		logging.Error("Failed to render page", "page", page, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode JSON response", "error", err)
	}
}

// WriteJSONError writes the API error shape {"error": message}.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
