package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes an error body in the same {"error": ...} shape the
// handler package uses, so middleware rejections look like any other error.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
