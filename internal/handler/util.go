package handler

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/capitalize-ai/commerce-assistant/internal/apperr"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 * 1024

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeAppError maps a classified error to a status code.
func writeAppError(w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.InputInvalid:
		writeError(w, http.StatusBadRequest, err.Error())
	case apperr.CatalogUnavailable:
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "tenant not found")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
