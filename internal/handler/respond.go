package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/roomservice/api/internal/apperr"
	"github.com/roomservice/api/internal/enum"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"status":  enum.ResultError,
		"message": message,
	})
}

// writeServiceError maps an apperr kind to its HTTP status. Anything without
// a kind is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrStorageUnavailable):
		log.Printf("WARN: %s: %v", op, err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable, please try again")
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
