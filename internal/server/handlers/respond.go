package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/folioai/chatgate/internal/errors"
)

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

// writeJSON writes v with status. Encoding errors are dropped once headers are out.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
