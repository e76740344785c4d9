package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

const maxSessionIDLength = 128

// sessionID extracts and validates the {sessionId} route variable
func sessionID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)["sessionId"])
	if id == "" || len(id) > maxSessionIDLength {
		return "", false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
