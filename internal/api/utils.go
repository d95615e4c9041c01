package api

import (
	"encoding/json"
	"log"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}

type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failure{Success: false, Message: message})
}
