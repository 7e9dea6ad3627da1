package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"nimbusdrive/internal/domain"
)

// respondError переводит ошибку доменного слоя в HTTP-статус.
// Всё, что не попало в известные категории, считается внутренней ошибкой.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrUpstream):
		log.Printf("[HTTP] Upstream failure: %v", err)
		http.Error(w, "Upstream service failed", http.StatusBadGateway)
	default:
		log.Printf("[HTTP] Internal error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[HTTP] Error encoding response: %v", err)
	}
}
