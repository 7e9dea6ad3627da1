package handler

import (
	"encoding/json"
	"log"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"nimbusdrive/internal/auth"
	"nimbusdrive/internal/service"
)

type AuthHandler struct {
	userService *service.UserService
	tokens      *auth.TokenManager
}

func NewAuthHandler(userService *service.UserService, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
	}
}

type loginRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// Login регистрирует пользователя при первом входе (вместе с корневой
// папкой) и выдаёт пару токенов. Повторный вход идемпотентен.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.userService.Provision(r.Context(), req.UserID, req.Email)
	if err != nil {
		respondError(w, err)
		return
	}

	pair, err := h.tokens.IssueTokens(user.ID)
	if err != nil {
		log.Printf("[Auth] Failed to issue tokens for user %s: %v", user.ID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, pair)
}
