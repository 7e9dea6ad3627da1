package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"nimbusdrive/internal/auth"
	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/service"
)

type SharingHandler struct {
	sharingService *service.SharingService
	tokens         *auth.TokenManager
}

func NewSharingHandler(sharingService *service.SharingService, tokens *auth.TokenManager) *SharingHandler {
	return &SharingHandler{
		sharingService: sharingService,
		tokens:         tokens,
	}
}

type createSharingRequest struct {
	FolderID   uuid.UUID `json:"folder_id"`
	Email      string    `json:"email"`
	AccessType string    `json:"access_type"`
	TimeLimit  time.Time `json:"time_limit,omitempty"`
	Notify     bool      `json:"notify"`
	// nil трактуется как true.
	UseHTML *bool `json:"use_html"`
}

func (r createSharingRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.AccessType, validation.Required, validation.In(
			string(domain.SharingRead),
			string(domain.SharingWrite),
		)),
	)
}

// CreateSharing выдаёт или обновляет грант видимости поддерева.
func (h *SharingHandler) CreateSharing(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createSharingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sharing, err := h.sharingService.CreateOrUpdateGrant(
		r.Context(),
		userID,
		req.FolderID,
		req.Email,
		domain.SharingAccessType(req.AccessType),
		req.TimeLimit,
		req.Notify,
		req.UseHTML == nil || *req.UseHTML,
	)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, sharing)
}

func (h *SharingHandler) ListSharedByMe(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sharings, err := h.sharingService.ListSharedByMe(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sharings)
}

func (h *SharingHandler) ListSharedWithMe(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sharings, err := h.sharingService.ListSharedWithMe(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sharings)
}

func (h *SharingHandler) DeleteSharing(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sharingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid sharing ID", http.StatusBadRequest)
		return
	}

	if err := h.sharingService.DeleteGrant(r.Context(), userID, sharingID); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
