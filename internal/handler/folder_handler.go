package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"nimbusdrive/internal/auth"
	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/service"
)

type FolderHandler struct {
	folderService  *service.FolderService
	sharingService *service.SharingService
	tokens         *auth.TokenManager
}

func NewFolderHandler(folderService *service.FolderService, sharingService *service.SharingService, tokens *auth.TokenManager) *FolderHandler {
	return &FolderHandler{
		folderService:  folderService,
		sharingService: sharingService,
		tokens:         tokens,
	}
}

type createFolderRequest struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

func (r createFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), userID, req.Name, req.ParentID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, folder)
}

// GetTree возвращает всё дерево владельца с вложенными файлами.
func (h *FolderHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	forest, err := h.folderService.GetTree(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, forest)
}

func (h *FolderHandler) GetSubtree(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	tree, err := h.folderService.GetSubtree(r.Context(), userID, folderID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tree)
}

func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	var patch domain.FolderPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := h.folderService.UpdateFolder(r.Context(), userID, folderID, patch)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, folder)
}

func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	if err := h.folderService.DeleteFolder(r.Context(), userID, folderID); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type reorderRequest struct {
	Order int `json:"order"`
}

func (r reorderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Order, validation.Required, validation.Min(1)),
	)
}

func (h *FolderHandler) ReorderFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	folder, err := h.folderService.Reorder(r.Context(), userID, folderID, req.Order)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, folder)
}

type cloneFolderRequest struct {
	Mode string `json:"mode"`
}

func (r cloneFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Mode, validation.Required, validation.In(
			string(service.CloneSimple),
			string(service.CloneStructureAndFiles),
		)),
	)
}

func (h *FolderHandler) CloneFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	var req cloneFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	clone, err := h.folderService.CloneFolder(r.Context(), userID, folderID, service.CloneMode(req.Mode))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, clone)
}

type sendArchiveRequest struct {
	Email string `json:"email"`
	Kind  string `json:"kind"`
	// nil трактуется как true.
	UseHTML *bool `json:"use_html"`
}

func (r sendArchiveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Kind, validation.Required),
	)
}

// SendArchive упаковывает поддерево в архив и отправляет его письмом.
func (h *FolderHandler) SendArchive(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	var req sendArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	useHTML := req.UseHTML == nil || *req.UseHTML
	if err := h.folderService.SendArchiveByEmail(r.Context(), userID, folderID, req.Kind, req.Email, useHTML); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetSharedSubtree возвращает общее поддерево, видимое получателю гранта.
func (h *FolderHandler) GetSharedSubtree(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	tree, err := h.sharingService.SharedSubtree(r.Context(), userID, folderID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tree)
}

func (h *FolderHandler) UpdateSharedFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	var patch domain.FolderPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := h.sharingService.UpdateSharedFolder(r.Context(), userID, folderID, patch)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, folder)
}
