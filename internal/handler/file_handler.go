package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"nimbusdrive/internal/auth"
	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/service"
)

// maxUploadSize ограничивает размер multipart-формы при загрузке.
const maxUploadSize = 100 << 20

type FileHandler struct {
	fileService *service.FileService
	tokens      *auth.TokenManager
}

func NewFileHandler(fileService *service.FileService, tokens *auth.TokenManager) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		tokens:      tokens,
	}
}

// Upload принимает файл из multipart-формы и помещает его в папку.
// Поле folder_id может быть пустым, тогда файл попадает в корень.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	folderID := uuid.Nil
	if raw := r.FormValue("folder_id"); raw != "" {
		folderID, err = uuid.Parse(raw)
		if err != nil {
			http.Error(w, "Invalid folder ID", http.StatusBadRequest)
			return
		}
	}

	src, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File is required", http.StatusBadRequest)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		log.Printf("[File] Failed to read upload %q: %v", header.Filename, err)
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	file, err := h.fileService.Upload(r.Context(), userID, folderID, header.Filename, data)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, file)
}

// ListByFolder возвращает файлы папки с подписанными ссылками на скачивание.
func (h *FileHandler) ListByFolder(w http.ResponseWriter, r *http.Request) {
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

	files, err := h.fileService.GetFiles(r.Context(), userID, folderID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, files)
}

func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	file, err := h.fileService.GetFile(r.Context(), userID, fileID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, file)
}

func (h *FileHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	var patch domain.FilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	file, err := h.fileService.Update(r.Context(), userID, fileID, patch)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, file)
}

func (h *FileHandler) ReorderFile(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
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

	file, err := h.fileService.Reorder(r.Context(), userID, fileID, req.Order)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, file)
}

func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	if err := h.fileService.Delete(r.Context(), userID, fileID); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type sendFileRequest struct {
	Email string `json:"email"`
	// nil трактуется как true.
	UseHTML *bool `json:"use_html"`
}

func (r sendFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// SendFile отправляет файл вложением на указанный адрес.
func (h *FileHandler) SendFile(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	var req sendFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	useHTML := req.UseHTML == nil || *req.UseHTML
	if err := h.fileService.SendFileByEmail(r.Context(), userID, fileID, req.Email, useHTML); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
