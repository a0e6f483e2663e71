package handlers

import (
	"net/http"

	"geoquest-backend/internal/middleware"
	"geoquest-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// PhotoHandler handles photo-related HTTP requests
type PhotoHandler struct {
	photoService *services.PhotoService
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photoService *services.PhotoService) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
	}
}

// UploadRequest represents a request to get a pre-signed URL
type UploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// UploadURL handles POST /api/v1/photos/upload-url
func (h *PhotoHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req UploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.photoService.UploadURL(ctx, userID, req.Filename, req.ContentType)
	if err != nil {
		respondServiceError(w, r, err, "generate upload URL")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("key", res.Key).
		Msg("Pre-signed URL generated")

	respondJSON(w, http.StatusOK, res)
}

// RegisterPhotoRequest is the metadata of an uploaded photo
type RegisterPhotoRequest struct {
	UserID    string  `json:"user_id"`
	CheckInID *string `json:"checkin_id"`
	Filename  string  `json:"filename"`
	URL       string  `json:"url"`
}

// RegisterPhoto handles POST /api/v1/photos
func (h *PhotoHandler) RegisterPhoto(w http.ResponseWriter, r *http.Request) {
	var req RegisterPhotoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireSelf(w, r, req.UserID) {
		return
	}

	photo, err := h.photoService.Register(r.Context(), middleware.GetUserID(r.Context()), services.PhotoDraft{
		Filename:  req.Filename,
		URL:       req.URL,
		CheckInID: req.CheckInID,
	})
	if err != nil {
		respondServiceError(w, r, err, "register photo")
		return
	}
	respondJSON(w, http.StatusCreated, photo)
}
