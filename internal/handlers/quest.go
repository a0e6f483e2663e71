package handlers

import (
	"net/http"

	"geoquest-backend/internal/geo"
	"geoquest-backend/internal/middleware"
	"geoquest-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// QuestHandler handles quest HTTP requests
type QuestHandler struct {
	questService *services.QuestService
}

// NewQuestHandler creates a new quest handler
func NewQuestHandler(questService *services.QuestService) *QuestHandler {
	return &QuestHandler{questService: questService}
}

// ListQuests handles GET /api/v1/quests
func (h *QuestHandler) ListQuests(w http.ResponseWriter, r *http.Request) {
	quests, err := h.questService.ListActive(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "list quests")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"quests": quests})
}

// GetQuest handles GET /api/v1/quests/{questID}
func (h *QuestHandler) GetQuest(w http.ResponseWriter, r *http.Request) {
	quest, err := h.questService.Get(r.Context(), chi.URLParam(r, "questID"))
	if err != nil {
		respondServiceError(w, r, err, "get quest")
		return
	}
	respondJSON(w, http.StatusOK, quest)
}

// StartQuestRequest is the body of the start endpoint
type StartQuestRequest struct {
	UserID string `json:"user_id"`
}

// StartQuest handles POST /api/v1/quests/{questID}/start
func (h *QuestHandler) StartQuest(w http.ResponseWriter, r *http.Request) {
	var req StartQuestRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if !requireSelf(w, r, req.UserID) {
		return
	}

	uq, err := h.questService.Start(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "questID"))
	if err != nil {
		respondServiceError(w, r, err, "start quest")
		return
	}
	respondJSON(w, http.StatusCreated, uq)
}

// CompleteStepRequest is the body of the complete-step endpoint
type CompleteStepRequest struct {
	UserID     string   `json:"user_id"`
	StepNumber int      `json:"step_number"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	PhotoURL   *string  `json:"photo_url"`
	Answer     *string  `json:"answer"`
}

// CompleteStep handles POST /api/v1/quests/{questID}/complete-step
func (h *QuestHandler) CompleteStep(w http.ResponseWriter, r *http.Request) {
	var req CompleteStepRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireSelf(w, r, req.UserID) {
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		respondError(w, "latitude and longitude are required", http.StatusBadRequest)
		return
	}

	res, err := h.questService.CompleteStep(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "questID"), services.StepSubmission{
		StepNumber: req.StepNumber,
		Coordinate: geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude},
		PhotoURL:   req.PhotoURL,
		Answer:     req.Answer,
	})
	if err != nil {
		respondServiceError(w, r, err, "complete quest step")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// ListUserQuests handles GET /api/v1/users/{userID}/quests
func (h *QuestHandler) ListUserQuests(w http.ResponseWriter, r *http.Request) {
	runs, err := h.questService.ListUserQuests(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondServiceError(w, r, err, "list user quests")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"quests": runs})
}

// CreateQuest handles POST /api/v1/admin/quests
func (h *QuestHandler) CreateQuest(w http.ResponseWriter, r *http.Request) {
	var draft services.QuestDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	quest, err := h.questService.Create(r.Context(), draft)
	if err != nil {
		respondServiceError(w, r, err, "create quest")
		return
	}
	respondJSON(w, http.StatusCreated, quest)
}
