package handlers

import (
	"net/http"

	"geoquest-backend/internal/geo"
	"geoquest-backend/internal/middleware"
	"geoquest-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// CheckInHandler handles check-in HTTP requests
type CheckInHandler struct {
	checkInService *services.CheckInService
}

// NewCheckInHandler creates a new check-in handler
func NewCheckInHandler(checkInService *services.CheckInService) *CheckInHandler {
	return &CheckInHandler{checkInService: checkInService}
}

// CheckInRequest is the body of both check-in endpoints
type CheckInRequest struct {
	UserID            string   `json:"user_id"`
	LocationID        string   `json:"location_id"`
	BusinessPartnerID string   `json:"business_partner_id"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
}

// CheckInResponse is returned after a check-in is recorded
type CheckInResponse struct {
	CheckInID      string   `json:"checkin_id"`
	Verified       bool     `json:"verified"`
	PointsEarned   int      `json:"points_earned"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	TotalPoints    int      `json:"total_points"`
}

// CreateCheckIn handles POST /api/v1/checkins
func (h *CheckInHandler) CreateCheckIn(w http.ResponseWriter, r *http.Request) {
	h.record(w, r, false)
}

// CreateBusinessCheckIn handles POST /api/v1/business-checkins
func (h *CheckInHandler) CreateBusinessCheckIn(w http.ResponseWriter, r *http.Request) {
	h.record(w, r, true)
}

func (h *CheckInHandler) record(w http.ResponseWriter, r *http.Request, business bool) {
	var req CheckInRequest
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

	target := services.CheckInTarget{LocationID: req.LocationID, BusinessPartnerID: req.BusinessPartnerID}
	if business {
		if req.BusinessPartnerID == "" {
			respondError(w, "business_partner_id is required", http.StatusBadRequest)
			return
		}
		target.LocationID = ""
	}

	claimed := geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
	res, err := h.checkInService.RecordCheckIn(r.Context(), middleware.GetUserID(r.Context()), target, claimed)
	if err != nil {
		respondServiceError(w, r, err, "record checkin")
		return
	}

	respondJSON(w, http.StatusOK, CheckInResponse{
		CheckInID:      res.CheckIn.ID,
		Verified:       res.Verified,
		PointsEarned:   res.PointsEarned,
		DistanceMeters: res.DistanceMeters,
		TotalPoints:    res.Balance,
	})
}

// ListCheckIns handles GET /api/v1/users/{userID}/checkins
func (h *CheckInHandler) ListCheckIns(w http.ResponseWriter, r *http.Request) {
	checkIns, err := h.checkInService.ListCheckIns(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondServiceError(w, r, err, "list checkins")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"checkins": checkIns})
}
