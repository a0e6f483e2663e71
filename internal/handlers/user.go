package handlers

import (
	"net/http"

	"geoquest-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// UserHandler handles login, profile and points HTTP requests
type UserHandler struct {
	userService   *services.UserService
	ledgerService *services.LedgerService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, ledgerService *services.LedgerService) *UserHandler {
	return &UserHandler{
		userService:   userService,
		ledgerService: ledgerService,
	}
}

// LoginRequest is the body of the customer login endpoint
type LoginRequest struct {
	Email string `json:"email"`
}

// Login handles POST /api/v1/auth/shopify/customer
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.userService.Login(r.Context(), req.Email)
	if err != nil {
		respondServiceError(w, r, err, "log in")
		return
	}

	log.Info().Str("user_id", res.User.ID).Msg("User logged in")
	respondJSON(w, http.StatusOK, res)
}

// LoginByCustomerID handles GET /api/v1/auth/shopify/customer/{customerID}
func (h *UserHandler) LoginByCustomerID(w http.ResponseWriter, r *http.Request) {
	res, err := h.userService.LoginByCustomerID(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		respondServiceError(w, r, err, "log in")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GetUser handles GET /api/v1/users/{userID}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondServiceError(w, r, err, "get user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// GetPoints handles GET /api/v1/users/{userID}/points
func (h *UserHandler) GetPoints(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	points, err := h.ledgerService.Balance(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "get points")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user_id": userID, "points": points})
}

// RedeemRequest is the body of the redeem endpoint
type RedeemRequest struct {
	Points       int    `json:"points"`
	DiscountCode string `json:"discount_code"`
}

// RedeemResponse is returned after a successful redemption
type RedeemResponse struct {
	Success bool `json:"success"`
	*services.RedeemResult
}

// RedeemPoints handles POST /api/v1/users/{userID}/redeem-points
func (h *UserHandler) RedeemPoints(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := chi.URLParam(r, "userID")
	res, err := h.ledgerService.Redeem(r.Context(), userID, req.Points, req.DiscountCode)
	if err != nil {
		respondServiceError(w, r, err, "redeem points")
		return
	}

	log.Info().
		Str("user_id", userID).
		Int("points", res.PointsRedeemed).
		Msg("Points redeemed")

	respondJSON(w, http.StatusOK, RedeemResponse{Success: true, RedeemResult: res})
}

// PushTokenRequest is the body of the push token endpoint
type PushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// UpdatePushToken handles PUT /api/v1/users/{userID}/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	var req PushTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.userService.UpdatePushToken(r.Context(), chi.URLParam(r, "userID"), req.PushToken); err != nil {
		respondServiceError(w, r, err, "update push token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
