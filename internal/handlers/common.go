package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"geoquest-backend/internal/errorx"
	"geoquest-backend/internal/middleware"

	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response. Distance fields are set only
// when a claim fell outside a geofence.
type ErrorResponse struct {
	Error                string   `json:"error"`
	DistanceMeters       *float64 `json:"distance_meters,omitempty"`
	RequiredRadiusMeters *float64 `json:"required_radius_meters,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondServiceError maps a service error to its status code. Unknown
// errors are logged and hidden behind a generic message.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var e *errorx.Error
	if !errors.As(err, &e) {
		log.Error().
			Err(err).
			Str("user_id", middleware.GetUserID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Failed to " + action)
		respondError(w, "Failed to "+action, http.StatusInternalServerError)
		return
	}

	respondJSON(w, errorx.HTTPStatus(e.Kind), ErrorResponse{
		Error:                e.Message,
		DistanceMeters:       e.DistanceMeters,
		RequiredRadiusMeters: e.RadiusMeters,
	})
}

// decodeJSON reads a JSON body into dst, writing a 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// requireSelf rejects a body user_id that differs from the authenticated user
func requireSelf(w http.ResponseWriter, r *http.Request, userID string) bool {
	if userID != "" && userID != middleware.GetUserID(r.Context()) {
		respondError(w, "Forbidden", http.StatusForbidden)
		return false
	}
	return true
}

// queryFloat parses an optional float query parameter
func queryFloat(r *http.Request, name string) (float64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
