package handlers

import (
	"net/http"

	"geoquest-backend/internal/geo"
	"geoquest-backend/internal/models"
	"geoquest-backend/internal/services"
)

// PlaceHandler serves locations and business partners. One handler value
// exists per place kind.
type PlaceHandler struct {
	placeService *services.PlaceService
	kind         models.PlaceKind
	listKey      string
}

// NewPlaceHandler creates a handler for one kind of place
func NewPlaceHandler(placeService *services.PlaceService, kind models.PlaceKind) *PlaceHandler {
	listKey := "locations"
	if kind == models.KindPartner {
		listKey = "partners"
	}
	return &PlaceHandler{placeService: placeService, kind: kind, listKey: listKey}
}

// List handles GET /api/v1/locations and /api/v1/partners
func (h *PlaceHandler) List(w http.ResponseWriter, r *http.Request) {
	places, err := h.placeService.List(r.Context(), h.kind)
	if err != nil {
		respondServiceError(w, r, err, "list "+h.listKey)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{h.listKey: places})
}

// Nearby handles GET /api/v1/{locations,partners}/nearby?lat=&lon=&radius=
// (lng is accepted in place of lon)
func (h *PlaceHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	lat, okLat, errLat := queryFloat(r, "lat")
	lng, okLng, errLng := queryFloat(r, "lon")
	if !okLng && errLng == nil {
		lng, okLng, errLng = queryFloat(r, "lng")
	}
	radius, _, errRadius := queryFloat(r, "radius")
	if errLat != nil || errLng != nil || errRadius != nil || !okLat || !okLng {
		respondError(w, "lat and lon query parameters are required", http.StatusBadRequest)
		return
	}

	places, err := h.placeService.Nearby(r.Context(), h.kind, geo.Coordinate{Latitude: lat, Longitude: lng}, radius)
	if err != nil {
		respondServiceError(w, r, err, "find nearby "+h.listKey)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{h.listKey: places})
}

// Map handles GET /api/v1/locations/map
func (h *PlaceHandler) Map(w http.ResponseWriter, r *http.Request) {
	fc, err := h.placeService.Map(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "build map")
		return
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		respondServiceError(w, r, err, "encode map")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Create handles POST /api/v1/admin/{locations,partners}
func (h *PlaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft services.PlaceDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	place, err := h.placeService.Create(r.Context(), h.kind, draft)
	if err != nil {
		respondServiceError(w, r, err, "create "+string(h.kind))
		return
	}
	respondJSON(w, http.StatusCreated, place)
}
