package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"geoquest-backend/internal/errorx"
	"geoquest-backend/internal/geo"
	"geoquest-backend/internal/models"
	"geoquest-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// DefaultNearbyRadius is used when a nearby query gives no radius
const DefaultNearbyRadius = 50000.0

// PlaceService serves locations and business partners
type PlaceService struct {
	store repository.Store
}

// NewPlaceService creates a new place service
func NewPlaceService(store repository.Store) *PlaceService {
	return &PlaceService{store: store}
}

// List returns all places of a kind
func (s *PlaceService) List(ctx context.Context, kind models.PlaceKind) ([]*models.Place, error) {
	return s.store.ListPlaces(ctx, kind)
}

// Nearby returns places within radius meters of center, closest first
func (s *PlaceService) Nearby(ctx context.Context, kind models.PlaceKind, center geo.Coordinate, radius float64) ([]*models.NearbyPlace, error) {
	if !center.Valid() {
		return nil, errorx.New(errorx.Validation, "invalid coordinates")
	}
	if radius <= 0 {
		radius = DefaultNearbyRadius
	}

	places, err := s.store.ListPlaces(ctx, kind)
	if err != nil {
		return nil, err
	}

	nearby := make([]*models.NearbyPlace, 0, len(places))
	for _, p := range places {
		d := geo.DistanceMeters(center, geo.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude})
		if d <= radius {
			nearby = append(nearby, &models.NearbyPlace{Place: *p, DistanceMeters: d})
		}
	}
	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceMeters < nearby[j].DistanceMeters
	})
	return nearby, nil
}

// Map returns all locations and partners as a GeoJSON feature collection
func (s *PlaceService) Map(ctx context.Context) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0)}
	for _, kind := range []models.PlaceKind{models.KindLocation, models.KindPartner} {
		places, err := s.store.ListPlaces(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, p := range places {
			fc.Features = append(fc.Features, &geojson.Feature{
				ID:       p.ID,
				Geometry: geom.NewPointFlat(geom.XY, []float64{p.Longitude, p.Latitude}),
				Properties: map[string]any{
					"kind":          string(kind),
					"name":          p.Name,
					"category":      p.Category,
					"radius_meters": p.RadiusMeters,
					"points_reward": p.PointsReward,
				},
			})
		}
	}
	return fc, nil
}

// PlaceDraft describes a place being created
type PlaceDraft struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
	PointsReward int     `json:"points_reward"`
}

// Create stores a new location or business partner
func (s *PlaceService) Create(ctx context.Context, kind models.PlaceKind, draft PlaceDraft) (*models.Place, error) {
	if strings.TrimSpace(draft.Name) == "" {
		return nil, errorx.New(errorx.Validation, "name is required")
	}
	fence := geo.Geofence{
		Center:       geo.Coordinate{Latitude: draft.Latitude, Longitude: draft.Longitude},
		RadiusMeters: draft.RadiusMeters,
	}
	if !fence.Valid() {
		return nil, errorx.New(errorx.Validation, "invalid coordinates or radius")
	}
	if draft.PointsReward < 0 {
		return nil, errorx.New(errorx.Validation, "points_reward must not be negative")
	}

	place := &models.Place{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(draft.Name),
		Description:  draft.Description,
		Category:     draft.Category,
		Latitude:     draft.Latitude,
		Longitude:    draft.Longitude,
		RadiusMeters: draft.RadiusMeters,
		PointsReward: draft.PointsReward,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreatePlace(ctx, kind, place); err != nil {
		return nil, storeErr(err, string(kind))
	}
	return place, nil
}
