package services

import (
	"context"
	"encoding/json"
	"testing"

	"geoquest-backend/internal/errorx"
	"geoquest-backend/internal/geo"
	"geoquest-backend/internal/models"
	"geoquest-backend/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestNearby(t *testing.T) {
	store := testutil.NewMemStore()
	store.SeedPlace(models.KindLocation, "far", farAway, 50, 10)
	store.SeedPlace(models.KindLocation, "here", trailhead, 50, 10)
	store.SeedPlace(models.KindLocation, "other-continent", geo.Coordinate{Latitude: 48.85, Longitude: 2.35}, 50, 10)
	svc := NewPlaceService(store)
	ctx := context.Background()

	places, err := svc.Nearby(ctx, models.KindLocation, trailhead, 0)
	require.NoError(t, err)
	require.Len(t, places, 2)
	require.Equal(t, "here", places[0].ID)
	require.Equal(t, "far", places[1].ID)
	require.Less(t, places[0].DistanceMeters, places[1].DistanceMeters)

	places, err = svc.Nearby(ctx, models.KindLocation, trailhead, 1000)
	require.NoError(t, err)
	require.Len(t, places, 1)

	_, err = svc.Nearby(ctx, models.KindLocation, geo.Coordinate{Latitude: 100}, 10)
	requireKind(t, err, errorx.Validation)
}

func TestMapGeoJSON(t *testing.T) {
	store := testutil.NewMemStore()
	store.SeedPlace(models.KindLocation, "here", trailhead, 50, 10)
	store.SeedPlace(models.KindPartner, "cafe", farAway, 25, 5)
	svc := NewPlaceService(store)

	fc, err := svc.Map(context.Background())
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	data, err := json.Marshal(fc)
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "FeatureCollection", decoded.Type)
	require.Equal(t, "Point", decoded.Features[0].Geometry.Type)
	require.Equal(t, []float64{trailhead.Longitude, trailhead.Latitude}, decoded.Features[0].Geometry.Coordinates)
	require.Equal(t, "location", decoded.Features[0].Properties["kind"])
	require.Equal(t, "partner", decoded.Features[1].Properties["kind"])
}

func TestCreatePlace(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewPlaceService(store)
	ctx := context.Background()

	place, err := svc.Create(ctx, models.KindPartner, PlaceDraft{
		Name: "Base Camp Coffee", Latitude: 43.65, Longitude: -71.5, RadiusMeters: 30, PointsReward: 20,
	})
	require.NoError(t, err)

	got, err := store.GetPlace(ctx, models.KindPartner, place.ID)
	require.NoError(t, err)
	require.Equal(t, "Base Camp Coffee", got.Name)

	_, err = svc.Create(ctx, models.KindLocation, PlaceDraft{Name: "x", Latitude: 43, Longitude: -71, RadiusMeters: 0})
	requireKind(t, err, errorx.Validation)

	_, err = svc.Create(ctx, models.KindLocation, PlaceDraft{Latitude: 43, Longitude: -71, RadiusMeters: 10})
	requireKind(t, err, errorx.Validation)
}
