package repository

import (
	"context"
	"fmt"

	"geoquest-backend/internal/models"
)

// Locations and business partners share one shape and differ only by table.
var placeTables = map[models.PlaceKind]string{
	models.KindLocation: "locations",
	models.KindPartner:  "business_partners",
}

func placeTable(kind models.PlaceKind) (string, error) {
	table, ok := placeTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown place kind %q", kind)
	}
	return table, nil
}

// CreatePlace creates a location or business partner
func (q *Queries) CreatePlace(ctx context.Context, kind models.PlaceKind, place *models.Place) error {
	table, err := placeTable(kind)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO ` + table + ` (id, name, description, category, latitude, longitude,
			radius_meters, points_reward, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = q.db.Exec(ctx, query,
		place.ID, place.Name, place.Description, place.Category, place.Latitude, place.Longitude,
		place.RadiusMeters, place.PointsReward, place.CreatedAt,
	)
	if err != nil {
		return writeErr(string(kind), err)
	}
	return nil
}

// GetPlace retrieves a location or business partner by ID
func (q *Queries) GetPlace(ctx context.Context, kind models.PlaceKind, id string) (*models.Place, error) {
	table, err := placeTable(kind)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT id, name, description, category, latitude, longitude, radius_meters,
			points_reward, created_at
		FROM ` + table + `
		WHERE id = $1
	`
	var p models.Place
	err = q.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.Latitude, &p.Longitude,
		&p.RadiusMeters, &p.PointsReward, &p.CreatedAt,
	)
	if err != nil {
		return nil, notFound(string(kind), err)
	}
	return &p, nil
}

// ListPlaces lists all locations or business partners ordered by name
func (q *Queries) ListPlaces(ctx context.Context, kind models.PlaceKind) ([]*models.Place, error) {
	table, err := placeTable(kind)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT id, name, description, category, latitude, longitude, radius_meters,
			points_reward, created_at
		FROM ` + table + `
		ORDER BY name
	`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	places := make([]*models.Place, 0)
	for rows.Next() {
		var p models.Place
		err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Category, &p.Latitude, &p.Longitude,
			&p.RadiusMeters, &p.PointsReward, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", kind, err)
		}
		places = append(places, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}

	return places, nil
}
