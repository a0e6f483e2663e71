package repository

import (
	"context"
	"fmt"

	"geoquest-backend/internal/models"
)

// CreateCheckIn appends a check-in to the ledger
func (q *Queries) CreateCheckIn(ctx context.Context, c *models.CheckIn) error {
	query := `
		INSERT INTO checkins (id, user_id, location_id, business_partner_id, latitude, longitude,
			distance_meters, points_earned, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.db.Exec(ctx, query,
		c.ID, c.UserID, c.LocationID, c.BusinessPartnerID, c.Latitude, c.Longitude,
		c.DistanceMeters, c.PointsEarned, c.Verified, c.CreatedAt,
	)
	if err != nil {
		return writeErr("checkin", err)
	}
	return nil
}

// GetCheckIn gets a check-in by ID
func (q *Queries) GetCheckIn(ctx context.Context, id string) (*models.CheckIn, error) {
	query := `
		SELECT id, user_id, location_id, business_partner_id, latitude, longitude,
			distance_meters, points_earned, verified, created_at
		FROM checkins WHERE id = $1
	`
	var c models.CheckIn
	err := q.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.LocationID, &c.BusinessPartnerID, &c.Latitude, &c.Longitude,
		&c.DistanceMeters, &c.PointsEarned, &c.Verified, &c.CreatedAt,
	)
	if err != nil {
		return nil, notFound("checkin", err)
	}
	return &c, nil
}

// HasVerifiedCheckIn reports whether the user already has a verified direct
// check-in at the given place. Check-ins written by quest steps do not count.
func (q *Queries) HasVerifiedCheckIn(ctx context.Context, userID string, kind models.PlaceKind, placeID string) (bool, error) {
	column := "location_id"
	if kind == models.KindPartner {
		column = "business_partner_id"
	}
	query := `
		SELECT EXISTS(
			SELECT 1 FROM checkins c
			WHERE c.user_id = $1 AND c.` + column + ` = $2 AND c.verified
				AND NOT EXISTS (SELECT 1 FROM user_quest_steps s WHERE s.checkin_id = c.id)
		)
	`
	var exists bool
	err := q.db.QueryRow(ctx, query, userID, placeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check previous checkins: %w", err)
	}
	return exists, nil
}

// ListCheckInsByUser lists a user's check-ins, newest first
func (q *Queries) ListCheckInsByUser(ctx context.Context, userID string) ([]*models.CheckIn, error) {
	query := `
		SELECT c.id, c.user_id, c.location_id, c.business_partner_id, c.latitude, c.longitude,
			c.distance_meters, c.points_earned, c.verified, c.created_at,
			l.name, bp.name
		FROM checkins c
		LEFT JOIN locations l ON c.location_id = l.id
		LEFT JOIN business_partners bp ON c.business_partner_id = bp.id
		WHERE c.user_id = $1
		ORDER BY c.created_at DESC
	`
	rows, err := q.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkins: %w", err)
	}
	defer rows.Close()

	checkIns := make([]*models.CheckIn, 0)
	for rows.Next() {
		var c models.CheckIn
		err := rows.Scan(
			&c.ID, &c.UserID, &c.LocationID, &c.BusinessPartnerID, &c.Latitude, &c.Longitude,
			&c.DistanceMeters, &c.PointsEarned, &c.Verified, &c.CreatedAt,
			&c.LocationName, &c.BusinessName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkin: %w", err)
		}
		checkIns = append(checkIns, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkins: %w", err)
	}

	return checkIns, nil
}
