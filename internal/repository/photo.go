package repository

import (
	"context"

	"geoquest-backend/internal/models"
)

// CreatePhoto registers uploaded photo metadata
func (q *Queries) CreatePhoto(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO photos (id, user_id, checkin_id, filename, url, points_earned, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.db.Exec(ctx, query,
		photo.ID, photo.UserID, photo.CheckInID, photo.Filename, photo.URL,
		photo.PointsEarned, photo.CreatedAt,
	)
	if err != nil {
		return writeErr("photo", err)
	}
	return nil
}
