package repository

import (
	"context"
	"errors"
	"fmt"

	"geoquest-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, name, points, shopify_customer_id, shopify_shop_domain,
	avatar_url, push_token, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.Points, &user.ExternalCustomerID,
		&user.ShopDomain, &user.AvatarURL, &user.PushToken, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new user
func (q *Queries) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, points, shopify_customer_id, shopify_shop_domain,
			avatar_url, push_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.db.Exec(ctx, query,
		user.ID, user.Email, user.Name, user.Points, user.ExternalCustomerID, user.ShopDomain,
		user.AvatarURL, user.PushToken, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return writeErr("user", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (q *Queries) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound("user", err)
	}
	return user, nil
}

// GetUserByExternalID retrieves a user by commerce customer ID
func (q *Queries) GetUserByExternalID(ctx context.Context, customerID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE shopify_customer_id = $1`
	user, err := scanUser(q.db.QueryRow(ctx, query, customerID))
	if err != nil {
		return nil, notFound("user", err)
	}
	return user, nil
}

// LockUser reads a user and holds a row lock until the transaction ends.
// Every points mutation takes this lock first so that concurrent requests for
// one user serialize.
func (q *Queries) LockUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	user, err := scanUser(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound("user", err)
	}
	return user, nil
}

// AddPoints applies delta to the balance and returns the new balance. The
// update matches nothing if it would leave the balance negative.
func (q *Queries) AddPoints(ctx context.Context, userID string, delta int) (int, error) {
	query := `
		UPDATE users
		SET points = points + $1, updated_at = now()
		WHERE id = $2 AND points + $1 >= 0
		RETURNING points
	`
	var balance int
	err := q.db.QueryRow(ctx, query, delta, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("user not found or balance too low: %w", ErrNotFound)
		}
		return 0, fmt.Errorf("failed to update points: %w", err)
	}
	return balance, nil
}

// UpdatePushToken updates the push token for a user
func (q *Queries) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	query := `UPDATE users SET push_token = $1, updated_at = now() WHERE id = $2`
	result, err := q.db.Exec(ctx, query, pushToken, userID)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return nil
}
