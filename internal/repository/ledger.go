package repository

import (
	"context"

	"geoquest-backend/internal/models"
)

// CreatePointTransaction appends an entry to the points history
func (q *Queries) CreatePointTransaction(ctx context.Context, txn *models.PointTransaction) error {
	query := `
		INSERT INTO point_transactions (id, user_id, amount, reason, reference_id, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.db.Exec(ctx, query,
		txn.ID, txn.UserID, txn.Amount, txn.Reason, txn.ReferenceID, txn.BalanceAfter, txn.CreatedAt,
	)
	if err != nil {
		return writeErr("point transaction", err)
	}
	return nil
}

// CreateRedemption records a points redemption
func (q *Queries) CreateRedemption(ctx context.Context, r *models.Redemption) error {
	query := `
		INSERT INTO redemptions (id, user_id, points, discount_code, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := q.db.Exec(ctx, query, r.ID, r.UserID, r.Points, r.DiscountCode, r.CreatedAt)
	if err != nil {
		return writeErr("redemption", err)
	}
	return nil
}
