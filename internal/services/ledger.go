package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"geoquest-backend/internal/errorx"
	"geoquest-backend/internal/models"
	"geoquest-backend/internal/repository"

	"github.com/google/uuid"
)

const discountCodePrefix = "ADVENTURE"

// Ledger reasons stored on point transactions
const (
	ReasonCheckIn        = "checkin"
	ReasonQuestStep      = "quest_step"
	ReasonQuestCompleted = "quest_completed"
	ReasonPhoto          = "photo"
	ReasonRedemption     = "redemption"
)

// LedgerService owns every change to a user's points balance
type LedgerService struct {
	store     repository.Store
	publisher EventPublisher
}

// NewLedgerService creates a new ledger service
func NewLedgerService(store repository.Store, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisherOrNop(publisher),
	}
}

// Credit adds amount to the balance inside the caller's transaction and
// returns the new balance.
func (s *LedgerService) Credit(ctx context.Context, q repository.Querier, userID string, amount int, reason string, ref *string) (int, error) {
	if amount <= 0 {
		return 0, errorx.New(errorx.Validation, "credit amount must be positive")
	}
	return s.apply(ctx, q, userID, amount, reason, ref)
}

// Debit subtracts amount from the balance inside the caller's transaction.
// The balance never goes below zero.
func (s *LedgerService) Debit(ctx context.Context, q repository.Querier, userID string, amount int, reason string, ref *string) (int, error) {
	if amount <= 0 {
		return 0, errorx.New(errorx.Validation, "debit amount must be positive")
	}
	user, err := q.LockUser(ctx, userID)
	if err != nil {
		return 0, storeErr(err, "user")
	}
	if user.Points < amount {
		return 0, errorx.New(errorx.InsufficientBalance, "insufficient points")
	}
	return s.apply(ctx, q, userID, -amount, reason, ref)
}

func (s *LedgerService) apply(ctx context.Context, q repository.Querier, userID string, delta int, reason string, ref *string) (int, error) {
	balance, err := q.AddPoints(ctx, userID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) && delta < 0 {
			return 0, errorx.New(errorx.InsufficientBalance, "insufficient points")
		}
		return 0, storeErr(err, "user")
	}

	txn := &models.PointTransaction{
		ID:           uuid.New().String(),
		UserID:       userID,
		Amount:       delta,
		Reason:       reason,
		ReferenceID:  ref,
		BalanceAfter: balance,
		CreatedAt:    time.Now().UTC(),
	}
	if err := q.CreatePointTransaction(ctx, txn); err != nil {
		return 0, fmt.Errorf("failed to record point transaction: %w", err)
	}
	return balance, nil
}

// Balance returns the user's current points
func (s *LedgerService) Balance(ctx context.Context, userID string) (int, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return 0, storeErr(err, "user")
	}
	return user.Points, nil
}

// RedeemResult is returned by Redeem
type RedeemResult struct {
	PointsRedeemed  int    `json:"points_redeemed"`
	RemainingPoints int    `json:"remaining_points"`
	DiscountCode    string `json:"discount_code"`
}

// Redeem exchanges points for a discount code. An empty code generates one.
func (s *LedgerService) Redeem(ctx context.Context, userID string, points int, code string) (*RedeemResult, error) {
	if points <= 0 {
		return nil, errorx.New(errorx.Validation, "points must be positive")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		code = generateDiscountCode()
	}

	redemption := &models.Redemption{
		ID:           uuid.New().String(),
		UserID:       userID,
		Points:       points,
		DiscountCode: code,
		CreatedAt:    time.Now().UTC(),
	}

	var balance int
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		var err error
		balance, err = s.Debit(ctx, q, userID, points, ReasonRedemption, &redemption.ID)
		if err != nil {
			return err
		}
		return q.CreateRedemption(ctx, redemption)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, newEvent(EventPointsUpdated, userID, PointsUpdate{
		Delta:   -points,
		Balance: balance,
		Reason:  ReasonRedemption,
	}))

	return &RedeemResult{
		PointsRedeemed:  points,
		RemainingPoints: balance,
		DiscountCode:    code,
	}, nil
}

func generateDiscountCode() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return discountCodePrefix + strings.ToUpper(id[:10])
}
