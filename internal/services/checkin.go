package services

import (
	"context"
	"fmt"
	"time"

	"geoquest-backend/internal/errorx"
	"geoquest-backend/internal/geo"
	"geoquest-backend/internal/models"
	"geoquest-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CheckInTarget names exactly one place a check-in is claimed against
type CheckInTarget struct {
	LocationID        string
	BusinessPartnerID string
}

func (t CheckInTarget) resolve() (models.PlaceKind, string, error) {
	switch {
	case t.LocationID != "" && t.BusinessPartnerID != "":
		return "", "", errorx.New(errorx.Validation, "only one of location_id or business_partner_id may be set")
	case t.LocationID != "":
		return models.KindLocation, t.LocationID, nil
	case t.BusinessPartnerID != "":
		return models.KindPartner, t.BusinessPartnerID, nil
	}
	return "", "", errorx.New(errorx.Validation, "location_id or business_partner_id is required")
}

// CheckInResult is the outcome of a recorded check-in
type CheckInResult struct {
	CheckIn        *models.CheckIn
	Verified       bool
	PointsEarned   int
	DistanceMeters *float64
	Balance        int
}

// CheckInService records presence claims against locations and partners
type CheckInService struct {
	store     repository.Store
	ledger    *LedgerService
	publisher EventPublisher
}

// NewCheckInService creates a new check-in service
func NewCheckInService(store repository.Store, ledger *LedgerService, publisher EventPublisher) *CheckInService {
	return &CheckInService{
		store:     store,
		ledger:    ledger,
		publisher: publisherOrNop(publisher),
	}
}

// RecordCheckIn verifies the claim against the target's geofence and stores
// the outcome. Rejected claims are stored too. The place reward is granted
// only on the user's first verified check-in at that place.
func (s *CheckInService) RecordCheckIn(ctx context.Context, userID string, target CheckInTarget, claimed geo.Coordinate) (*CheckInResult, error) {
	kind, placeID, err := target.resolve()
	if err != nil {
		return nil, err
	}
	if !claimed.Valid() {
		return nil, errorx.New(errorx.Validation, "invalid coordinates")
	}

	var result *CheckInResult
	err = s.store.WithTx(ctx, func(q repository.Querier) error {
		user, err := q.LockUser(ctx, userID)
		if err != nil {
			return storeErr(err, "user")
		}

		place, err := q.GetPlace(ctx, kind, placeID)
		if err != nil {
			return storeErr(err, string(kind))
		}

		fence := place.Geofence()
		verification := geo.Verify(claimed, &fence)

		reward := 0
		if verification.Verified && place.PointsReward > 0 {
			seen, err := q.HasVerifiedCheckIn(ctx, userID, kind, placeID)
			if err != nil {
				return err
			}
			if !seen {
				reward = place.PointsReward
			}
		}

		checkIn := &models.CheckIn{
			ID:             uuid.New().String(),
			UserID:         userID,
			Latitude:       claimed.Latitude,
			Longitude:      claimed.Longitude,
			DistanceMeters: verification.DistanceMeters,
			PointsEarned:   reward,
			Verified:       verification.Verified,
			CreatedAt:      time.Now().UTC(),
		}
		if kind == models.KindPartner {
			checkIn.BusinessPartnerID = &placeID
		} else {
			checkIn.LocationID = &placeID
		}
		if err := q.CreateCheckIn(ctx, checkIn); err != nil {
			return fmt.Errorf("failed to create checkin: %w", err)
		}

		balance := user.Points
		if reward > 0 {
			balance, err = s.ledger.Credit(ctx, q, userID, reward, ReasonCheckIn, &checkIn.ID)
			if err != nil {
				return err
			}
		}

		result = &CheckInResult{
			CheckIn:        checkIn,
			Verified:       verification.Verified,
			PointsEarned:   reward,
			DistanceMeters: verification.DistanceMeters,
			Balance:        balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("target_id", placeID).
		Bool("verified", result.Verified).
		Int("points_earned", result.PointsEarned).
		Msg("Check-in recorded")

	s.publisher.Publish(ctx, newEvent(EventCheckInRecorded, userID, result.CheckIn))
	if result.PointsEarned > 0 {
		s.publisher.Publish(ctx, newEvent(EventPointsUpdated, userID, PointsUpdate{
			Delta:   result.PointsEarned,
			Balance: result.Balance,
			Reason:  ReasonCheckIn,
		}))
	}

	return result, nil
}

// ListCheckIns lists a user's check-ins, newest first
func (s *CheckInService) ListCheckIns(ctx context.Context, userID string) ([]*models.CheckIn, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, storeErr(err, "user")
	}
	return s.store.ListCheckInsByUser(ctx, userID)
}
