package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"geoquest-backend/internal/errorx"
	"geoquest-backend/internal/geo"
	"geoquest-backend/internal/models"
	"geoquest-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// QuestOptions tunes quest progression rules
type QuestOptions struct {
	// SequentialSteps rejects a step while a lower-numbered step is open.
	SequentialSteps bool
}

// QuestService drives users through multi-step quests
type QuestService struct {
	store     repository.Store
	ledger    *LedgerService
	publisher EventPublisher
	opts      QuestOptions
}

// NewQuestService creates a new quest service
func NewQuestService(store repository.Store, ledger *LedgerService, publisher EventPublisher, opts QuestOptions) *QuestService {
	return &QuestService{
		store:     store,
		ledger:    ledger,
		publisher: publisherOrNop(publisher),
		opts:      opts,
	}
}

// ListActive lists quests open for starting
func (s *QuestService) ListActive(ctx context.Context) ([]*models.Quest, error) {
	return s.store.ListActiveQuests(ctx)
}

// Get returns a quest with its ordered steps
func (s *QuestService) Get(ctx context.Context, questID string) (*models.Quest, error) {
	quest, err := s.store.GetQuest(ctx, questID)
	if err != nil {
		return nil, storeErr(err, "quest")
	}
	steps, err := s.store.ListQuestSteps(ctx, questID)
	if err != nil {
		return nil, err
	}
	quest.Steps = steps
	return quest, nil
}

// Start begins the user's run of a quest
func (s *QuestService) Start(ctx context.Context, userID, questID string) (*models.UserQuest, error) {
	var uq *models.UserQuest
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		if _, err := q.LockUser(ctx, userID); err != nil {
			return storeErr(err, "user")
		}

		quest, err := q.GetQuest(ctx, questID)
		if err != nil {
			return storeErr(err, "quest")
		}
		if !quest.IsActive {
			return errorx.New(errorx.Conflict, "quest is not active")
		}

		steps, err := q.ListQuestSteps(ctx, questID)
		if err != nil {
			return err
		}
		if len(steps) == 0 {
			return errorx.New(errorx.Conflict, "quest has no steps")
		}

		_, err = q.GetActiveUserQuest(ctx, userID, questID)
		switch {
		case err == nil:
			return errorx.New(errorx.Conflict, "quest already in progress")
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		done, err := q.HasCompletedUserQuest(ctx, userID, questID)
		if err != nil {
			return err
		}
		if done {
			return errorx.New(errorx.Conflict, "quest already completed")
		}

		uq = &models.UserQuest{
			ID:         uuid.New().String(),
			UserID:     userID,
			QuestID:    questID,
			Status:     models.UserQuestActive,
			TotalSteps: len(steps),
			StartedAt:  time.Now().UTC(),
		}
		if err := q.CreateUserQuest(ctx, uq); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return errorx.New(errorx.Conflict, "quest already in progress")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID).Str("quest_id", questID).Msg("Quest started")
	return uq, nil
}

// StepSubmission is a user's claim to have completed a quest step
type StepSubmission struct {
	StepNumber int
	Coordinate geo.Coordinate
	PhotoURL   *string
	Answer     *string
}

// StepResult is the outcome of an accepted step
type StepResult struct {
	StepCompleted  bool   `json:"step_completed"`
	QuestCompleted bool   `json:"quest_completed"`
	PointsEarned   int    `json:"points_earned"`
	CompletedSteps int    `json:"completed_steps"`
	TotalSteps     int    `json:"total_steps"`
	Progress       string `json:"progress"`
	Message        string `json:"message,omitempty"`
}

// CompleteStep verifies a step submission and advances the user's active run.
// A rejected submission changes nothing.
func (s *QuestService) CompleteStep(ctx context.Context, userID, questID string, sub StepSubmission) (*StepResult, error) {
	if !sub.Coordinate.Valid() {
		return nil, errorx.New(errorx.Validation, "invalid coordinates")
	}
	if sub.StepNumber <= 0 {
		return nil, errorx.New(errorx.Validation, "step_number must be positive")
	}

	var (
		result       *StepResult
		stepBalance  int
		bonusBalance int
		stepPoints   int
		bonusPoints  int
	)
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		user, err := q.LockUser(ctx, userID)
		if err != nil {
			return storeErr(err, "user")
		}
		stepBalance = user.Points

		uq, err := s.activeRun(ctx, q, userID, questID)
		if err != nil {
			return err
		}

		quest, err := q.GetQuest(ctx, questID)
		if err != nil {
			return storeErr(err, "quest")
		}

		step, err := q.GetQuestStep(ctx, questID, sub.StepNumber)
		if err != nil {
			return storeErr(err, "quest step")
		}

		completed, err := q.ListCompletedStepIDs(ctx, uq.ID)
		if err != nil {
			return err
		}
		if slices.Contains(completed, step.ID) {
			return errorx.New(errorx.Conflict, "step already completed")
		}

		if s.opts.SequentialSteps {
			if err := s.checkOrder(ctx, q, questID, completed, step); err != nil {
				return err
			}
		}

		if err := checkStepContent(step, sub); err != nil {
			return err
		}

		verification := geo.Verify(sub.Coordinate, step.Target)
		if !verification.Verified {
			return errorx.OutsideGeofence(*verification.DistanceMeters, step.Target.RadiusMeters)
		}

		now := time.Now().UTC()
		var checkInID *string
		if step.TargetLocationID != nil {
			checkIn := &models.CheckIn{
				ID:             uuid.New().String(),
				UserID:         userID,
				LocationID:     step.TargetLocationID,
				Latitude:       sub.Coordinate.Latitude,
				Longitude:      sub.Coordinate.Longitude,
				DistanceMeters: verification.DistanceMeters,
				PointsEarned:   step.PointsReward,
				Verified:       true,
				CreatedAt:      now,
			}
			if err := q.CreateCheckIn(ctx, checkIn); err != nil {
				return fmt.Errorf("failed to create checkin: %w", err)
			}
			checkInID = &checkIn.ID
		}

		err = q.CreateUserQuestStep(ctx, &models.UserQuestStep{
			ID:          uuid.New().String(),
			UserQuestID: uq.ID,
			QuestStepID: step.ID,
			CheckInID:   checkInID,
			PhotoURL:    sub.PhotoURL,
			CompletedAt: now,
		})
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return errorx.New(errorx.Conflict, "step already completed")
			}
			return err
		}

		if step.PointsReward > 0 {
			stepPoints = step.PointsReward
			stepBalance, err = s.ledger.Credit(ctx, q, userID, stepPoints, ReasonQuestStep, &uq.ID)
			if err != nil {
				return err
			}
		}

		uq.CompletedSteps = len(completed) + 1
		if uq.CompletedSteps >= uq.TotalSteps {
			uq.Status = models.UserQuestCompleted
			uq.CompletedAt = &now
			uq.PointsEarned = quest.PointsReward
			if quest.PointsReward > 0 {
				bonusPoints = quest.PointsReward
				bonusBalance, err = s.ledger.Credit(ctx, q, userID, bonusPoints, ReasonQuestCompleted, &uq.ID)
				if err != nil {
					return err
				}
			}
		}
		if err := q.UpdateUserQuest(ctx, uq); err != nil {
			return err
		}

		result = &StepResult{
			StepCompleted:  true,
			QuestCompleted: uq.Status == models.UserQuestCompleted,
			PointsEarned:   stepPoints + bonusPoints,
			CompletedSteps: uq.CompletedSteps,
			TotalSteps:     uq.TotalSteps,
			Progress:       fmt.Sprintf("%d/%d", uq.CompletedSteps, uq.TotalSteps),
		}
		if result.QuestCompleted {
			result.Message = fmt.Sprintf("Quest completed! You earned %d bonus points.", bonusPoints)
		} else {
			result.Message = fmt.Sprintf("Step %d completed", step.StepNumber)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("quest_id", questID).
		Int("step_number", sub.StepNumber).
		Bool("quest_completed", result.QuestCompleted).
		Msg("Quest step completed")

	s.publisher.Publish(ctx, newEvent(EventQuestStepCompleted, userID, result))
	if stepPoints > 0 {
		s.publisher.Publish(ctx, newEvent(EventPointsUpdated, userID, PointsUpdate{
			Delta:   stepPoints,
			Balance: stepBalance,
			Reason:  ReasonQuestStep,
		}))
	}
	if bonusPoints > 0 {
		s.publisher.Publish(ctx, newEvent(EventPointsUpdated, userID, PointsUpdate{
			Delta:   bonusPoints,
			Balance: bonusBalance,
			Reason:  ReasonQuestCompleted,
		}))
	}
	if result.QuestCompleted {
		s.publisher.Publish(ctx, newEvent(EventQuestCompleted, userID, QuestCompletion{
			QuestID:     questID,
			BonusPoints: bonusPoints,
		}))
	}

	return result, nil
}

// QuestCompletion is the payload of EventQuestCompleted
type QuestCompletion struct {
	QuestID     string `json:"quest_id"`
	BonusPoints int    `json:"bonus_points"`
}

func (s *QuestService) activeRun(ctx context.Context, q repository.Querier, userID, questID string) (*models.UserQuest, error) {
	uq, err := q.GetActiveUserQuest(ctx, userID, questID)
	if err == nil {
		return uq, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	done, err := q.HasCompletedUserQuest(ctx, userID, questID)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, errorx.New(errorx.Conflict, "quest already completed")
	}
	return nil, errorx.New(errorx.NotFound, "quest not started")
}

func (s *QuestService) checkOrder(ctx context.Context, q repository.Querier, questID string, completed []string, step *models.QuestStep) error {
	steps, err := q.ListQuestSteps(ctx, questID)
	if err != nil {
		return err
	}
	for _, st := range steps {
		if slices.Contains(completed, st.ID) {
			continue
		}
		if st.StepNumber != step.StepNumber {
			return errorx.Newf(errorx.Conflict, "step %d must be completed first", st.StepNumber)
		}
		return nil
	}
	return nil
}

func checkStepContent(step *models.QuestStep, sub StepSubmission) error {
	switch step.StepType {
	case models.StepPhoto:
		if sub.PhotoURL == nil || strings.TrimSpace(*sub.PhotoURL) == "" {
			return errorx.New(errorx.Validation, "photo_url is required for photo steps")
		}
	case models.StepQuestion:
		if step.Answer == nil {
			return nil
		}
		if sub.Answer == nil || !strings.EqualFold(strings.TrimSpace(*sub.Answer), strings.TrimSpace(*step.Answer)) {
			return errorx.New(errorx.Verification, "incorrect answer")
		}
	}
	return nil
}

// ListUserQuests lists the user's quest runs with progress
func (s *QuestService) ListUserQuests(ctx context.Context, userID string) ([]*models.UserQuestProgress, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, storeErr(err, "user")
	}
	runs, err := s.store.ListUserQuests(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		if run.TotalSteps > 0 {
			run.ProgressPercentage = float64(run.CompletedSteps) / float64(run.TotalSteps) * 100
		}
	}
	return runs, nil
}

// StepDraft describes a step of a quest being created
type StepDraft struct {
	StepNumber       int             `json:"step_number"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	StepType         models.StepType `json:"step_type"`
	TargetLocationID *string         `json:"target_location_id,omitempty"`
	PointsReward     int             `json:"points_reward"`
	Answer           *string         `json:"answer,omitempty"`
}

// QuestDraft describes a quest being created
type QuestDraft struct {
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	PointsReward int         `json:"points_reward"`
	IsActive     bool        `json:"is_active"`
	Steps        []StepDraft `json:"steps"`
}

func (d QuestDraft) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errorx.New(errorx.Validation, "name is required")
	}
	if d.PointsReward < 0 {
		return errorx.New(errorx.Validation, "points_reward must not be negative")
	}
	if len(d.Steps) == 0 {
		return errorx.New(errorx.Validation, "at least one step is required")
	}
	seen := make(map[int]bool, len(d.Steps))
	for _, st := range d.Steps {
		if st.StepNumber <= 0 {
			return errorx.New(errorx.Validation, "step_number must be positive")
		}
		if seen[st.StepNumber] {
			return errorx.Newf(errorx.Validation, "duplicate step_number %d", st.StepNumber)
		}
		seen[st.StepNumber] = true
		if !st.StepType.Valid() {
			return errorx.Newf(errorx.Validation, "unknown step_type %q", st.StepType)
		}
		if st.PointsReward < 0 {
			return errorx.New(errorx.Validation, "step points_reward must not be negative")
		}
		if strings.TrimSpace(st.Title) == "" {
			return errorx.New(errorx.Validation, "step title is required")
		}
	}
	return nil
}

// Create stores a quest and all its steps together
func (s *QuestService) Create(ctx context.Context, draft QuestDraft) (*models.Quest, error) {
	if err := draft.validate(); err != nil {
		return nil, err
	}

	quest := &models.Quest{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(draft.Name),
		Description:  draft.Description,
		PointsReward: draft.PointsReward,
		IsActive:     draft.IsActive,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		if err := q.CreateQuest(ctx, quest); err != nil {
			return storeErr(err, "quest")
		}
		for _, d := range draft.Steps {
			if d.TargetLocationID != nil {
				if _, err := q.GetPlace(ctx, models.KindLocation, *d.TargetLocationID); err != nil {
					return storeErr(err, "target location")
				}
			}
			step := &models.QuestStep{
				ID:               uuid.New().String(),
				QuestID:          quest.ID,
				StepNumber:       d.StepNumber,
				Title:            d.Title,
				Description:      d.Description,
				StepType:         d.StepType,
				TargetLocationID: d.TargetLocationID,
				PointsReward:     d.PointsReward,
				Answer:           d.Answer,
			}
			if err := q.CreateQuestStep(ctx, step); err != nil {
				return storeErr(err, "quest step")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, quest.ID)
}
