package repository

import (
	"context"
	"fmt"

	"geoquest-backend/internal/geo"
	"geoquest-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

// CreateQuest creates a quest without its steps
func (q *Queries) CreateQuest(ctx context.Context, quest *models.Quest) error {
	query := `
		INSERT INTO quests (id, name, description, points_reward, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.db.Exec(ctx, query,
		quest.ID, quest.Name, quest.Description, quest.PointsReward, quest.IsActive, quest.CreatedAt,
	)
	if err != nil {
		return writeErr("quest", err)
	}
	return nil
}

// CreateQuestStep creates one step of a quest
func (q *Queries) CreateQuestStep(ctx context.Context, step *models.QuestStep) error {
	query := `
		INSERT INTO quest_steps (id, quest_id, step_number, title, description, step_type,
			target_location_id, points_reward, answer)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := q.db.Exec(ctx, query,
		step.ID, step.QuestID, step.StepNumber, step.Title, step.Description, string(step.StepType),
		step.TargetLocationID, step.PointsReward, step.Answer,
	)
	if err != nil {
		return writeErr("quest step", err)
	}
	return nil
}

// GetQuest retrieves a quest by ID without its steps
func (q *Queries) GetQuest(ctx context.Context, id string) (*models.Quest, error) {
	query := `
		SELECT id, name, description, points_reward, is_active, created_at
		FROM quests
		WHERE id = $1
	`
	var quest models.Quest
	err := q.db.QueryRow(ctx, query, id).Scan(
		&quest.ID, &quest.Name, &quest.Description, &quest.PointsReward, &quest.IsActive, &quest.CreatedAt,
	)
	if err != nil {
		return nil, notFound("quest", err)
	}
	return &quest, nil
}

// ListActiveQuests lists active quests ordered by name
func (q *Queries) ListActiveQuests(ctx context.Context) ([]*models.Quest, error) {
	query := `
		SELECT id, name, description, points_reward, is_active, created_at
		FROM quests
		WHERE is_active
		ORDER BY name
	`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	defer rows.Close()

	quests := make([]*models.Quest, 0)
	for rows.Next() {
		var quest models.Quest
		err := rows.Scan(
			&quest.ID, &quest.Name, &quest.Description, &quest.PointsReward, &quest.IsActive, &quest.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		quests = append(quests, &quest)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quests: %w", err)
	}

	return quests, nil
}

const questStepSelect = `
	SELECT qs.id, qs.quest_id, qs.step_number, qs.title, qs.description, qs.step_type,
		qs.target_location_id, qs.points_reward, qs.answer,
		l.name, l.latitude, l.longitude, l.radius_meters
	FROM quest_steps qs
	LEFT JOIN locations l ON qs.target_location_id = l.id
`

func scanQuestStep(row pgx.Row) (*models.QuestStep, error) {
	var (
		step     models.QuestStep
		stepType string
		lat, lon *float64
		radius   *float64
	)
	err := row.Scan(
		&step.ID, &step.QuestID, &step.StepNumber, &step.Title, &step.Description, &stepType,
		&step.TargetLocationID, &step.PointsReward, &step.Answer,
		&step.LocationName, &lat, &lon, &radius,
	)
	if err != nil {
		return nil, err
	}
	step.StepType = models.StepType(stepType)
	if lat != nil && lon != nil && radius != nil {
		step.Target = &geo.Geofence{
			Center:       geo.Coordinate{Latitude: *lat, Longitude: *lon},
			RadiusMeters: *radius,
		}
	}
	return &step, nil
}

// ListQuestSteps lists a quest's steps in step order with their target fences
func (q *Queries) ListQuestSteps(ctx context.Context, questID string) ([]*models.QuestStep, error) {
	query := questStepSelect + `WHERE qs.quest_id = $1 ORDER BY qs.step_number`
	rows, err := q.db.Query(ctx, query, questID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quest steps: %w", err)
	}
	defer rows.Close()

	steps := make([]*models.QuestStep, 0)
	for rows.Next() {
		step, err := scanQuestStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest step: %w", err)
		}
		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quest steps: %w", err)
	}

	return steps, nil
}

// GetQuestStep retrieves a step by its number within a quest
func (q *Queries) GetQuestStep(ctx context.Context, questID string, stepNumber int) (*models.QuestStep, error) {
	query := questStepSelect + `WHERE qs.quest_id = $1 AND qs.step_number = $2`
	step, err := scanQuestStep(q.db.QueryRow(ctx, query, questID, stepNumber))
	if err != nil {
		return nil, notFound("quest step", err)
	}
	return step, nil
}

const userQuestColumns = `id, user_id, quest_id, status, completed_steps, total_steps,
	points_earned, started_at, completed_at`

func scanUserQuest(row pgx.Row, extra ...any) (*models.UserQuest, error) {
	var (
		uq     models.UserQuest
		status string
	)
	dest := []any{
		&uq.ID, &uq.UserID, &uq.QuestID, &status, &uq.CompletedSteps, &uq.TotalSteps,
		&uq.PointsEarned, &uq.StartedAt, &uq.CompletedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	uq.Status = models.UserQuestStatus(status)
	return &uq, nil
}

// CreateUserQuest starts a user's run of a quest
func (q *Queries) CreateUserQuest(ctx context.Context, uq *models.UserQuest) error {
	query := `
		INSERT INTO user_quests (` + userQuestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := q.db.Exec(ctx, query,
		uq.ID, uq.UserID, uq.QuestID, string(uq.Status), uq.CompletedSteps, uq.TotalSteps,
		uq.PointsEarned, uq.StartedAt, uq.CompletedAt,
	)
	if err != nil {
		return writeErr("user quest", err)
	}
	return nil
}

// GetActiveUserQuest retrieves the user's active run of a quest
func (q *Queries) GetActiveUserQuest(ctx context.Context, userID, questID string) (*models.UserQuest, error) {
	query := `
		SELECT ` + userQuestColumns + `
		FROM user_quests
		WHERE user_id = $1 AND quest_id = $2 AND status = 'active'
	`
	uq, err := scanUserQuest(q.db.QueryRow(ctx, query, userID, questID))
	if err != nil {
		return nil, notFound("active user quest", err)
	}
	return uq, nil
}

// HasCompletedUserQuest reports whether the user has finished the quest before
func (q *Queries) HasCompletedUserQuest(ctx context.Context, userID, questID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_quests WHERE user_id = $1 AND quest_id = $2 AND status = 'completed')`
	var exists bool
	if err := q.db.QueryRow(ctx, query, userID, questID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check completed quests: %w", err)
	}
	return exists, nil
}

// ListUserQuests lists a user's quests joined with their quest, newest first
func (q *Queries) ListUserQuests(ctx context.Context, userID string) ([]*models.UserQuestProgress, error) {
	query := `
		SELECT uq.id, uq.user_id, uq.quest_id, uq.status, uq.completed_steps, uq.total_steps,
			uq.points_earned, uq.started_at, uq.completed_at,
			q.name, q.description, q.points_reward
		FROM user_quests uq
		JOIN quests q ON uq.quest_id = q.id
		WHERE uq.user_id = $1
		ORDER BY uq.started_at DESC
	`
	rows, err := q.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user quests: %w", err)
	}
	defer rows.Close()

	result := make([]*models.UserQuestProgress, 0)
	for rows.Next() {
		var p models.UserQuestProgress
		uq, err := scanUserQuest(rows, &p.Name, &p.Description, &p.QuestPointsReward)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user quest: %w", err)
		}
		p.UserQuest = *uq
		result = append(result, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user quests: %w", err)
	}

	return result, nil
}

// UpdateUserQuest stores progress and completion of a user quest
func (q *Queries) UpdateUserQuest(ctx context.Context, uq *models.UserQuest) error {
	query := `
		UPDATE user_quests
		SET status = $1, completed_steps = $2, points_earned = $3, completed_at = $4
		WHERE id = $5
	`
	result, err := q.db.Exec(ctx, query,
		string(uq.Status), uq.CompletedSteps, uq.PointsEarned, uq.CompletedAt, uq.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user quest: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user quest not found: %w", ErrNotFound)
	}
	return nil
}

// CreateUserQuestStep records completion of a step
func (q *Queries) CreateUserQuestStep(ctx context.Context, s *models.UserQuestStep) error {
	query := `
		INSERT INTO user_quest_steps (id, user_quest_id, quest_step_id, checkin_id, photo_url, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.db.Exec(ctx, query,
		s.ID, s.UserQuestID, s.QuestStepID, s.CheckInID, s.PhotoURL, s.CompletedAt,
	)
	if err != nil {
		return writeErr("user quest step", err)
	}
	return nil
}

// ListCompletedStepIDs returns the quest step IDs completed in a user quest
func (q *Queries) ListCompletedStepIDs(ctx context.Context, userQuestID string) ([]string, error) {
	query := `SELECT quest_step_id FROM user_quest_steps WHERE user_quest_id = $1`
	rows, err := q.db.Query(ctx, query, userQuestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed steps: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan completed steps: %w", err)
	}
	return ids, nil
}
