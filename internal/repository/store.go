package repository

import (
	"context"
	"errors"
	"fmt"

	"geoquest-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is wrapped by every lookup that matched no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is wrapped when a write hits a unique constraint.
	ErrConflict = errors.New("conflict")
)

// Querier is the set of statements the services run, either directly against
// the pool or inside a transaction.
type Querier interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByExternalID(ctx context.Context, customerID string) (*models.User, error)
	LockUser(ctx context.Context, id string) (*models.User, error)
	AddPoints(ctx context.Context, userID string, delta int) (int, error)
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error

	CreatePlace(ctx context.Context, kind models.PlaceKind, place *models.Place) error
	GetPlace(ctx context.Context, kind models.PlaceKind, id string) (*models.Place, error)
	ListPlaces(ctx context.Context, kind models.PlaceKind) ([]*models.Place, error)

	CreateCheckIn(ctx context.Context, checkIn *models.CheckIn) error
	GetCheckIn(ctx context.Context, id string) (*models.CheckIn, error)
	HasVerifiedCheckIn(ctx context.Context, userID string, kind models.PlaceKind, placeID string) (bool, error)
	ListCheckInsByUser(ctx context.Context, userID string) ([]*models.CheckIn, error)

	CreateQuest(ctx context.Context, quest *models.Quest) error
	CreateQuestStep(ctx context.Context, step *models.QuestStep) error
	GetQuest(ctx context.Context, id string) (*models.Quest, error)
	ListActiveQuests(ctx context.Context) ([]*models.Quest, error)
	ListQuestSteps(ctx context.Context, questID string) ([]*models.QuestStep, error)
	GetQuestStep(ctx context.Context, questID string, stepNumber int) (*models.QuestStep, error)

	CreateUserQuest(ctx context.Context, userQuest *models.UserQuest) error
	GetActiveUserQuest(ctx context.Context, userID, questID string) (*models.UserQuest, error)
	HasCompletedUserQuest(ctx context.Context, userID, questID string) (bool, error)
	ListUserQuests(ctx context.Context, userID string) ([]*models.UserQuestProgress, error)
	UpdateUserQuest(ctx context.Context, userQuest *models.UserQuest) error
	CreateUserQuestStep(ctx context.Context, step *models.UserQuestStep) error
	ListCompletedStepIDs(ctx context.Context, userQuestID string) ([]string, error)

	CreatePointTransaction(ctx context.Context, txn *models.PointTransaction) error
	CreateRedemption(ctx context.Context, redemption *models.Redemption) error
	CreatePhoto(ctx context.Context, photo *models.Photo) error
}

// Store is a Querier that can also open a transaction. fn's writes commit
// together when it returns nil and roll back otherwise.
type Store interface {
	Querier
	WithTx(ctx context.Context, fn func(q Querier) error) error
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs statements against a DBTX
type Queries struct {
	db DBTX
}

// NewQueries creates queries bound to db
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// PgStore is the PostgreSQL-backed Store
type PgStore struct {
	*Queries
	pool *pgxpool.Pool
}

// NewStore creates a store on top of the connection pool
func NewStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{
		Queries: NewQueries(pool),
		pool:    pool,
	}
}

var _ Store = (*PgStore)(nil)

// WithTx runs fn inside a single database transaction
func (s *PgStore) WithTx(ctx context.Context, fn func(q Querier) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(NewQueries(tx))
	})
}

// Check pings the database
func (s *PgStore) Check(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func notFound(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s not found: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func writeErr(what string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s already exists: %w", what, ErrConflict)
	}
	return fmt.Errorf("failed to create %s: %w", what, err)
}
