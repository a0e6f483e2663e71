// Package testutil provides an in-memory repository.Store and fixtures used by
// service and handler tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"geoquest-backend/internal/geo"
	"geoquest-backend/internal/models"
	"geoquest-backend/internal/repository"
)

type state struct {
	users        map[string]models.User
	places       map[models.PlaceKind]map[string]models.Place
	checkIns     []models.CheckIn
	quests       map[string]models.Quest
	steps        map[string]models.QuestStep
	userQuests   map[string]models.UserQuest
	userSteps    []models.UserQuestStep
	transactions []models.PointTransaction
	redemptions  []models.Redemption
	photos       []models.Photo
}

func newState() *state {
	return &state{
		users: make(map[string]models.User),
		places: map[models.PlaceKind]map[string]models.Place{
			models.KindLocation: {},
			models.KindPartner:  {},
		},
		quests:     make(map[string]models.Quest),
		steps:      make(map[string]models.QuestStep),
		userQuests: make(map[string]models.UserQuest),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for kind, m := range s.places {
		for k, v := range m {
			c.places[kind][k] = v
		}
	}
	for k, v := range s.quests {
		c.quests[k] = v
	}
	for k, v := range s.steps {
		c.steps[k] = v
	}
	for k, v := range s.userQuests {
		c.userQuests[k] = v
	}
	c.checkIns = append(c.checkIns, s.checkIns...)
	c.userSteps = append(c.userSteps, s.userSteps...)
	c.transactions = append(c.transactions, s.transactions...)
	c.redemptions = append(c.redemptions, s.redemptions...)
	c.photos = append(c.photos, s.photos...)
	return c
}

// MemStore is a repository.Store kept in memory. Transactions are serialized
// and roll back to a snapshot when fn fails.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data *state
	fail map[string]error
}

var _ repository.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{data: newState(), fail: make(map[string]error)}
}

// FailOn makes the named method return err until cleared with a nil err.
func (m *MemStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, method)
		return
	}
	m.fail[method] = err
}

func (m *MemStore) injected(method string) error {
	if err, ok := m.fail[method]; ok {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (m *MemStore) WithTx(ctx context.Context, fn func(q repository.Querier) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.data.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.data = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemStore) Check(ctx context.Context) error { return nil }

func notFound(what string) error {
	return fmt.Errorf("%s not found: %w", what, repository.ErrNotFound)
}

func conflict(what string) error {
	return fmt.Errorf("%s already exists: %w", what, repository.ErrConflict)
}

func (m *MemStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("CreateUser"); err != nil {
		return err
	}
	for _, u := range m.data.users {
		if u.ExternalCustomerID == user.ExternalCustomerID {
			return conflict("user")
		}
	}
	m.data.users[user.ID] = *user
	return nil
}

func (m *MemStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.data.users[id]
	if !ok {
		return nil, notFound("user")
	}
	return &u, nil
}

func (m *MemStore) GetUserByExternalID(ctx context.Context, customerID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.data.users {
		if u.ExternalCustomerID == customerID {
			return &u, nil
		}
	}
	return nil, notFound("user")
}

func (m *MemStore) LockUser(ctx context.Context, id string) (*models.User, error) {
	return m.GetUserByID(ctx, id)
}

func (m *MemStore) AddPoints(ctx context.Context, userID string, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("AddPoints"); err != nil {
		return 0, err
	}
	u, ok := m.data.users[userID]
	if !ok || u.Points+delta < 0 {
		return 0, notFound("user")
	}
	u.Points += delta
	m.data.users[userID] = u
	return u.Points, nil
}

func (m *MemStore) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.data.users[userID]
	if !ok {
		return notFound("user")
	}
	u.PushToken = pushToken
	m.data.users[userID] = u
	return nil
}

func (m *MemStore) CreatePlace(ctx context.Context, kind models.PlaceKind, place *models.Place) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	places, ok := m.data.places[kind]
	if !ok {
		return fmt.Errorf("unknown place kind %q", kind)
	}
	if _, exists := places[place.ID]; exists {
		return conflict(string(kind))
	}
	places[place.ID] = *place
	return nil
}

func (m *MemStore) GetPlace(ctx context.Context, kind models.PlaceKind, id string) (*models.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data.places[kind][id]
	if !ok {
		return nil, notFound(string(kind))
	}
	return &p, nil
}

func (m *MemStore) ListPlaces(ctx context.Context, kind models.PlaceKind) ([]*models.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	places := make([]*models.Place, 0, len(m.data.places[kind]))
	for _, p := range m.data.places[kind] {
		places = append(places, &p)
	}
	sort.Slice(places, func(i, j int) bool { return places[i].Name < places[j].Name })
	return places, nil
}

func (m *MemStore) CreateCheckIn(ctx context.Context, c *models.CheckIn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("CreateCheckIn"); err != nil {
		return err
	}
	m.data.checkIns = append(m.data.checkIns, *c)
	return nil
}

func (m *MemStore) GetCheckIn(ctx context.Context, id string) (*models.CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.data.checkIns {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, notFound("checkin")
}

func (m *MemStore) HasVerifiedCheckIn(ctx context.Context, userID string, kind models.PlaceKind, placeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	questCheckIns := make(map[string]bool)
	for _, s := range m.data.userSteps {
		if s.CheckInID != nil {
			questCheckIns[*s.CheckInID] = true
		}
	}
	for _, c := range m.data.checkIns {
		if c.UserID != userID || !c.Verified || questCheckIns[c.ID] {
			continue
		}
		target := c.LocationID
		if kind == models.KindPartner {
			target = c.BusinessPartnerID
		}
		if target != nil && *target == placeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) ListCheckInsByUser(ctx context.Context, userID string) ([]*models.CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*models.CheckIn, 0)
	for i := len(m.data.checkIns) - 1; i >= 0; i-- {
		c := m.data.checkIns[i]
		if c.UserID != userID {
			continue
		}
		if c.LocationID != nil {
			if p, ok := m.data.places[models.KindLocation][*c.LocationID]; ok {
				c.LocationName = &p.Name
			}
		}
		if c.BusinessPartnerID != nil {
			if p, ok := m.data.places[models.KindPartner][*c.BusinessPartnerID]; ok {
				c.BusinessName = &p.Name
			}
		}
		result = append(result, &c)
	}
	return result, nil
}

func (m *MemStore) CreateQuest(ctx context.Context, quest *models.Quest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data.quests[quest.ID]; exists {
		return conflict("quest")
	}
	q := *quest
	q.Steps = nil
	m.data.quests[quest.ID] = q
	return nil
}

func (m *MemStore) CreateQuestStep(ctx context.Context, step *models.QuestStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("CreateQuestStep"); err != nil {
		return err
	}
	for _, s := range m.data.steps {
		if s.QuestID == step.QuestID && s.StepNumber == step.StepNumber {
			return conflict("quest step")
		}
	}
	m.data.steps[step.ID] = *step
	return nil
}

func (m *MemStore) GetQuest(ctx context.Context, id string) (*models.Quest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.data.quests[id]
	if !ok {
		return nil, notFound("quest")
	}
	return &q, nil
}

func (m *MemStore) ListActiveQuests(ctx context.Context) ([]*models.Quest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	quests := make([]*models.Quest, 0)
	for _, q := range m.data.quests {
		if q.IsActive {
			quests = append(quests, &q)
		}
	}
	sort.Slice(quests, func(i, j int) bool { return quests[i].Name < quests[j].Name })
	return quests, nil
}

// withTarget joins the step's target location like the SQL query does.
func (m *MemStore) withTarget(s models.QuestStep) *models.QuestStep {
	if s.TargetLocationID != nil {
		if p, ok := m.data.places[models.KindLocation][*s.TargetLocationID]; ok {
			name := p.Name
			fence := p.Geofence()
			s.LocationName = &name
			s.Target = &fence
		}
	}
	return &s
}

func (m *MemStore) ListQuestSteps(ctx context.Context, questID string) ([]*models.QuestStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	steps := make([]*models.QuestStep, 0)
	for _, s := range m.data.steps {
		if s.QuestID == questID {
			steps = append(steps, m.withTarget(s))
		}
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepNumber < steps[j].StepNumber })
	return steps, nil
}

func (m *MemStore) GetQuestStep(ctx context.Context, questID string, stepNumber int) (*models.QuestStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.data.steps {
		if s.QuestID == questID && s.StepNumber == stepNumber {
			return m.withTarget(s), nil
		}
	}
	return nil, notFound("quest step")
}

func (m *MemStore) CreateUserQuest(ctx context.Context, uq *models.UserQuest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if uq.Status == models.UserQuestActive {
		for _, existing := range m.data.userQuests {
			if existing.UserID == uq.UserID && existing.QuestID == uq.QuestID && existing.Status == models.UserQuestActive {
				return conflict("user quest")
			}
		}
	}
	m.data.userQuests[uq.ID] = *uq
	return nil
}

func (m *MemStore) GetActiveUserQuest(ctx context.Context, userID, questID string) (*models.UserQuest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, uq := range m.data.userQuests {
		if uq.UserID == userID && uq.QuestID == questID && uq.Status == models.UserQuestActive {
			return &uq, nil
		}
	}
	return nil, notFound("active user quest")
}

func (m *MemStore) HasCompletedUserQuest(ctx context.Context, userID, questID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, uq := range m.data.userQuests {
		if uq.UserID == userID && uq.QuestID == questID && uq.Status == models.UserQuestCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) ListUserQuests(ctx context.Context, userID string) ([]*models.UserQuestProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*models.UserQuestProgress, 0)
	for _, uq := range m.data.userQuests {
		if uq.UserID != userID {
			continue
		}
		q := m.data.quests[uq.QuestID]
		result = append(result, &models.UserQuestProgress{
			UserQuest:         uq,
			Name:              q.Name,
			Description:       q.Description,
			QuestPointsReward: q.PointsReward,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartedAt.After(result[j].StartedAt) })
	return result, nil
}

func (m *MemStore) UpdateUserQuest(ctx context.Context, uq *models.UserQuest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("UpdateUserQuest"); err != nil {
		return err
	}
	existing, ok := m.data.userQuests[uq.ID]
	if !ok {
		return notFound("user quest")
	}
	existing.Status = uq.Status
	existing.CompletedSteps = uq.CompletedSteps
	existing.PointsEarned = uq.PointsEarned
	existing.CompletedAt = uq.CompletedAt
	m.data.userQuests[uq.ID] = existing
	return nil
}

func (m *MemStore) CreateUserQuestStep(ctx context.Context, s *models.UserQuestStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.data.userSteps {
		if existing.UserQuestID == s.UserQuestID && existing.QuestStepID == s.QuestStepID {
			return conflict("user quest step")
		}
	}
	m.data.userSteps = append(m.data.userSteps, *s)
	return nil
}

func (m *MemStore) ListCompletedStepIDs(ctx context.Context, userQuestID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0)
	for _, s := range m.data.userSteps {
		if s.UserQuestID == userQuestID {
			ids = append(ids, s.QuestStepID)
		}
	}
	return ids, nil
}

func (m *MemStore) CreatePointTransaction(ctx context.Context, txn *models.PointTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("CreatePointTransaction"); err != nil {
		return err
	}
	m.data.transactions = append(m.data.transactions, *txn)
	return nil
}

func (m *MemStore) CreateRedemption(ctx context.Context, r *models.Redemption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.redemptions = append(m.data.redemptions, *r)
	return nil
}

func (m *MemStore) CreatePhoto(ctx context.Context, photo *models.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("CreatePhoto"); err != nil {
		return err
	}
	m.data.photos = append(m.data.photos, *photo)
	return nil
}

// CheckIns returns every stored check-in in insertion order.
func (m *MemStore) CheckIns() []models.CheckIn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CheckIn(nil), m.data.checkIns...)
}

// UserQuestSteps returns every stored step completion.
func (m *MemStore) UserQuestSteps() []models.UserQuestStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.UserQuestStep(nil), m.data.userSteps...)
}

// Transactions returns the points history of a user.
func (m *MemStore) Transactions(userID string) []models.PointTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.PointTransaction
	for _, t := range m.data.transactions {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result
}

// Photos returns every registered photo.
func (m *MemStore) Photos() []models.Photo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Photo(nil), m.data.photos...)
}

// Redemptions returns every recorded redemption.
func (m *MemStore) Redemptions() []models.Redemption {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Redemption(nil), m.data.redemptions...)
}

// Points returns a user's balance, or -1 when the user is unknown.
func (m *MemStore) Points(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.data.users[userID]
	if !ok {
		return -1
	}
	return u.Points
}

// SeedUser stores a user with the given balance.
func (m *MemStore) SeedUser(id string, points int) *models.User {
	u := &models.User{
		ID:                 id,
		Email:              id + "@example.com",
		Name:               strings.ToUpper(id[:1]) + id[1:],
		Points:             points,
		ExternalCustomerID: "cust-" + id,
	}
	m.mu.Lock()
	m.data.users[id] = *u
	m.mu.Unlock()
	return u
}

// SeedPlace stores a location or partner at c with the given fence and reward.
func (m *MemStore) SeedPlace(kind models.PlaceKind, id string, c geo.Coordinate, radius float64, reward int) *models.Place {
	p := &models.Place{
		ID:           id,
		Name:         id,
		Latitude:     c.Latitude,
		Longitude:    c.Longitude,
		RadiusMeters: radius,
		PointsReward: reward,
	}
	m.mu.Lock()
	m.data.places[kind][id] = *p
	m.mu.Unlock()
	return p
}

// SeedQuest stores a quest and its steps.
func (m *MemStore) SeedQuest(quest *models.Quest) *models.Quest {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := *quest
	q.Steps = nil
	m.data.quests[quest.ID] = q
	for _, s := range quest.Steps {
		s.QuestID = quest.ID
		m.data.steps[s.ID] = *s
	}
	return quest
}
