package services

import (
	"context"
	"sync"
	"testing"

	"geoquest-backend/internal/errorx"
	"geoquest-backend/internal/geo"
	"geoquest-backend/internal/models"
	"geoquest-backend/internal/testutil"

	"github.com/stretchr/testify/require"
)

// trailhead is the reference location used across tests
var trailhead = geo.Coordinate{Latitude: 43.6578, Longitude: -71.5003}

// farAway is about 5 km north of trailhead
var farAway = geo.Coordinate{Latitude: 43.7028, Longitude: -71.5003}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) pointUpdates() []PointsUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	var updates []PointsUpdate
	for _, e := range r.events {
		if u, ok := e.Data.(PointsUpdate); ok && e.Type == EventPointsUpdated {
			updates = append(updates, u)
		}
	}
	return updates
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []EventType
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

type fixture struct {
	store    *testutil.MemStore
	events   *recorder
	ledger   *LedgerService
	checkIns *CheckInService
	quests   *QuestService
}

func newFixture(t *testing.T, opts QuestOptions) *fixture {
	t.Helper()
	store := testutil.NewMemStore()
	events := &recorder{}
	ledger := NewLedgerService(store, events)
	return &fixture{
		store:    store,
		events:   events,
		ledger:   ledger,
		checkIns: NewCheckInService(store, ledger, events),
		quests:   NewQuestService(store, ledger, events, opts),
	}
}

func ptr[T any](v T) *T { return &v }

// seedThreeStepQuest stores a quest with three check-in steps at trailhead,
// each worth 10 points, and a 50 point completion bonus.
func (f *fixture) seedThreeStepQuest(id string) *models.Quest {
	f.store.SeedPlace(models.KindLocation, "loc-trail", trailhead, 50, 15)
	quest := &models.Quest{ID: id, Name: "Summit", PointsReward: 50, IsActive: true}
	for i := 1; i <= 3; i++ {
		quest.Steps = append(quest.Steps, &models.QuestStep{
			ID:               id + "-step-" + string(rune('0'+i)),
			StepNumber:       i,
			Title:            "Step",
			StepType:         models.StepCheckIn,
			TargetLocationID: ptr("loc-trail"),
			PointsReward:     10,
		})
	}
	return f.store.SeedQuest(quest)
}

func requireKind(t *testing.T, err error, kind errorx.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, errorx.KindOf(err), "unexpected error: %v", err)
}
