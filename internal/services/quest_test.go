package services

import (
	"context"
	"errors"
	"testing"

	"geoquest-backend/internal/errorx"
	"geoquest-backend/internal/geo"
	"geoquest-backend/internal/models"

	"github.com/stretchr/testify/require"
)

func submit(n int) StepSubmission {
	return StepSubmission{StepNumber: n, Coordinate: trailhead}
}

func TestQuest_CompleteAllSteps(t *testing.T) {
	f := newFixture(t, QuestOptions{})
	f.store.SeedUser("alice", 0)
	f.seedThreeStepQuest("q1")
	ctx := context.Background()

	uq, err := f.quests.Start(ctx, "alice", "q1")
	require.NoError(t, err)
	require.Equal(t, models.UserQuestActive, uq.Status)
	require.Equal(t, 3, uq.TotalSteps)
	require.Zero(t, uq.CompletedSteps)

	for n := 1; n <= 2; n++ {
		res, err := f.quests.CompleteStep(ctx, "alice", "q1", submit(n))
		require.NoError(t, err)
		require.True(t, res.StepCompleted)
		require.False(t, res.QuestCompleted)
		require.Equal(t, 10, res.PointsEarned)
		require.Equal(t, n, res.CompletedSteps)
	}

	res, err := f.quests.CompleteStep(ctx, "alice", "q1", submit(3))
	require.NoError(t, err)
	require.True(t, res.QuestCompleted)
	require.Equal(t, 60, res.PointsEarned)
	require.Equal(t, "3/3", res.Progress)

	require.Equal(t, 80, f.store.Points("alice"))

	runs, err := f.quests.ListUserQuests(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, models.UserQuestCompleted, runs[0].Status)
	require.NotNil(t, runs[0].CompletedAt)
	require.Equal(t, 50, runs[0].PointsEarned)
	require.InDelta(t, 100.0, runs[0].ProgressPercentage, 1e-9)

	// each step with a target writes a verified check-in carrying its reward
	checkIns := f.store.CheckIns()
	require.Len(t, checkIns, 3)
	for _, c := range checkIns {
		require.True(t, c.Verified)
		require.Equal(t, 10, c.PointsEarned)
	}

	require.Contains(t, f.events.types(), EventQuestCompleted)

	updates := f.events.pointUpdates()
	require.Len(t, updates, 4)
	require.Equal(t, PointsUpdate{Delta: 10, Balance: 30, Reason: ReasonQuestStep}, updates[2])
	require.Equal(t, PointsUpdate{Delta: 50, Balance: 80, Reason: ReasonQuestCompleted}, updates[3])
}

func TestQuest_StartTwiceConflicts(t *testing.T) {
	f := newFixture(t, QuestOptions{})
	f.store.SeedUser("alice", 0)
	f.seedThreeStepQuest("q1")
	ctx := context.Background()

	_, err := f.quests.Start(ctx, "alice", "q1")
	require.NoError(t, err)

	_, err = f.quests.Start(ctx, "alice", "q1")
	requireKind(t, err, errorx.Conflict)
	require.Contains(t, err.Error(), "in progress")
}

func TestQuest_RestartAfterCompletionConflicts(t *testing.T) {
	f := newFixture(t, QuestOptions{})
	f.store.SeedUser("alice", 0)
	f.seedThreeStepQuest("q1")
	ctx := context.Background()

	_, err := f.quests.Start(ctx, "alice", "q1")
	require.NoError(t, err)
	for n := 1; n <= 3; n++ {
		_, err := f.quests.CompleteStep(ctx, "alice", "q1", submit(n))
		require.NoError(t, err)
	}

	_, err = f.quests.Start(ctx, "alice", "q1")
	requireKind(t, err, errorx.Conflict)
	require.Contains(t, err.Error(), "already completed")

	_, err = f.quests.CompleteStep(ctx, "alice", "q1", submit(1))
	requireKind(t, err, errorx.Conflict)
}

func TestQuest_StartRules(t *testing.T) {
	f := newFixture(t, QuestOptions{})
	f.store.SeedUser("alice", 0)
	f.store.SeedQuest(&models.Quest{ID: "empty", Name: "Empty", IsActive: true})
	f.store.SeedQuest(&models.Quest{ID: "closed", Name: "Closed", IsActive: false, Steps: []*models.QuestStep{
		{ID: "closed-1", StepNumber: 1, Title: "x", StepType: models.StepTask},
	}})
	ctx := context.Background()

	_, err := f.quests.Start(ctx, "alice", "missing")
	requireKind(t, err, errorx.NotFound)

	_, err = f.quests.Start(ctx, "alice", "empty")
	requireKind(t, err, errorx.Conflict)

	_, err = f.quests.Start(ctx, "alice", "closed")
	requireKind(t, err, errorx.Conflict)

	_, err = f.quests.Start(ctx, "nobody", "closed")
	requireKind(t, err, errorx.NotFound)
}

func TestQuest_StepResubmitConflicts(t *testing.T) {
	f := newFixture(t, QuestOptions{})
	f.store.SeedUser("alice", 0)
	f.seedThreeStepQuest("q1")
	ctx := context.Background()

	_, err := f.quests.Start(ctx, "alice", "q1")
	require.NoError(t, err)
	_, err = f.quests.CompleteStep(ctx, "alice", "q1", submit(1))
	require.NoError(t, err)

	_, err = f.quests.CompleteStep(ctx, "alice", "q1", submit(1))
	requireKind(t, err, errorx.Conflict)
	require.Equal(t, 10, f.store.Points("alice"))
	require.Len(t, f.store.UserQuestSteps(), 1)
}

func TestQuest_StepOutsideGeofence(t *testing.T) {
	f := newFixture(t, QuestOptions{})
	f.store.SeedUser("alice", 0)
	f.seedThreeStepQuest("q1")
	ctx := context.Background()

	_, err := f.quests.Start(ctx, "alice", "q1")
	require.NoError(t, err)

	_, err = f.quests.CompleteStep(ctx, "alice", "q1", StepSubmission{StepNumber: 1, Coordinate: farAway})
	requireKind(t, err, errorx.Verification)

	var e *errorx.Error
	require.True(t, errors.As(err, &e))
	require.NotNil(t, e.DistanceMeters)
	require.Greater(t, *e.DistanceMeters, 4900.0)
	require.Equal(t, 50.0, *e.RadiusMeters)

	require.Zero(t, f.store.Points("alice"))
	require.Empty(t, f.store.UserQuestSteps())
	require.Empty(t, f.store.CheckIns())
}

func TestQuest_StepRequiresStart(t *testing.T) {
	f := newFixture(t, QuestOptions{})
	f.store.SeedUser("alice", 0)
	f.seedThreeStepQuest("q1")
	ctx := context.Background()

	_, err := f.quests.CompleteStep(ctx, "alice", "q1", submit(1))
	requireKind(t, err, errorx.NotFound)

	_, err = f.quests.Start(ctx, "alice", "q1")
	require.NoError(t, err)

	_, err = f.quests.CompleteStep(ctx, "alice", "q1", submit(9))
	requireKind(t, err, errorx.NotFound)
}

func TestQuest_SequentialSteps(t *testing.T) {
	ctx := context.Background()

	loose := newFixture(t, QuestOptions{})
	loose.store.SeedUser("alice", 0)
	loose.seedThreeStepQuest("q1")
	_, err := loose.quests.Start(ctx, "alice", "q1")
	require.NoError(t, err)
	_, err = loose.quests.CompleteStep(ctx, "alice", "q1", submit(3))
	require.NoError(t, err)

	strict := newFixture(t, QuestOptions{SequentialSteps: true})
	strict.store.SeedUser("alice", 0)
	strict.seedThreeStepQuest("q1")
	_, err = strict.quests.Start(ctx, "alice", "q1")
	require.NoError(t, err)
	_, err = strict.quests.CompleteStep(ctx, "alice", "q1", submit(2))
	requireKind(t, err, errorx.Conflict)
	_, err = strict.quests.CompleteStep(ctx, "alice", "q1", submit(1))
	require.NoError(t, err)
	_, err = strict.quests.CompleteStep(ctx, "alice", "q1", submit(2))
	require.NoError(t, err)
}

func TestQuest_PhotoAndQuestionSteps(t *testing.T) {
	f := newFixture(t, QuestOptions{})
	f.store.SeedUser("alice", 0)
	f.store.SeedQuest(&models.Quest{ID: "q2", Name: "Lore", PointsReward: 0, IsActive: true, Steps: []*models.QuestStep{
		{ID: "q2-1", StepNumber: 1, Title: "Snap", StepType: models.StepPhoto, PointsReward: 5},
		{ID: "q2-2", StepNumber: 2, Title: "Riddle", StepType: models.StepQuestion, PointsReward: 5, Answer: ptr("Granite")},
	}})
	ctx := context.Background()
	anywhere := geo.Coordinate{Latitude: 10, Longitude: 10}

	_, err := f.quests.Start(ctx, "alice", "q2")
	require.NoError(t, err)

	_, err = f.quests.CompleteStep(ctx, "alice", "q2", StepSubmission{StepNumber: 1, Coordinate: anywhere})
	requireKind(t, err, errorx.Validation)

	_, err = f.quests.CompleteStep(ctx, "alice", "q2", StepSubmission{StepNumber: 1, Coordinate: anywhere, PhotoURL: ptr("https://cdn/p.jpg")})
	require.NoError(t, err)

	_, err = f.quests.CompleteStep(ctx, "alice", "q2", StepSubmission{StepNumber: 2, Coordinate: anywhere, Answer: ptr("basalt")})
	requireKind(t, err, errorx.Verification)

	res, err := f.quests.CompleteStep(ctx, "alice", "q2", StepSubmission{StepNumber: 2, Coordinate: anywhere, Answer: ptr("  granite ")})
	require.NoError(t, err)
	require.True(t, res.QuestCompleted)
	require.Equal(t, 5, res.PointsEarned)
	require.Equal(t, 10, f.store.Points("alice"))

	// steps without a target location do not write check-ins
	require.Empty(t, f.store.CheckIns())
}

func TestQuest_StepRollbackOnUpdateFailure(t *testing.T) {
	f := newFixture(t, QuestOptions{})
	f.store.SeedUser("alice", 0)
	f.seedThreeStepQuest("q1")
	ctx := context.Background()

	_, err := f.quests.Start(ctx, "alice", "q1")
	require.NoError(t, err)

	boom := errors.New("connection reset")
	f.store.FailOn("UpdateUserQuest", boom)
	_, err = f.quests.CompleteStep(ctx, "alice", "q1", submit(1))
	require.ErrorIs(t, err, boom)
	require.Zero(t, f.store.Points("alice"))
	require.Empty(t, f.store.UserQuestSteps())

	f.store.FailOn("UpdateUserQuest", nil)
	res, err := f.quests.CompleteStep(ctx, "alice", "q1", submit(1))
	require.NoError(t, err)
	require.Equal(t, 1, res.CompletedSteps)
}

func TestQuest_CreateAndGet(t *testing.T) {
	f := newFixture(t, QuestOptions{})
	f.store.SeedPlace(models.KindLocation, "loc-trail", trailhead, 50, 15)
	ctx := context.Background()

	draft := QuestDraft{
		Name:         "Ridge Run",
		PointsReward: 40,
		IsActive:     true,
		Steps: []StepDraft{
			{StepNumber: 2, Title: "Summit", StepType: models.StepCheckIn, TargetLocationID: ptr("loc-trail"), PointsReward: 10},
			{StepNumber: 1, Title: "Start", StepType: models.StepTask, PointsReward: 5},
		},
	}
	quest, err := f.quests.Create(ctx, draft)
	require.NoError(t, err)
	require.Len(t, quest.Steps, 2)
	require.Equal(t, 1, quest.Steps[0].StepNumber)
	require.NotNil(t, quest.Steps[1].Target)
	require.Equal(t, 50.0, quest.Steps[1].Target.RadiusMeters)

	active, err := f.quests.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	_, err = f.quests.Create(ctx, QuestDraft{Name: "Bad", Steps: []StepDraft{
		{StepNumber: 1, Title: "a", StepType: models.StepTask},
		{StepNumber: 1, Title: "b", StepType: models.StepTask},
	}})
	requireKind(t, err, errorx.Validation)

	_, err = f.quests.Create(ctx, QuestDraft{Name: "Bad", Steps: []StepDraft{
		{StepNumber: 1, Title: "a", StepType: models.StepCheckIn, TargetLocationID: ptr("nowhere")},
	}})
	requireKind(t, err, errorx.NotFound)

	active, err = f.quests.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	_, err = f.quests.Get(ctx, "missing")
	requireKind(t, err, errorx.NotFound)
}
