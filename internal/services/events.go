package services

import (
	"context"
	"time"
)

type EventType string

const (
	EventCheckInRecorded    EventType = "checkin_recorded"
	EventPointsUpdated      EventType = "points_updated"
	EventQuestStepCompleted EventType = "quest_step_completed"
	EventQuestCompleted     EventType = "quest_completed"
)

// Event is published after the transaction that produced it has committed.
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	Timestamp int64     `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

func newEvent(t EventType, userID string, data any) Event {
	return Event{Type: t, UserID: userID, Timestamp: time.Now().UnixMilli(), Data: data}
}

// EventPublisher delivers events to connected clients. Delivery is best
// effort and never fails the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// Publishers fans an event out to every publisher in order.
type Publishers []EventPublisher

func (p Publishers) Publish(ctx context.Context, event Event) {
	for _, pub := range p {
		if pub != nil {
			pub.Publish(ctx, event)
		}
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// PointsUpdate is the payload of EventPointsUpdated.
type PointsUpdate struct {
	Delta   int    `json:"delta"`
	Balance int    `json:"balance"`
	Reason  string `json:"reason"`
}
