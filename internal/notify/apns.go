// Package notify sends push notifications for domain events.
package notify

import (
	"context"
	"fmt"
	"time"

	"geoquest-backend/internal/models"
	"geoquest-backend/internal/services"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

const pushTimeout = 10 * time.Second

// APNsConfig holds token based APNs credentials
type APNsConfig struct {
	KeyFile    string
	KeyID      string
	TeamID     string
	Topic      string
	Production bool
}

// Enabled reports whether enough is configured to send pushes
func (c APNsConfig) Enabled() bool {
	return c.KeyFile != "" && c.KeyID != "" && c.TeamID != "" && c.Topic != ""
}

type pusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// UserLookup finds the device token of a user
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// APNs pushes a notification to users who complete a quest
type APNs struct {
	client pusher
	users  UserLookup
	topic  string
}

// NewAPNs creates an APNs notifier from a .p8 auth key
func NewAPNs(cfg APNsConfig, users UserLookup) (*APNs, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNs{client: client, users: users, topic: cfg.Topic}, nil
}

// Publish implements services.EventPublisher. Sending happens in the
// background so request latency does not depend on APNs.
func (a *APNs) Publish(ctx context.Context, event services.Event) {
	if event.Type != services.EventQuestCompleted {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		if err := a.send(ctx, event); err != nil {
			log.Error().Err(err).Str("user_id", event.UserID).Msg("Failed to send push notification")
		}
	}()
}

func (a *APNs) send(ctx context.Context, event services.Event) error {
	user, err := a.users.GetUserByID(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.PushToken == nil || *user.PushToken == "" {
		return nil
	}

	body := "You completed a quest!"
	if c, ok := event.Data.(services.QuestCompletion); ok && c.BonusPoints > 0 {
		body = fmt.Sprintf("You completed a quest and earned %d bonus points!", c.BonusPoints)
	}

	notification := &apns2.Notification{
		DeviceToken: *user.PushToken,
		Topic:       a.topic,
		Payload: payload.NewPayload().
			AlertTitle("Quest complete").
			AlertBody(body).
			Sound("default").
			Custom("type", string(event.Type)),
	}

	res, err := a.client.PushWithContext(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("push rejected: %d %s", res.StatusCode, res.Reason)
	}

	log.Debug().Str("user_id", user.ID).Str("apns_id", res.ApnsID).Msg("Push notification sent")
	return nil
}
