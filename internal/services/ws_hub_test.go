package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newHubServer(t *testing.T) (*WSHub, string) {
	t.Helper()
	hub := NewWSHub()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(r.URL.Query().Get("user"), conn)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSHubPublish(t *testing.T) {
	hub, base := newHubServer(t)

	url := base + "?user=alice"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return hub.IsOnline("alice") }, time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), newEvent(EventPointsUpdated, "alice", PointsUpdate{Delta: 15, Balance: 15, Reason: ReasonCheckIn}))
	// events for offline users are dropped
	hub.Publish(context.Background(), newEvent(EventPointsUpdated, "bob", nil))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type   EventType    `json:"type"`
		UserID string       `json:"user_id"`
		Data   PointsUpdate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, EventPointsUpdated, got.Type)
	require.Equal(t, "alice", got.UserID)
	require.Equal(t, 15, got.Data.Balance)

	require.Error(t, hub.SendToUser("bob", Event{}))
}

func TestWSHubRegisterReplacesConnection(t *testing.T) {
	hub, base := newHubServer(t)

	first, _, err := websocket.DefaultDialer.Dial(base+"?user=alice", nil)
	require.NoError(t, err)
	defer first.Close()
	require.Eventually(t, func() bool { return hub.IsOnline("alice") }, time.Second, 10*time.Millisecond)

	second, _, err := websocket.DefaultDialer.Dial(base+"?user=alice", nil)
	require.NoError(t, err)
	defer second.Close()

	// the older connection is closed by the hub
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = first.ReadMessage()
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		require.False(t, netErr.Timeout(), "old connection was not closed")
	}

	hub.Publish(context.Background(), newEvent(EventQuestCompleted, "alice", QuestCompletion{QuestID: "q1"}))
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := second.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(data), `"quest_completed"`)
}
