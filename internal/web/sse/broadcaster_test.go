package sse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/testutil"
)

func TestBroadcaster_PlayersChanged(t *testing.T) {
	hub := newRunningHub(t)
	broadcaster := NewBroadcaster(hub, testutil.NopLogger())

	client := NewClient(hub)
	hub.Register(client)
	waitForClients(t, hub, 1)

	broadcaster.PlayersChanged(model.NewChangeEvent(model.ChangeUpdate, "p1", time.Now()))

	select {
	case msg := <-client.send:
		assert.Equal(t, "event: players-changed\ndata: {\"type\":\"update\",\"player_id\":\"p1\"}\n\n", string(msg))
	case <-time.After(time.Second):
		t.Fatal("client did not receive players-changed")
	}
}

func TestBroadcaster_ResyncHasNoPlayerID(t *testing.T) {
	hub := newRunningHub(t)
	broadcaster := NewBroadcaster(hub, testutil.NopLogger())

	client := NewClient(hub)
	hub.Register(client)
	waitForClients(t, hub, 1)

	broadcaster.PlayersChanged(model.NewChangeEvent(model.ChangeResync, "", time.Now()))

	select {
	case msg := <-client.send:
		assert.Contains(t, string(msg), `data: {"type":"resync"}`)
	case <-time.After(time.Second):
		t.Fatal("client did not receive players-changed")
	}
}
