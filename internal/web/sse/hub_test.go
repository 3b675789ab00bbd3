package sse

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mcoot/portfolio-leaderboard/internal/metrics"
	"github.com/mcoot/portfolio-leaderboard/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub("players", metrics.Noop{}, testutil.NopLogger())
	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()
	t.Cleanup(func() {
		hub.Close()
		<-stopped
	})
	return hub
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, time.Second, 5*time.Millisecond)
}

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "test-event",
			data:      "hello world",
			expected:  "event: test-event\ndata: hello world\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "players-changed",
			data:      "<ol>\n  <li>Alice</li>\n  <li>Bob</li>\n</ol>",
			expected:  "event: players-changed\ndata: <ol>\ndata:   <li>Alice</li>\ndata:   <li>Bob</li>\ndata: </ol>\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatSSEMessage(tt.eventName, tt.data)
			if string(result) != tt.expected {
				t.Errorf("formatSSEMessage(%q, %q)\ngot:  %q\nwant: %q",
					tt.eventName, tt.data, string(result), tt.expected)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single line", "hello", []string{"hello"}},
		{"two lines", "line1\nline2", []string{"line1", "line2"}},
		{"trailing newline", "line1\n", []string{"line1"}},
		{"blank line kept", "a\n\nb", []string{"a", "", "b"}},
		{"empty string", "", []string{""}},
		{"crlf line endings", "line1\r\nline2\r\n", []string{"line1", "line2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitLines(tt.input))
		})
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := newRunningHub(t)

	client := NewClient(hub)
	require.True(t, hub.Register(client))
	waitForClients(t, hub, 1)

	hub.BroadcastEvent("test-event", "test data")

	select {
	case msg := <-client.send:
		assert.Equal(t, "event: test-event\ndata: test data\n\n", string(msg))
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := newRunningHub(t)

	client := NewClient(hub)
	hub.Register(client)
	waitForClients(t, hub, 1)

	hub.Unregister(client)
	waitForClients(t, hub, 0)

	_, ok := <-client.send
	assert.False(t, ok, "send channel closed on unregister")

	// Unregistering twice is harmless
	hub.Unregister(client)
}

func TestHub_BroadcastToMultipleClients(t *testing.T) {
	hub := newRunningHub(t)

	clients := []*Client{NewClient(hub), NewClient(hub), NewClient(hub)}
	for _, c := range clients {
		hub.Register(c)
	}
	waitForClients(t, hub, 3)

	hub.BroadcastEvent("update", "data")

	for i, client := range clients {
		select {
		case msg := <-client.send:
			assert.Equal(t, "event: update\ndata: data\n\n", string(msg))
		case <-time.After(time.Second):
			t.Errorf("client %d did not receive message", i+1)
		}
	}
}

func TestHub_SlowClientDoesNotBlockOthers(t *testing.T) {
	hub := newRunningHub(t)

	slow := NewClient(hub)
	fast := NewClient(hub)
	hub.Register(slow)
	hub.Register(fast)
	waitForClients(t, hub, 2)

	for i := 0; i < sendBufferSize+5; i++ {
		hub.BroadcastEvent("update", "data")
		select {
		case <-fast.send:
		case <-time.After(time.Second):
			t.Fatalf("fast client starved at message %d", i)
		}
	}
	assert.Len(t, slow.send, sendBufferSize)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub("players", metrics.Noop{}, testutil.NopLogger())
	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()

	client := NewClient(hub)
	hub.Register(client)
	waitForClients(t, hub, 1)

	hub.Close()
	<-stopped

	_, ok := <-client.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())

	// Closed hubs refuse new clients and do not block
	assert.False(t, hub.Register(NewClient(hub)))
	hub.Unregister(client)
	hub.Close()
}

type gaugeRecorder struct {
	metrics.Noop
	clients atomic.Int64
}

func (g *gaugeRecorder) IncSSEClients() { g.clients.Add(1) }
func (g *gaugeRecorder) DecSSEClients() { g.clients.Add(-1) }

func TestHub_TracksClientMetric(t *testing.T) {
	m := &gaugeRecorder{}
	hub := NewHub("players", m, testutil.NopLogger())
	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()

	a, b := NewClient(hub), NewClient(hub)
	hub.Register(a)
	hub.Register(b)
	hub.Unregister(a)
	waitForClients(t, hub, 1)
	assert.Equal(t, int64(1), m.clients.Load())

	hub.Close()
	<-stopped
	assert.Equal(t, int64(0), m.clients.Load())
}

func TestClientIDsAreUnique(t *testing.T) {
	hub := NewHub("players", metrics.Noop{}, testutil.NopLogger())
	a, b := NewClient(hub), NewClient(hub)
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
