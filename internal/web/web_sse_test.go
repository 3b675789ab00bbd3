package web_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSSE_EndpointHeaders verifies the SSE endpoint returns correct headers
func TestSSE_EndpointHeaders(t *testing.T) {
	ts := newWebTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)

	// Use a context with timeout since SSE is a long-running connection
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	// Verify SSE headers
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rr.Header().Get("Connection"))
	assert.Equal(t, "no", rr.Header().Get("X-Accel-Buffering"))
}

// TestSSE_InitialEvents verifies the SSE endpoint sends retry and connected events
func TestSSE_InitialEvents(t *testing.T) {
	ts := newWebTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	body := rr.Body.String()

	// Should contain retry header (3000ms)
	assert.Contains(t, body, "retry: 3000", "Expected retry header in SSE response")

	// Should contain connected event
	assert.Contains(t, body, "event: connected", "Expected connected event in SSE response")
	assert.Contains(t, body, `data: {"status":"connected"}`, "Expected connected event data")
}

// TestSSE_ClientReleasedOnDisconnect verifies the hub forgets clients that leave
func TestSSE_ClientReleasedOnDisconnect(t *testing.T) {
	ts := newWebTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	ctx, cancel := context.WithCancel(context.Background())
	req = req.WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ts.handler.ServeHTTP(httptest.NewRecorder(), req)
	}()

	require.Eventually(t, func() bool { return ts.app.Hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Eventually(t, func() bool { return ts.app.Hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

// TestSSE_UnavailableAfterHubClosed verifies new streams are refused during shutdown
func TestSSE_UnavailableAfterHubClosed(t *testing.T) {
	ts := newWebTestServer(t)
	ts.app.Hub.Close()

	rr := ts.get("/events")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

// TestSSE_ChangesReachBrowser verifies that every store write is pushed to
// connected browsers as a players-changed event
func TestSSE_ChangesReachBrowser(t *testing.T) {
	ts := newWebTestServer(t)
	ts.app.MockIDs.Queue("alice-id")

	server := httptest.NewServer(ts.handler)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	// retry, blank, connected event, data, blank
	for _, prefix := range []string{"retry:", "", "event: connected", "data:", ""} {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(line, prefix), "got %q, want prefix %q", line, prefix)
	}
	require.Eventually(t, func() bool { return ts.app.Hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	ts.submit("Alice", "100000")

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: players-changed\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, `data: {"type":"insert","player_id":"alice-id"}`+"\n", line)
}
