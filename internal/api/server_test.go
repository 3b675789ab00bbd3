package api_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/portfolio-leaderboard/internal/api"
	"github.com/mcoot/portfolio-leaderboard/internal/config"
	"github.com/mcoot/portfolio-leaderboard/internal/testutil"
)

func TestServerServesUntilCancelled(t *testing.T) {
	srv := api.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}, testutil.NopLogger())

	ln, err := srv.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get(fmt.Sprintf("http://%s/", ln.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerAddr(t *testing.T) {
	srv := api.NewServer(http.NotFoundHandler(), config.ServerConfig{Host: "localhost", Port: 9090}, testutil.NopLogger())
	assert.Equal(t, "localhost:9090", srv.Addr())
}
