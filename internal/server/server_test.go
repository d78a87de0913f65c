package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/orderly/internal/cliconfig"
	"github.com/bft-labs/orderly/internal/domain"
	"github.com/bft-labs/orderly/pkg/lifecycle"
)

func testConfig() cliconfig.Config {
	cfg := cliconfig.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.Size = 100
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

type recordingEmitter struct {
	mu     sync.Mutex
	states []lifecycle.State
}

func (r *recordingEmitter) OnStateChange(_, current lifecycle.State, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, current)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Size = 0

	_, err := New(cfg)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}
}

func TestServer_StartServeStop(t *testing.T) {
	em := &recordingEmitter{}
	s, err := New(testConfig(), WithEventEmitter(em))
	require.NoError(t, err)
	require.Equal(t, 100, s.Store().Len())

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, lifecycle.StateRunning, s.State())
	assert.ErrorIs(t, s.Start(context.Background()), domain.ErrAlreadyRunning)

	base := "http://" + s.Addr()

	resp, err := http.Get(base + "/api/items?search=item%209&limit=5")
	require.NoError(t, err)
	var page struct {
		Items []struct {
			ID    int64  `json:"id"`
			Value string `json:"value"`
		} `json:"items"`
		HasMore bool `json:"hasMore"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	resp.Body.Close()
	require.Len(t, page.Items, 5)
	assert.Equal(t, int64(9), page.Items[0].ID)
	assert.True(t, page.HasMore)

	resp, err = http.Get(base + "/healthz")
	require.NoError(t, err)
	var health struct {
		OK    bool   `json:"ok"`
		State string `json:"state"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "Running", health.State)

	require.NoError(t, s.Stop())
	assert.Equal(t, lifecycle.StateStopped, s.State())
	assert.ErrorIs(t, s.Stop(), domain.ErrNotRunning)

	em.mu.Lock()
	defer em.mu.Unlock()
	assert.Equal(t, []lifecycle.State{
		lifecycle.StateStarting,
		lifecycle.StateRunning,
		lifecycle.StateStopping,
		lifecycle.StateStopped,
	}, em.states)
}

func TestServer_ReorderVisibleToQueries(t *testing.T) {
	s, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	base := "http://" + s.Addr()
	resp, err := http.Post(base+"/api/order", "application/json", strings.NewReader(`{"clientId":"a","order":[3,1,2]}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/api/items?limit=3")
	require.NoError(t, err)
	defer resp.Body.Close()
	var page struct {
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Len(t, page.Items, 3)
	got := []int64{page.Items[0].ID, page.Items[1].ID, page.Items[2].ID}
	assert.Equal(t, []int64{3, 1, 2}, got)
}

func TestServer_ListenFailureCrashes(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	cfg := testConfig()
	cfg.Addr = l.Addr().String()
	s, err := New(cfg)
	require.NoError(t, err)

	require.Error(t, s.Start(context.Background()))
	assert.Equal(t, lifecycle.StateCrashed, s.State())
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s, err := New(testConfig(), WithListener(l))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.State() == lifecycle.StateRunning }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, lifecycle.StateStopped, s.State())
}

func TestServer_ConfigFileChangesLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"info\"\n"), 0o644))

	levels := make(chan string, 4)
	s, err := New(testConfig(),
		WithConfigFile(path),
		WithLevelFunc(func(level string) { levels <- level }),
	)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.NoError(t, os.WriteFile(path, []byte("log_level = \"debug\"\n"), 0o644))

	select {
	case level := <-levels:
		assert.Equal(t, "debug", level)
	case <-time.After(3 * time.Second):
		t.Fatal("level change not applied")
	}
}
