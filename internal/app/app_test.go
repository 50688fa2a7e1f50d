package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/statusboard/internal/config"
)

// pushSource is an in-process WebSocket event source. Tests push frames
// with send once the client has connected.
type pushSource struct {
	server *httptest.Server
	conns  chan *websocket.Conn
	ready  chan map[string]any
}

func newPushSource(t *testing.T) *pushSource {
	t.Helper()
	src := &pushSource{
		conns: make(chan *websocket.Conn, 1),
		ready: make(chan map[string]any, 1),
	}
	upgrader := websocket.Upgrader{}
	src.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		var hello map[string]any
		if err := ws.ReadJSON(&hello); err != nil {
			return
		}
		src.ready <- hello
		src.conns <- ws
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(src.server.Close)
	return src
}

func (s *pushSource) endpoint() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	return dir
}

func TestNewApp_DefaultsWithoutConfig(t *testing.T) {
	a, _, _ := SetupAppTest(t, &Config{})

	require.Equal(t, config.DefaultEndpoint, a.Model().Endpoint)
	require.Equal(t, config.DefaultBindings(), a.Model().Bindings)
}

func TestNewApp_LoadsHCLAndYAML(t *testing.T) {
	dir := writeConfig(t, "board.hcl", `
endpoint = "http://status.lan:5000"
binding "plex" {
  region = "now_playing_wrapper"
}
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(`
bindings:
  - event: services
    region: services
`), 0o600))

	a, _, _ := SetupAppTest(t, &Config{ConfigPath: dir, ConnectTimeout: 2 * time.Second})

	m := a.Model()
	require.Equal(t, "http://status.lan:5000", m.Endpoint)
	require.Equal(t, 2*time.Second, m.ConnectTimeout)
	require.Equal(t, []config.Binding{
		{Event: "plex", Region: "now_playing_wrapper", Field: "data"},
		{Event: "services", Region: "services", Field: "data"},
	}, m.Bindings)
}

func TestNewApp_EndpointOverride(t *testing.T) {
	dir := writeConfig(t, "board.hcl", `endpoint = "http://from-file:5000"`)

	a, _, _ := SetupAppTest(t, &Config{ConfigPath: dir, Endpoint: "ws://override:9000"})
	require.Equal(t, "ws://override:9000", a.Model().Endpoint)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	dir := writeConfig(t, "board.hcl", `binding "plex" {`)

	_, err := NewApp(&SafeBuffer{}, &SafeBuffer{}, &Config{ConfigPath: dir}, DefaultLoaders())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load configuration")
}

func TestNewApp_ConfigPathErrors(t *testing.T) {
	emptyDir := t.TempDir()
	jsonDir := writeConfig(t, "config.json", `{"endpoint": "http://status.lan:5000"}`)

	testCases := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "missing file", path: filepath.Join(emptyDir, "board.hcl"), wantErr: "missing config file"},
		{name: "unrecognized extension", path: filepath.Join(jsonDir, "config.json"), wantErr: "no configuration files"},
		{name: "directory without config", path: emptyDir, wantErr: "no configuration files"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := NewApp(&SafeBuffer{}, &SafeBuffer{}, &Config{ConfigPath: tc.path}, DefaultLoaders())
			require.Error(t, err)
			require.Nil(t, a)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRun_RendersPushedEvents(t *testing.T) {
	src := newPushSource(t)
	dir := writeConfig(t, "board.hcl", `
ready_event = "hello"
binding "plex" {
  region = "now_playing_wrapper"
}
binding "forecast" {
  region = "left_column_top"
}
`)
	a, out, logs := SetupAppTest(t, &Config{ConfigPath: dir, Endpoint: src.endpoint(), Print: true})

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()

	var hello map[string]any
	select {
	case hello = <-src.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("client never announced readiness")
	}
	require.Equal(t, "hello", hello["event"])

	ws := <-src.conns
	require.NoError(t, ws.WriteJSON(map[string]any{"event": "plex", "data": map[string]any{"data": "<b>Movie X</b>"}}))
	require.NoError(t, ws.WriteJSON(map[string]any{"event": "forecast", "data": map[string]any{}}))
	require.NoError(t, ws.WriteJSON(map[string]any{"event": "plex", "data": map[string]any{"data": "<b>Movie Y</b>"}}))

	require.Eventually(t, func() bool {
		got, _ := a.Regions().Get("now_playing_wrapper")
		return got == "<b>Movie Y</b>"
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := a.Regions().Get("left_column_top")
	assert.False(t, ok, "malformed forecast must not create the region")
	assert.Contains(t, logs.String(), "Malformed event")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `now_playing_wrapper (updated) = "<b>Movie Y</b>"`)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), `now_playing_wrapper (set) = "<b>Movie X</b>"`)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.True(t, health.Connected)
	require.NotNil(t, health.Stats)
	assert.Equal(t, uint64(1), health.Stats.HandlerErrors)

	cancel()
	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRun_ConnectionFailure(t *testing.T) {
	src := newPushSource(t)
	endpoint := src.endpoint()
	src.server.Close()

	a, _, _ := SetupAppTest(t, &Config{Endpoint: endpoint, ConnectTimeout: time.Second})

	err := a.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to connect")
}

func TestRun_DuplicateBinding(t *testing.T) {
	src := newPushSource(t)
	dir := writeConfig(t, "board.hcl", `
binding "plex" {
  region = "now_playing_wrapper"
}
binding "plex" {
  region = "now_playing_wrapper"
}
`)
	a, _, _ := SetupAppTest(t, &Config{ConfigPath: dir, Endpoint: src.endpoint()})

	err := a.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate binding")
}

func TestRouter_Regions(t *testing.T) {
	a, _, _ := SetupAppTest(t, &Config{})
	a.Regions().Set("services", "<li>dns</li>")

	testCases := []struct {
		name        string
		path        string
		wantCode    int
		wantBody    string
		contentType string
	}{
		{name: "snapshot", path: "/regions", wantCode: http.StatusOK, wantBody: `{"services":"<li>dns</li>"}`, contentType: "application/json"},
		{name: "single region", path: "/regions/services", wantCode: http.StatusOK, wantBody: "<li>dns</li>", contentType: "text/html; charset=utf-8"},
		{name: "unknown region", path: "/regions/bandwidth", wantCode: http.StatusNotFound},
		{name: "health before connect", path: "/health", wantCode: http.StatusOK, wantBody: `{"status":"ok","connected":false}`, contentType: "application/json"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			require.Equal(t, tc.wantCode, rec.Code)
			if tc.wantBody != "" {
				require.Equal(t, tc.wantBody, strings.TrimSpace(rec.Body.String()))
			}
			if tc.contentType != "" {
				require.Equal(t, tc.contentType, rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestNewConfig_Validation(t *testing.T) {
	_, err := NewConfig(Config{HTTPPort: 70000})
	require.Error(t, err)

	_, err = NewConfig(Config{ConnectTimeout: -time.Second})
	require.Error(t, err)

	cfg, err := NewConfig(Config{HTTPPort: 8080})
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.HTTPPort)
}
