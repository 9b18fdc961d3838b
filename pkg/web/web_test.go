package web

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-tryon/pkg/accessory"
	"github.com/teslashibe/go-tryon/pkg/camera"
	"github.com/teslashibe/go-tryon/pkg/placement"
	"github.com/teslashibe/go-tryon/pkg/pose"
	"github.com/teslashibe/go-tryon/pkg/recorder"
	"github.com/teslashibe/go-tryon/pkg/tracking"
	"golang.org/x/time/rate"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type fakeController struct {
	mu       sync.Mutex
	state    tracking.State
	selected *tracking.Selection
	resets   int
	running  bool
	tuning   tracking.TuningParams
}

func newFakeController() *fakeController {
	return &fakeController{
		tuning: tracking.TuningParams{FrameHz: 30, Window: 5, Mapping: tracking.MappingApprox},
	}
}

func (f *fakeController) State() tracking.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeController) SelectAccessory(meta accessory.Meta, productID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = &tracking.Selection{ProductID: productID, Meta: meta}
}

func (f *fakeController) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeController) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
}

func (f *fakeController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeController) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeController) GetTuningParams() tracking.TuningParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tuning
}

func (f *fakeController) SetTuningParams(p tracking.TuningParams) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tuning = p
}

func newTestServer(t *testing.T, sessions SessionStore) (*Server, *fakeController) {
	t.Helper()
	ctrl := newFakeController()
	return NewServer("0", ctrl, accessory.DefaultCatalog(), camera.NewManager(), sessions), ctrl
}

func do(t *testing.T, s *Server, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestStatus(t *testing.T) {
	s, ctrl := newTestServer(t, nil)
	ctrl.state = tracking.State{SessionID: "abc", FaceVisible: true, Window: 5}

	code, body := do(t, s, "GET", "/api/status", "")
	require.Equal(t, http.StatusOK, code)

	var st tracking.State
	require.NoError(t, jsonAPI.Unmarshal(body, &st))
	assert.Equal(t, "abc", st.SessionID)
	assert.True(t, st.FaceVisible)
}

func TestCatalog(t *testing.T) {
	s, _ := newTestServer(t, nil)

	code, body := do(t, s, "GET", "/api/catalog", "")
	require.Equal(t, http.StatusOK, code)

	var products []accessory.Product
	require.NoError(t, jsonAPI.Unmarshal(body, &products))
	assert.Len(t, products, 6)
	assert.Equal(t, "glasses-aviator", products[0].ID)
}

func TestSelectAccessory(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		code     int
		product  string
		category accessory.Category
		scale    float64
	}{
		{"catalog product", `{"product_id":"glasses-round"}`, 200, "glasses-round", accessory.Glasses, 1.4},
		{"inline meta", `{"meta":{"type":"hat","scale_factor":1.2,"offset_y":0.1}}`, 200, "", accessory.Hat, 1.2},
		{"unknown type falls back", `{"meta":{"type":"crown"}}`, 200, "", accessory.Glasses, 0},
		{"unknown product", `{"product_id":"nope"}`, 404, "", "", 0},
		{"empty request", `{}`, 400, "", "", 0},
		{"scale out of range", `{"meta":{"type":"hat","scale_factor":99}}`, 400, "", "", 0},
		{"malformed body", `{"product_id":`, 400, "", "", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, ctrl := newTestServer(t, nil)
			code, _ := do(t, s, "POST", "/api/accessory", tc.body)
			require.Equal(t, tc.code, code)

			if tc.code != http.StatusOK {
				assert.Nil(t, ctrl.selected)
				return
			}
			require.NotNil(t, ctrl.selected)
			assert.Equal(t, tc.product, ctrl.selected.ProductID)
			assert.Equal(t, tc.category, ctrl.selected.Meta.Category)
			assert.Equal(t, tc.scale, ctrl.selected.Meta.ScaleFactor)
		})
	}
}

func TestResetAndRun(t *testing.T) {
	s, ctrl := newTestServer(t, nil)

	code, _ := do(t, s, "POST", "/api/reset", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, ctrl.resets)

	code, body := do(t, s, "POST", "/api/tracking/start", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "started")
	assert.True(t, ctrl.IsRunning())

	_, body = do(t, s, "POST", "/api/tracking/start", "")
	assert.Contains(t, string(body), "already running")

	_, body = do(t, s, "POST", "/api/tracking/stop", "")
	assert.Contains(t, string(body), "stopped")
	assert.False(t, ctrl.IsRunning())
}

func TestCamera(t *testing.T) {
	s, _ := newTestServer(t, nil)

	code, body := do(t, s, "POST", "/api/camera", `{"preset":"wide"}`)
	require.Equal(t, http.StatusOK, code)
	var cfg map[string]interface{}
	require.NoError(t, jsonAPI.Unmarshal(body, &cfg))
	assert.Equal(t, 78.0, cfg["fov"])
	assert.Equal(t, camera.WideConfig().FOV, s.camera.GetConfig().FOV)

	code, _ = do(t, s, "POST", "/api/camera", `{"fov":500}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, s, "GET", "/api/camera/presets", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "narrow")
}

func TestTuning(t *testing.T) {
	s, ctrl := newTestServer(t, nil)

	code, _ := do(t, s, "POST", "/api/tuning", `{"window":9}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 9, ctrl.tuning.Window)
	assert.Equal(t, 30.0, ctrl.tuning.FrameHz, "omitted fields keep their value")
	assert.Equal(t, tracking.MappingApprox, ctrl.tuning.Mapping)

	code, _ = do(t, s, "POST", "/api/tuning", `{"mapping":"fisheye"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, tracking.MappingApprox, ctrl.tuning.Mapping)

	code, body := do(t, s, "GET", "/api/tuning", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"window":9`)
}

func TestPlacement(t *testing.T) {
	s, _ := newTestServer(t, nil)

	code, _ := do(t, s, "GET", "/api/placement", "")
	assert.Equal(t, http.StatusNotFound, code)

	s.ApplyPlacement(placement.Placement{Scale: 20.48, Rotation: pose.Rotation{Yaw: 0.1}})

	code, body := do(t, s, "GET", "/api/placement", "")
	require.Equal(t, http.StatusOK, code)
	var p placement.Placement
	require.NoError(t, jsonAPI.Unmarshal(body, &p))
	assert.Equal(t, 20.48, p.Scale)
	assert.Equal(t, 0.1, p.Rotation.Yaw)
}

func TestSessions(t *testing.T) {
	s, _ := newTestServer(t, nil)
	code, _ := do(t, s, "GET", "/api/sessions", "")
	assert.Equal(t, http.StatusNotFound, code)

	db, err := recorder.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	started := time.Now().Add(-time.Minute)
	require.NoError(t, db.StartSession(tracking.Session{
		ID:        "s1",
		Started:   started,
		Selection: tracking.Selection{ProductID: "glasses-cat", Meta: accessory.Meta{Category: accessory.Glasses, ScaleFactor: 1.5}},
		Config:    tracking.DefaultConfig(),
	}))
	require.NoError(t, db.EndSession("s1", time.Now()))

	s, _ = newTestServer(t, db)
	code, body := do(t, s, "GET", "/api/sessions", "")
	require.Equal(t, http.StatusOK, code)
	var rows []recorder.SessionRow
	require.NoError(t, jsonAPI.Unmarshal(body, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "s1", rows[0].ID)
	assert.Equal(t, "glasses-cat", rows[0].ProductID)

	code, _ = do(t, s, "GET", "/api/sessions?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, s, "GET", "/api/sessions/s1/frames", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(body))
}

func TestUpdateTrackingState_Throttle(t *testing.T) {
	s, _ := newTestServer(t, nil)
	now := time.Now()

	s.UpdateTrackingState(tracking.State{FaceVisible: true, UpdatedAt: now})
	first := s.lastStateSent
	assert.Equal(t, now, first)

	s.UpdateTrackingState(tracking.State{FaceVisible: true, UpdatedAt: now.Add(100 * time.Millisecond)})
	assert.Equal(t, first, s.lastStateSent, "unchanged state inside the interval is held back")

	later := now.Add(200 * time.Millisecond)
	s.UpdateTrackingState(tracking.State{FaceVisible: false, UpdatedAt: later})
	assert.Equal(t, later, s.lastStateSent, "losing the face is sent at once")
}

func TestWebSocket_Placements(t *testing.T) {
	s, _ := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx, ln)
	defer s.Shutdown()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/placements", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.placementHub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	s.ApplyPlacement(placement.Placement{Scale: 2})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env struct {
		Type string              `json:"type"`
		Data placement.Placement `json:"data"`
	}
	require.NoError(t, jsonAPI.Unmarshal(data, &env))
	assert.Equal(t, "placement", env.Type)
	assert.Equal(t, 2.0, env.Data.Scale)
}

func TestWebSocket_StatusSendsCurrentState(t *testing.T) {
	s, ctrl := newTestServer(t, nil)
	ctrl.state = tracking.State{SessionID: "live", Running: true}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx, ln)
	defer s.Shutdown()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/status", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"state"`)
	assert.Contains(t, string(data), `"session_id":"live"`)
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	s, _ := newTestServer(t, nil)
	code, _ := do(t, s, "GET", "/ws/placements", "")
	assert.Equal(t, http.StatusUpgradeRequired, code)
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, nil)
	s.limits = newRateLimiter(rate.Every(time.Hour), 2)

	for i := 0; i < 2; i++ {
		code, _ := do(t, s, "GET", "/api/status", "")
		require.Equal(t, http.StatusOK, code)
	}
	code, _ := do(t, s, "GET", "/api/status", "")
	assert.Equal(t, http.StatusTooManyRequests, code)
}
