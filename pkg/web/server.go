// Package web serves the try-on API and streams placements to browser
// renderers over websockets.
package web

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/teslashibe/go-tryon/internal/log"
	"github.com/teslashibe/go-tryon/pkg/accessory"
	"github.com/teslashibe/go-tryon/pkg/camera"
	"github.com/teslashibe/go-tryon/pkg/hub"
	"github.com/teslashibe/go-tryon/pkg/placement"
	"github.com/teslashibe/go-tryon/pkg/recorder"
	"github.com/teslashibe/go-tryon/pkg/tracking"
)

// Controller is the tracking surface the API drives. *tracking.Tracker
// satisfies it.
type Controller interface {
	State() tracking.State
	SelectAccessory(meta accessory.Meta, productID string)
	Reset()
	Start(ctx context.Context)
	Stop()
	IsRunning() bool
	GetTuningParams() tracking.TuningParams
	SetTuningParams(params tracking.TuningParams)
}

// SessionStore lists recorded sessions. *recorder.DB satisfies it.
type SessionStore interface {
	Sessions(limit int) ([]recorder.SessionRow, error)
	Frames(sessionID string) ([]recorder.FrameRow, error)
}

// stateInterval caps how often unchanged tracking state is re-broadcast.
const stateInterval = time.Second

// Server is the API and websocket server
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	tracker   Controller
	catalog   *accessory.Catalog
	camera    *camera.Manager
	sessions  SessionStore
	validator *validator.Validate
	limits    *rateLimiter

	// Base context for tracker runs started over the API
	ctx context.Context

	// Latest values for REST polling
	lastPlacement atomic.Pointer[placement.Placement]
	stateMu       sync.Mutex
	lastState     tracking.State
	lastStateSent time.Time

	// Hubs for websocket broadcast
	placementHub *hub.Hub
	statusHub    *hub.Hub
}

// NewServer creates the server. sessions may be nil.
func NewServer(port string, tracker Controller, catalog *accessory.Catalog, cam *camera.Manager, sessions SessionStore) *Server {
	s := &Server{
		port:         port,
		logger:       log.Component("web"),
		tracker:      tracker,
		catalog:      catalog,
		camera:       cam,
		sessions:     sessions,
		validator:    accessory.Validator(),
		limits:       newRateLimiter(apiRate, apiBurst),
		ctx:          context.Background(),
		placementHub: hub.New("placements"),
		statusHub:    hub.New("status"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-tryon",
		DisableStartupMessage: true,
		JSONEncoder:           jsoniter.Marshal,
		JSONDecoder:           jsoniter.Unmarshal,
	})

	// CORS for local development
	app.Use(cors.New())

	// Static renderer
	app.Static("/", "./web")

	// API routes
	api := app.Group("/api", s.rateLimit)
	api.Get("/status", s.handleStatus)
	api.Get("/catalog", s.handleCatalog)
	api.Get("/placement", s.handlePlacement)
	api.Post("/accessory", s.handleSelectAccessory)
	api.Post("/reset", s.handleReset)
	api.Post("/tracking/start", s.handleStart)
	api.Post("/tracking/stop", s.handleStop)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleSetCamera)
	api.Get("/camera/presets", s.handleCameraPresets)
	api.Get("/tuning", s.handleGetTuning)
	api.Post("/tuning", s.handleSetTuning)
	api.Get("/sessions", s.handleSessions)
	api.Get("/sessions/:id/frames", s.handleSessionFrames)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/placements", websocket.New(s.handlePlacementsWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App returns the fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the hubs and serves until the listener fails or Shutdown.
// ctx bounds the hubs and any tracker runs started through the API.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.ctx = ctx
	go s.placementHub.Run(ctx)
	go s.statusHub.Run(ctx)

	s.logger.Info("web server listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// ApplyPlacement implements tracking.Applier.
func (s *Server) ApplyPlacement(p placement.Placement) {
	s.lastPlacement.Store(&p)
	if s.placementHub.ClientCount() == 0 {
		return
	}
	if err := s.placementHub.BroadcastJSON("placement", p); err != nil {
		s.logger.Warn("encode placement", "error", err)
	}
}

// UpdateTrackingState implements tracking.StateUpdater. Changes that a
// renderer acts on are sent at once; otherwise state goes out once per
// second.
func (s *Server) UpdateTrackingState(st tracking.State) {
	s.stateMu.Lock()
	prev := s.lastState
	s.lastState = st
	due := st.UpdatedAt.Sub(s.lastStateSent) >= stateInterval ||
		prev.FaceVisible != st.FaceVisible ||
		prev.Running != st.Running ||
		prev.Selection != st.Selection ||
		prev.SessionID != st.SessionID
	if due {
		s.lastStateSent = st.UpdatedAt
	}
	s.stateMu.Unlock()

	if !due || s.statusHub.ClientCount() == 0 {
		return
	}
	if err := s.statusHub.BroadcastJSON("state", st); err != nil {
		s.logger.Warn("encode state", "error", err)
	}
}

var (
	_ tracking.Applier      = (*Server)(nil)
	_ tracking.StateUpdater = (*Server)(nil)
	_ Controller            = (*tracking.Tracker)(nil)
	_ SessionStore          = (*recorder.DB)(nil)
)
