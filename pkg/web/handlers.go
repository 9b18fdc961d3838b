package web

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-tryon/pkg/accessory"
	"github.com/teslashibe/go-tryon/pkg/camera"
	"github.com/teslashibe/go-tryon/pkg/hub"
)

// handleStatus returns the tracker state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.tracker.State())
}

// handleCatalog returns the product catalog
func (s *Server) handleCatalog(c *fiber.Ctx) error {
	return c.JSON(s.catalog.Products())
}

// handlePlacement returns the most recent placement
func (s *Server) handlePlacement(c *fiber.Ctx) error {
	p := s.lastPlacement.Load()
	if p == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no placement yet",
		})
	}
	return c.JSON(p)
}

// SelectAccessoryRequest picks a catalog product or supplies tuning
// constants directly.
type SelectAccessoryRequest struct {
	ProductID string          `json:"product_id" validate:"max=64"`
	Meta      *accessory.Meta `json:"meta" validate:"required_without=ProductID"`
}

// handleSelectAccessory switches the active accessory
func (s *Server) handleSelectAccessory(c *fiber.Ctx) error {
	var req SelectAccessoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	meta := accessory.DefaultMeta()
	if req.ProductID != "" {
		p, err := s.catalog.Find(req.ProductID)
		if errors.Is(err, accessory.ErrUnknownProduct) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		meta = p.Meta()
	}
	if req.Meta != nil {
		meta = *req.Meta
	}
	meta.Category = accessory.ParseCategory(string(meta.Category))

	s.tracker.SelectAccessory(meta, req.ProductID)
	s.logger.Info("accessory selected via API", "product", req.ProductID, "category", meta.Category)

	return c.JSON(fiber.Map{
		"status":     "ok",
		"product_id": req.ProductID,
		"meta":       meta,
	})
}

// handleReset clears smoothing
func (s *Server) handleReset(c *fiber.Ctx) error {
	s.tracker.Reset()
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleStart starts the tracking loop
func (s *Server) handleStart(c *fiber.Ctx) error {
	if s.tracker.IsRunning() {
		return c.JSON(fiber.Map{"status": "already running"})
	}
	s.tracker.Start(s.ctx)
	return c.JSON(fiber.Map{"status": "started"})
}

// handleStop stops the tracking loop
func (s *Server) handleStop(c *fiber.Ctx) error {
	if !s.tracker.IsRunning() {
		return c.JSON(fiber.Map{"status": "not running"})
	}
	s.tracker.Stop()
	return c.JSON(fiber.Map{"status": "stopped"})
}

// handleGetCamera returns the camera config
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	return c.JSON(s.camera.GetConfigJSON())
}

// handleSetCamera applies a partial camera config or preset
func (s *Server) handleSetCamera(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.camera.UpdateConfig(params); err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(s.camera.GetConfigJSON())
}

// handleCameraPresets lists the camera presets
func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"presets":      camera.PresetNames(),
		"capabilities": camera.Capabilities(),
	})
}

// handleGetTuning returns the tracking tuning parameters
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	return c.JSON(s.tracker.GetTuningParams())
}

// handleSetTuning updates tracking tuning. Omitted fields keep their
// current value; out-of-range values are clamped.
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	params := s.tracker.GetTuningParams()
	if err := c.BodyParser(&params); err != nil {
		return badRequest(c, "invalid request body")
	}
	if !params.Mapping.Valid() {
		return badRequest(c, fmt.Sprintf("unknown mapping %q", params.Mapping))
	}
	s.tracker.SetTuningParams(params)
	return c.JSON(fiber.Map{
		"status": "ok",
		"params": params,
	})
}

// handleSessions lists recorded sessions
func (s *Server) handleSessions(c *fiber.Ctx) error {
	if s.sessions == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "recording disabled",
		})
	}
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit < 1 {
		return badRequest(c, "limit must be a positive integer")
	}
	rows, err := s.sessions.Sessions(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(rows)
}

// handleSessionFrames returns the frames of one session
func (s *Server) handleSessionFrames(c *fiber.Ctx) error {
	if s.sessions == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "recording disabled",
		})
	}
	rows, err := s.sessions.Frames(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(rows)
}

// handlePlacementsWS streams placements
func (s *Server) handlePlacementsWS(c *websocket.Conn) {
	hub.NewClient(s.placementHub, c).Run()
}

// handleStatusWS streams tracker state, starting with the current one
func (s *Server) handleStatusWS(c *websocket.Conn) {
	if msg, err := hub.Encode("state", s.tracker.State()); err == nil {
		_ = c.WriteMessage(websocket.TextMessage, msg.Data)
	}
	hub.NewClient(s.statusHub, c).Run()
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}
