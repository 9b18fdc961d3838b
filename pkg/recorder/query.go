package recorder

import (
	"database/sql"
	"fmt"
	"time"
)

// SessionRow is a stored session.
type SessionRow struct {
	ID          string     `json:"session_id"`
	Started     time.Time  `json:"started"`
	Ended       *time.Time `json:"ended,omitempty"`
	ProductID   string     `json:"product_id"`
	Category    string     `json:"category"`
	ScaleFactor float64    `json:"scale_factor"`
	Window      int        `json:"window"`
	Mapping     string     `json:"mapping"`
	Frames      int        `json:"frames"`
}

// FrameRow is a stored frame.
type FrameRow struct {
	Frame       int64   `json:"frame"`
	VideoMs     float64 `json:"video_ms"`
	Category    string  `json:"category"`
	ScaleRef    float64 `json:"scale_ref"`
	HasRotation bool    `json:"has_rotation"`
	Yaw         float64 `json:"yaw"`
	Pitch       float64 `json:"pitch"`
	Roll        float64 `json:"roll"`
	RawX        float64 `json:"raw_x"`
	RawY        float64 `json:"raw_y"`
	RawZ        float64 `json:"raw_z"`
	RawScale    float64 `json:"raw_scale"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	Scale       float64 `json:"scale"`
}

// Sessions returns the most recent sessions, newest first.
func (db *DB) Sessions(limit int) ([]SessionRow, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT s.session_id, s.started, s.ended, s.product_id, s.category,
			s.scale_factor, s.window_size, s.mapping,
			(SELECT COUNT(*) FROM frames f WHERE f.session_id = s.session_id)
		FROM sessions s
		ORDER BY s.started DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		var started float64
		var ended sql.NullFloat64
		if err := rows.Scan(&r.ID, &started, &ended, &r.ProductID, &r.Category,
			&r.ScaleFactor, &r.Window, &r.Mapping, &r.Frames); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		r.Started = fromUnixSeconds(started)
		if ended.Valid {
			t := fromUnixSeconds(ended.Float64)
			r.Ended = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Frames returns every frame of a session in order.
func (db *DB) Frames(sessionID string) ([]FrameRow, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	rows, err := db.Query(`
		SELECT frame, video_ms, category, scale_ref, has_rotation, yaw, pitch, roll,
			raw_x, raw_y, raw_z, raw_scale, x, y, z, scale
		FROM frames
		WHERE session_id = ?
		ORDER BY frame`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	out := []FrameRow{}
	for rows.Next() {
		var r FrameRow
		if err := rows.Scan(&r.Frame, &r.VideoMs, &r.Category, &r.ScaleRef, &r.HasRotation,
			&r.Yaw, &r.Pitch, &r.Roll, &r.RawX, &r.RawY, &r.RawZ, &r.RawScale,
			&r.X, &r.Y, &r.Z, &r.Scale); err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
