// Package recorder stores tracking sessions in SQLite so raw and smoothed
// placements can be replayed when recalibrating pose gains.
package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/go-tryon/pkg/tracking"
	_ "modernc.org/sqlite"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("recorder: closed")

// DB records tracking sessions. It implements tracking.Recorder.
type DB struct {
	*sql.DB

	mu     sync.Mutex
	closed bool
}

// Open opens or creates the database at path. Use ":memory:" for a
// throwaway store.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: SQLite has a single writer, and each in-memory
	// connection would otherwise get its own database.
	db.SetMaxOpenConns(1)

	rec := &DB{DB: db}
	if err := rec.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return rec, nil
}

func (db *DB) check() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	return nil
}

// StartSession implements tracking.Recorder.
func (db *DB) StartSession(s tracking.Session) error {
	if err := db.check(); err != nil {
		return err
	}
	m := s.Selection.Meta
	_, err := db.Exec(`
		INSERT INTO sessions (session_id, started, product_id, category, scale_factor, offset_y, offset_z, window_size, mapping)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, unixSeconds(s.Started), s.Selection.ProductID, string(m.Category),
		m.ScaleFactor, m.VerticalOffset, m.DepthOffset, s.Config.Window, string(s.Config.Mapping),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// RecordSample implements tracking.Recorder.
func (db *DB) RecordSample(s tracking.Sample) error {
	if err := db.check(); err != nil {
		return err
	}
	out := s.Output
	var yaw, pitch, roll float64
	if out.Rotation != nil {
		yaw, pitch, roll = out.Rotation.Yaw, out.Rotation.Pitch, out.Rotation.Roll
	}
	_, err := db.Exec(`
		INSERT INTO frames (
			session_id, frame, video_ms, product_id, category,
			anchor_x, anchor_y, anchor_z, scale_ref,
			has_rotation, yaw, pitch, roll,
			raw_x, raw_y, raw_z, raw_scale,
			x, y, z, scale
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID, int64(s.Frame), float64(s.Timestamp)/float64(time.Millisecond),
		s.Selection.ProductID, string(s.Selection.Meta.Category),
		out.Anchor.Point.X, out.Anchor.Point.Y, out.Anchor.Point.Z, out.Anchor.ScaleRef,
		out.Rotation != nil, yaw, pitch, roll,
		out.Raw.Position.X, out.Raw.Position.Y, out.Raw.Position.Z, out.Raw.Scale,
		out.Smoothed.Position.X, out.Smoothed.Position.Y, out.Smoothed.Position.Z, out.Smoothed.Scale,
	)
	if err != nil {
		return fmt.Errorf("failed to insert frame: %w", err)
	}
	return nil
}

// EndSession implements tracking.Recorder.
func (db *DB) EndSession(id string, end time.Time) error {
	if err := db.check(); err != nil {
		return err
	}
	_, err := db.Exec(`UPDATE sessions SET ended = ? WHERE session_id = ?`, unixSeconds(end), id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// Close closes the database. Later calls return ErrClosed.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	db.closed = true
	return db.DB.Close()
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*1e9)).UTC()
}
