package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/transit-strips/poller/internal/strip"
)

// NewIterationID returns a fresh id that tags every pixel written in one
// poll iteration
func NewIterationID() string {
	return uuid.New().String()
}

// PixelWrite is one pixel to store
type PixelWrite struct {
	Slot   strip.Slot
	Color  strip.Color
	Status string
}

// Pixel is a stored pixel
type Pixel struct {
	Slot        strip.Slot  `json:"slot"`
	Color       strip.Color `json:"color"`
	Status      string      `json:"status,omitempty"`
	IterationID string      `json:"iteration_id"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// UpsertPixels stores the given pixels in one transaction
func (db *DB) UpsertPixels(ctx context.Context, iterationID string, pixels []PixelWrite) error {
	if len(pixels) == 0 {
		return nil
	}

	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO strip_pixels (device, idx, color, status, iteration_id, updated_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (device, idx) DO UPDATE SET
			color = excluded.color,
			status = excluded.status,
			iteration_id = excluded.iteration_id,
			updated_at = datetime('now')
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare pixel statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range pixels {
		if _, err := stmt.ExecContext(ctx, p.Slot.Device, p.Slot.Index, p.Color.String(), p.Status, iterationID); err != nil {
			return fmt.Errorf("failed to upsert pixel %s: %w", p.Slot, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pixels: %w", err)
	}
	return nil
}

// Pixels returns every stored pixel ordered by device and index
func (db *DB) Pixels(ctx context.Context) ([]Pixel, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT device, idx, color, status, iteration_id, updated_at
		FROM strip_pixels
		ORDER BY device, idx
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pixels: %w", err)
	}
	defer rows.Close()

	var pixels []Pixel
	for rows.Next() {
		var p Pixel
		var color, updatedAt string
		if err := rows.Scan(&p.Slot.Device, &p.Slot.Index, &color, &p.Status, &p.IterationID, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pixel: %w", err)
		}
		if p.Color, err = strip.ParseHexColor(color); err != nil {
			return nil, fmt.Errorf("invalid color for pixel %s: %w", p.Slot, err)
		}
		if t, err := time.Parse(time.DateTime, updatedAt); err == nil {
			p.UpdatedAt = t.UTC()
		}
		pixels = append(pixels, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pixels: %w", err)
	}

	return pixels, nil
}

// PruneDevices deletes pixels that no longer belong to any of the given
// devices, returning how many rows were removed
func (db *DB) PruneDevices(ctx context.Context, devices []strip.Device) (int, error) {
	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var deleted int64

	ids := make([]string, 0, len(devices))
	args := make([]any, 0, len(devices))
	for _, d := range devices {
		ids = append(ids, "?")
		args = append(args, d.ID)
	}
	query := "DELETE FROM strip_pixels"
	if len(ids) > 0 {
		query += " WHERE device NOT IN (" + strings.Join(ids, ", ") + ")"
	}
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune devices: %w", err)
	}
	n, _ := result.RowsAffected()
	deleted += n

	for _, d := range devices {
		result, err := tx.ExecContext(ctx, "DELETE FROM strip_pixels WHERE device = ? AND idx >= ?", d.ID, d.Length)
		if err != nil {
			return 0, fmt.Errorf("failed to prune device %d: %w", d.ID, err)
		}
		n, _ := result.RowsAffected()
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return int(deleted), nil
}
