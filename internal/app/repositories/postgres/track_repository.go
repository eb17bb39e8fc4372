package postgres

import (
	"context"
	"time"

	"github.com/yigit/nodues/internal/app/models"
)

// TrackRepository handles database operations for tracks
type TrackRepository struct {
	base
}

// NewTrackRepository creates a new track repository
func NewTrackRepository(conn DBTX, timeout time.Duration) *TrackRepository {
	return &TrackRepository{base: newBase(conn, timeout)}
}

// Update stores a new status for the track
func (r *TrackRepository) Update(ctx context.Context, trackID int64, status models.TrackStatus, updatedAt time.Time) (*models.Track, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var t models.Track
	err := r.db.QueryRow(ctx, `
		UPDATE tracks SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, request_id, unit_type, step_number, status, updated_at`,
		status, updatedAt, trackID,
	).Scan(&t.ID, &t.RequestID, &t.UnitType, &t.StepNumber, &t.Status, &t.UpdatedAt)
	if err != nil {
		return nil, storeErr("update track", err)
	}
	return &t, nil
}

// ListByRequest returns the request's tracks in step order with their queries
func (r *TrackRepository) ListByRequest(ctx context.Context, requestID int64) ([]models.Track, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	reqs := []models.Request{{ID: requestID}}
	if err := hydrate(ctx, r.db, reqs); err != nil {
		return nil, storeErr("list tracks", err)
	}
	return reqs[0].Tracks, nil
}
