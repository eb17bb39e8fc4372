package postgres

import (
	"context"
	"time"

	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/pkg/apperrors"
	"github.com/yigit/nodues/internal/pkg/dberrors"
)

// FinalRepository handles database operations for final decisions
type FinalRepository struct {
	base
}

// NewFinalRepository creates a new final decision repository
func NewFinalRepository(conn DBTX, timeout time.Duration) *FinalRepository {
	return &FinalRepository{base: newBase(conn, timeout)}
}

// Create inserts the final decision. The request id is the primary key, so a
// second decision for the same request is rejected by the database.
func (r *FinalRepository) Create(ctx context.Context, requestID int64, status models.RequestStatus, issuedAt time.Time) (*models.Final, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	f := models.Final{RequestID: requestID, FinalStatus: status, IssuedAt: issuedAt}
	_, err := r.db.Exec(ctx, `INSERT INTO finals (request_id, final_status, issued_at) VALUES ($1, $2, $3)`,
		requestID, status, issuedAt)
	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return nil, apperrors.NewInvalidStateError("final decision already issued")
		}
		return nil, storeErr("create final", err)
	}
	return &f, nil
}

// GetByRequest retrieves the final decision of a request
func (r *FinalRepository) GetByRequest(ctx context.Context, requestID int64) (*models.Final, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var f models.Final
	err := r.db.QueryRow(ctx, `SELECT request_id, final_status, issued_at FROM finals WHERE request_id = $1`, requestID).
		Scan(&f.RequestID, &f.FinalStatus, &f.IssuedAt)
	if err != nil {
		return nil, storeErr("get final", err)
	}
	return &f, nil
}
