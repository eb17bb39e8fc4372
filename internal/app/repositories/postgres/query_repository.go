package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/nodues/internal/app/models"
)

const queryColumns = `id, track_id, request_id, student_id, approving_unit, remarks, status, created_at, resolved_at`

// QueryRepository handles database operations for unit queries
type QueryRepository struct {
	base
}

// NewQueryRepository creates a new query repository
func NewQueryRepository(conn DBTX, timeout time.Duration) *QueryRepository {
	return &QueryRepository{base: newBase(conn, timeout)}
}

func scanQuery(row pgx.Row) (*models.Query, error) {
	var q models.Query
	err := row.Scan(&q.ID, &q.TrackID, &q.RequestID, &q.StudentID, &q.ApprovingUnit, &q.Remarks, &q.Status, &q.CreatedAt, &q.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func selectQueries(ctx context.Context, conn DBTX, clause string, args ...any) ([]models.Query, error) {
	rows, err := conn.Query(ctx, `SELECT `+queryColumns+` FROM queries `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Query
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// Create inserts a query and fills in its id
func (r *QueryRepository) Create(ctx context.Context, q *models.Query) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	err := r.db.QueryRow(ctx, `
		INSERT INTO queries (track_id, request_id, student_id, approving_unit, remarks, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		q.TrackID, q.RequestID, q.StudentID, q.ApprovingUnit, q.Remarks, q.Status, q.CreatedAt,
	).Scan(&q.ID)
	return storeErr("create query", err)
}

// Update stores the resolution of a query
func (r *QueryRepository) Update(ctx context.Context, queryID int64, status models.QueryStatus, remarks string, resolvedAt time.Time) (*models.Query, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	q, err := scanQuery(r.db.QueryRow(ctx, `
		UPDATE queries SET status = $1, remarks = $2, resolved_at = $3
		WHERE id = $4
		RETURNING `+queryColumns,
		status, remarks, resolvedAt, queryID))
	if err != nil {
		return nil, storeErr("update query", err)
	}
	return q, nil
}

// GetByID retrieves a query by id
func (r *QueryRepository) GetByID(ctx context.Context, queryID int64) (*models.Query, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	q, err := scanQuery(r.db.QueryRow(ctx, `SELECT `+queryColumns+` FROM queries WHERE id = $1`, queryID))
	if err != nil {
		return nil, storeErr("get query", err)
	}
	return q, nil
}

// LockByID retrieves a query with SELECT ... FOR UPDATE
func (r *QueryRepository) LockByID(ctx context.Context, queryID int64) (*models.Query, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	q, err := scanQuery(r.db.QueryRow(ctx, `SELECT `+queryColumns+` FROM queries WHERE id = $1 FOR UPDATE`, queryID))
	if err != nil {
		return nil, storeErr("lock query", err)
	}
	return q, nil
}

// ListPendingByStudent returns the student's open queries, newest first
func (r *QueryRepository) ListPendingByStudent(ctx context.Context, studentID string) ([]models.Query, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	out, err := selectQueries(ctx, r.db, `WHERE student_id = $1 AND status = $2 ORDER BY created_at DESC, id DESC`,
		studentID, models.QueryPending)
	return out, storeErr("list pending queries", err)
}

// ListByUnit returns queries raised by a unit, newest first
func (r *QueryRepository) ListByUnit(ctx context.Context, unit models.UnitType, status *models.QueryStatus) ([]models.Query, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var (
		out []models.Query
		err error
	)
	if status != nil {
		out, err = selectQueries(ctx, r.db, `WHERE approving_unit = $1 AND status = $2 ORDER BY created_at DESC, id DESC`, unit, *status)
	} else {
		out, err = selectQueries(ctx, r.db, `WHERE approving_unit = $1 ORDER BY created_at DESC, id DESC`, unit)
	}
	return out, storeErr("list unit queries", err)
}
