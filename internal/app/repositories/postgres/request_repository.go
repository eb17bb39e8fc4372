package postgres

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/pkg/apperrors"
	"github.com/yigit/nodues/internal/pkg/dberrors"
)

const constraintOneActiveRequest = "uq_requests_one_active"

var requestColumns = []string{"r.id", "r.student_id", "r.submitted_at", "r.status", "r.reason"}

// terminalStatuses as strings for NOT IN filters
var terminalStatuses = []string{string(models.StatusRejected), string(models.StatusCompleted)}

// RequestRepository handles database operations for clearance requests
type RequestRepository struct {
	base
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(conn DBTX, timeout time.Duration) *RequestRepository {
	return &RequestRepository{base: newBase(conn, timeout)}
}

func scanRequest(row pgx.Row) (*models.Request, error) {
	var req models.Request
	if err := row.Scan(&req.ID, &req.StudentID, &req.SubmittedAt, &req.Status, &req.Reason); err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateWithTracks inserts the request and its tracks. Callers run it inside a
// transaction so a failed track insert leaves nothing behind.
func (r *RequestRepository) CreateWithTracks(ctx context.Context, req *models.Request) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	err := r.db.QueryRow(ctx,
		`INSERT INTO requests (student_id, submitted_at, status, reason) VALUES ($1, $2, $3, $4) RETURNING id`,
		req.StudentID, req.SubmittedAt, req.Status, req.Reason,
	).Scan(&req.ID)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, constraintOneActiveRequest) {
			return apperrors.NewCustomError(apperrors.ErrActiveRequestExists, "Active request already exists").
				WithDetails(map[string]interface{}{"studentId": req.StudentID})
		}
		return storeErr("create request", err)
	}

	insert := r.sb.Insert("tracks").Columns("request_id", "unit_type", "step_number", "status", "updated_at")
	for _, t := range req.Tracks {
		insert = insert.Values(req.ID, t.UnitType, t.StepNumber, t.Status, t.UpdatedAt)
	}
	query, args, err := insert.Suffix("RETURNING id, unit_type").ToSql()
	if err != nil {
		return storeErr("create tracks", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return storeErr("create tracks", err)
	}
	defer rows.Close()

	ids := make(map[models.UnitType]int64, len(req.Tracks))
	for rows.Next() {
		var (
			id   int64
			unit models.UnitType
		)
		if err := rows.Scan(&id, &unit); err != nil {
			return storeErr("create tracks", err)
		}
		ids[unit] = id
	}
	if err := rows.Err(); err != nil {
		return storeErr("create tracks", err)
	}

	for i := range req.Tracks {
		req.Tracks[i].ID = ids[req.Tracks[i].UnitType]
		req.Tracks[i].RequestID = req.ID
	}
	return nil
}

// selectRequests runs a request query and hydrates the results
func (r *RequestRepository) selectRequests(ctx context.Context, op string, q squirrel.SelectBuilder) ([]models.Request, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, storeErr(op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}

	var out []models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, storeErr(op, err)
		}
		out = append(out, *req)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}

	if err := hydrate(ctx, r.db, out); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

func (r *RequestRepository) selectOne(ctx context.Context, op string, q squirrel.SelectBuilder) (*models.Request, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	reqs, err := r.selectRequests(ctx, op, q.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, apperrors.NewNotFoundError(op + ": not found")
	}
	return &reqs[0], nil
}

func (r *RequestRepository) newest() squirrel.SelectBuilder {
	return r.sb.Select(requestColumns...).From("requests r").OrderBy("r.submitted_at DESC", "r.id DESC")
}

// FindActiveByStudent returns the student's request whose status is not terminal
func (r *RequestRepository) FindActiveByStudent(ctx context.Context, studentID string) (*models.Request, error) {
	return r.selectOne(ctx, "find active request", r.newest().Where(squirrel.And{
		squirrel.Eq{"r.student_id": studentID},
		squirrel.NotEq{"r.status": terminalStatuses},
	}))
}

// FindLatestByStudent returns the most recently submitted request
func (r *RequestRepository) FindLatestByStudent(ctx context.Context, studentID string) (*models.Request, error) {
	return r.selectOne(ctx, "find latest request", r.newest().Where(squirrel.Eq{"r.student_id": studentID}))
}

// FindLatestOpenByStudent returns the most recent request not yet Completed
func (r *RequestRepository) FindLatestOpenByStudent(ctx context.Context, studentID string) (*models.Request, error) {
	return r.selectOne(ctx, "find open request", r.newest().Where(squirrel.And{
		squirrel.Eq{"r.student_id": studentID},
		squirrel.NotEq{"r.status": string(models.StatusCompleted)},
	}))
}

// ListByStudent returns every request of the student, newest first
func (r *RequestRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Request, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	return r.selectRequests(ctx, "list requests", r.newest().Where(squirrel.Eq{"r.student_id": studentID}))
}

// LockByID loads a request with SELECT ... FOR UPDATE
func (r *RequestRepository) LockByID(ctx context.Context, id int64) (*models.Request, error) {
	return r.selectOne(ctx, "lock request", r.sb.Select(requestColumns...).
		From("requests r").
		Where(squirrel.Eq{"r.id": id}).
		Suffix("FOR UPDATE"))
}

// GetByID loads a request without locking
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	return r.selectOne(ctx, "get request", r.sb.Select(requestColumns...).From("requests r").Where(squirrel.Eq{"r.id": id}))
}

// UpdateStatus persists the derived status
func (r *RequestRepository) UpdateStatus(ctx context.Context, id int64, status models.RequestStatus) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE requests SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return storeErr("update request status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("request not found")
	}
	return nil
}

func listConditions(filter models.RequestFilter) squirrel.And {
	where := squirrel.And{}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"r.status": string(*filter.Status)})
	}
	if filter.ActiveOnly {
		where = append(where, squirrel.NotEq{"r.status": terminalStatuses})
	}
	if filter.Unit != nil {
		sub := squirrel.And{
			squirrel.Expr("t.request_id = r.id"),
			squirrel.Eq{"t.unit_type": string(*filter.Unit)},
		}
		if filter.TrackStatus != nil {
			sub = append(sub, squirrel.Eq{"t.status": string(*filter.TrackStatus)})
		}
		subSQL, subArgs, _ := sub.ToSql()
		where = append(where, squirrel.Expr("EXISTS (SELECT 1 FROM tracks t WHERE "+subSQL+")", subArgs...))
	}
	return where
}

// List returns one page of requests with their students, newest first
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	where := listConditions(filter)

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("requests r").Where(where).ToSql()
	if err != nil {
		return nil, 0, storeErr("count requests", err)
	}
	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, storeErr("count requests", err)
	}

	q := r.newest().Where(where)
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit)).Offset(uint64(max(filter.Offset, 0)))
	}
	reqs, err := r.selectRequests(ctx, "list requests", q)
	if err != nil {
		return nil, 0, err
	}
	if err := attachStudents(ctx, r.sb, r.db, reqs); err != nil {
		return nil, 0, storeErr("list requests", err)
	}
	return reqs, total, nil
}

// hydrate loads tracks, queries and finals for reqs in three round trips
func hydrate(ctx context.Context, conn DBTX, reqs []models.Request) error {
	if len(reqs) == 0 {
		return nil
	}

	ids := make([]int64, len(reqs))
	index := make(map[int64]int, len(reqs))
	for i, req := range reqs {
		ids[i] = req.ID
		index[req.ID] = i
	}

	rows, err := conn.Query(ctx,
		`SELECT id, request_id, unit_type, step_number, status, updated_at
		 FROM tracks WHERE request_id = ANY($1) ORDER BY request_id, step_number`, ids)
	if err != nil {
		return err
	}
	var trackIDs []int64
	for rows.Next() {
		var t models.Track
		if err := rows.Scan(&t.ID, &t.RequestID, &t.UnitType, &t.StepNumber, &t.Status, &t.UpdatedAt); err != nil {
			rows.Close()
			return err
		}
		i := index[t.RequestID]
		reqs[i].Tracks = append(reqs[i].Tracks, t)
		trackIDs = append(trackIDs, t.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(trackIDs) > 0 {
		queries, err := selectQueries(ctx, conn, `WHERE track_id = ANY($1) ORDER BY created_at, id`, trackIDs)
		if err != nil {
			return err
		}
		for _, q := range queries {
			for i := range reqs {
				for j := range reqs[i].Tracks {
					if reqs[i].Tracks[j].ID == q.TrackID {
						reqs[i].Tracks[j].Queries = append(reqs[i].Tracks[j].Queries, q)
					}
				}
			}
		}
	}

	rows, err = conn.Query(ctx, `SELECT request_id, final_status, issued_at FROM finals WHERE request_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var f models.Final
		if err := rows.Scan(&f.RequestID, &f.FinalStatus, &f.IssuedAt); err != nil {
			return err
		}
		final := f
		reqs[index[f.RequestID]].Final = &final
	}
	return rows.Err()
}

// attachStudents loads the owning student of each request
func attachStudents(ctx context.Context, sb squirrel.StatementBuilderType, conn DBTX, reqs []models.Request) error {
	if len(reqs) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var keys []string
	for _, req := range reqs {
		if !seen[req.StudentID] {
			seen[req.StudentID] = true
			keys = append(keys, req.StudentID)
		}
	}

	query, args, err := sb.Select(studentColumns...).From("students").Where(squirrel.Eq{"student_id": keys}).ToSql()
	if err != nil {
		return err
	}
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	students := make(map[string]*models.Student, len(keys))
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return err
		}
		students[s.StudentID] = s
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range reqs {
		reqs[i].Student = students[reqs[i].StudentID]
	}
	return nil
}
