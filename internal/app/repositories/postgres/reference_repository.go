package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/yigit/nodues/internal/app/models"
)

// ReferenceRepository handles department and hostel lookups
type ReferenceRepository struct {
	base
}

// NewReferenceRepository creates a new reference data repository
func NewReferenceRepository(conn DBTX, timeout time.Duration) *ReferenceRepository {
	return &ReferenceRepository{base: newBase(conn, timeout)}
}

func (r *ReferenceRepository) exists(ctx context.Context, op, table, code string) (bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, storeErr(op, err)
	}
	return exists, nil
}

// DepartmentExists checks a department code
func (r *ReferenceRepository) DepartmentExists(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, "check department", "departments", code)
}

// HostelExists checks a hostel code
func (r *ReferenceRepository) HostelExists(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, "check hostel", "hostels", code)
}

// ListDepartments retrieves all departments ordered by code
func (r *ReferenceRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT code, name, head FROM departments ORDER BY code`)
	if err != nil {
		return nil, storeErr("list departments", err)
	}
	defer rows.Close()

	var out []models.Department
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.Code, &d.Name, &d.Head); err != nil {
			return nil, storeErr("list departments", err)
		}
		out = append(out, d)
	}
	return out, storeErr("list departments", rows.Err())
}

// ListHostels retrieves all hostels ordered by code
func (r *ReferenceRepository) ListHostels(ctx context.Context) ([]models.Hostel, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT code, name, warden FROM hostels ORDER BY code`)
	if err != nil {
		return nil, storeErr("list hostels", err)
	}
	defer rows.Close()

	var out []models.Hostel
	for rows.Next() {
		var h models.Hostel
		if err := rows.Scan(&h.Code, &h.Name, &h.Warden); err != nil {
			return nil, storeErr("list hostels", err)
		}
		out = append(out, h)
	}
	return out, storeErr("list hostels", rows.Err())
}

// EnsureDepartment inserts a department unless its code exists
func (r *ReferenceRepository) EnsureDepartment(ctx context.Context, d models.Department) (bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`INSERT INTO departments (code, name, head) VALUES ($1, $2, $3) ON CONFLICT (code) DO NOTHING`,
		d.Code, d.Name, d.Head)
	if err != nil {
		return false, storeErr("ensure department", err)
	}
	return tag.RowsAffected() > 0, nil
}

// EnsureHostel inserts a hostel unless its code exists
func (r *ReferenceRepository) EnsureHostel(ctx context.Context, h models.Hostel) (bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`INSERT INTO hostels (code, name, warden) VALUES ($1, $2, $3) ON CONFLICT (code) DO NOTHING`,
		h.Code, h.Name, h.Warden)
	if err != nil {
		return false, storeErr("ensure hostel", err)
	}
	return tag.RowsAffected() > 0, nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
