package postgres

import (
	"context"
	"time"

	"github.com/yigit/nodues/internal/app/models"
)

// StaffRepository handles database operations for admin and unit officer accounts
type StaffRepository struct {
	base
}

// NewStaffRepository creates a new staff repository
func NewStaffRepository(conn DBTX, timeout time.Duration) *StaffRepository {
	return &StaffRepository{base: newBase(conn, timeout)}
}

// FindByEmail retrieves a staff account by email
func (r *StaffRepository) FindByEmail(ctx context.Context, email string) (*models.Staff, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var s models.Staff
	err := r.db.QueryRow(ctx, `
		SELECT id, email, name, role, unit_type, password_hash, created_at
		FROM staff WHERE email = $1`, email,
	).Scan(&s.ID, &s.Email, &s.Name, &s.Role, &s.UnitType, &s.PasswordHash, &s.CreatedAt)
	if err != nil {
		return nil, storeErr("find staff", err)
	}
	return &s, nil
}

// Ensure inserts the account unless its email is already present
func (r *StaffRepository) Ensure(ctx context.Context, s *models.Staff) (bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query, args, err := r.sb.Insert("staff").
		Columns("email", "name", "role", "unit_type", "password_hash").
		Values(s.Email, s.Name, s.Role, s.UnitType, s.PasswordHash).
		Suffix("ON CONFLICT (email) DO NOTHING").
		ToSql()
	if err != nil {
		return false, storeErr("ensure staff", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, storeErr("ensure staff", err)
	}
	return tag.RowsAffected() > 0, nil
}
