package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/pkg/apperrors"
	"github.com/yigit/nodues/internal/pkg/dberrors"
)

const (
	constraintStudentEmail = "uq_students_email"
	constraintStudentPK    = "students_pkey"
)

var studentColumns = []string{
	"student_id", "name", "email", "course", "department_code", "hostel_code", "is_hosteler",
	"scholar_no", "branch", "degree", "mobile_no", "room_no", "cgpa", "aadhar_passport",
	"address", "bank_account_no", "ifsc_code", "profile_picture", "documents", "password_hash",
	"created_at", "updated_at",
}

// StudentRepository handles database operations for students
type StudentRepository struct {
	base
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(conn DBTX, timeout time.Duration) *StudentRepository {
	return &StudentRepository{base: newBase(conn, timeout)}
}

func scanStudent(row pgx.Row) (*models.Student, error) {
	var (
		s    models.Student
		docs []byte
	)
	err := row.Scan(
		&s.StudentID, &s.Name, &s.Email, &s.Course, &s.DepartmentCode, &s.HostelCode, &s.IsHosteler,
		&s.ScholarNo, &s.Branch, &s.Degree, &s.MobileNo, &s.RoomNo, &s.CGPA, &s.AadharPassport,
		&s.Address, &s.BankAccountNo, &s.IFSCCode, &s.ProfilePicture, &docs, &s.PasswordHash,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(docs) > 0 {
		if err := json.Unmarshal(docs, &s.Documents); err != nil {
			return nil, fmt.Errorf("decoding documents of %s: %w", s.StudentID, err)
		}
	}
	return &s, nil
}

func encodeDocuments(docs []models.Document) ([]byte, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	return json.Marshal(docs)
}

func (r *StudentRepository) findOne(ctx context.Context, op string, where squirrel.Sqlizer) (*models.Student, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query, args, err := r.sb.Select(studentColumns...).From("students").Where(where).ToSql()
	if err != nil {
		return nil, storeErr(op, err)
	}

	s, err := scanStudent(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, storeErr(op, err)
	}
	return s, nil
}

// FindByKey retrieves a student by student_id
func (r *StudentRepository) FindByKey(ctx context.Context, studentID string) (*models.Student, error) {
	return r.findOne(ctx, "find student", squirrel.Eq{"student_id": studentID})
}

// FindByEmail retrieves a student by email
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	return r.findOne(ctx, "find student by email", squirrel.Eq{"email": email})
}

// Upsert inserts the student or updates the stored profile. The stored
// profile picture and documents are kept when the new profile has none.
func (r *StudentRepository) Upsert(ctx context.Context, s *models.Student) (*models.Student, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	docs, err := encodeDocuments(s.Documents)
	if err != nil {
		return nil, storeErr("upsert student", err)
	}

	query := `
		INSERT INTO students (
			student_id, name, email, course, department_code, hostel_code, is_hosteler,
			scholar_no, branch, degree, mobile_no, room_no, cgpa, aadhar_passport,
			address, bank_account_no, ifsc_code, profile_picture, documents
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (student_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			course = EXCLUDED.course,
			department_code = EXCLUDED.department_code,
			hostel_code = EXCLUDED.hostel_code,
			is_hosteler = EXCLUDED.is_hosteler,
			scholar_no = EXCLUDED.scholar_no,
			branch = EXCLUDED.branch,
			degree = EXCLUDED.degree,
			mobile_no = EXCLUDED.mobile_no,
			room_no = EXCLUDED.room_no,
			cgpa = EXCLUDED.cgpa,
			aadhar_passport = EXCLUDED.aadhar_passport,
			address = EXCLUDED.address,
			bank_account_no = EXCLUDED.bank_account_no,
			ifsc_code = EXCLUDED.ifsc_code,
			profile_picture = COALESCE(EXCLUDED.profile_picture, students.profile_picture),
			documents = COALESCE(EXCLUDED.documents, students.documents),
			updated_at = NOW()
		RETURNING ` + joinColumns(studentColumns)

	out, err := scanStudent(r.db.QueryRow(ctx, query,
		s.StudentID, s.Name, s.Email, s.Course, s.DepartmentCode, s.HostelCode, s.IsHosteler,
		s.ScholarNo, s.Branch, s.Degree, s.MobileNo, s.RoomNo, s.CGPA, s.AadharPassport,
		s.Address, s.BankAccountNo, s.IFSCCode, s.ProfilePicture, docs,
	))
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, constraintStudentEmail) {
			return nil, apperrors.NewConflictError("email is already registered to another student").
				WithDetails(map[string]interface{}{"email": s.Email})
		}
		return nil, storeErr("upsert student", err)
	}
	return out, nil
}

// Register inserts a new student account
func (r *StudentRepository) Register(ctx context.Context, s *models.Student) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query, args, err := r.sb.Insert("students").
		Columns("student_id", "name", "email", "course", "department_code", "hostel_code", "is_hosteler", "password_hash").
		Values(s.StudentID, s.Name, s.Email, s.Course, s.DepartmentCode, s.HostelCode, s.IsHosteler, s.PasswordHash).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return storeErr("register student", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, constraintStudentEmail) ||
			dberrors.IsDuplicateConstraintError(err, constraintStudentPK) {
			return apperrors.NewConflictError("student id or email is already registered")
		}
		return storeErr("register student", err)
	}
	return nil
}

// SetPassword stores the password hash of a student registered through the form
func (r *StudentRepository) SetPassword(ctx context.Context, studentID, hash string) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`UPDATE students SET password_hash = $1, updated_at = NOW() WHERE student_id = $2 AND password_hash IS NULL`,
		hash, studentID)
	if err != nil {
		return storeErr("set student password", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewConflictError("student is already registered")
	}
	return nil
}
