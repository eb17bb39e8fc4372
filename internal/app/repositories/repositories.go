package repositories

import (
	"context"
	"time"

	"github.com/yigit/nodues/internal/app/models"
)

// Lookups that find nothing return an error wrapping apperrors.ErrNotFound.
// Any other persistence failure wraps apperrors.ErrStoreFailure.

// StudentRepository persists student profiles
type StudentRepository interface {
	FindByKey(ctx context.Context, studentID string) (*models.Student, error)
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	// Upsert inserts or updates the profile, leaving password_hash untouched.
	// An email owned by another student yields apperrors.ErrConflict.
	Upsert(ctx context.Context, student *models.Student) (*models.Student, error)
	// Register inserts a new student with a password hash. A duplicate id or
	// email yields apperrors.ErrConflict.
	Register(ctx context.Context, student *models.Student) error
	// SetPassword sets the hash of a student that has none yet
	SetPassword(ctx context.Context, studentID, hash string) error
}

// ReferenceRepository reads and seeds static department/hostel data
type ReferenceRepository interface {
	DepartmentExists(ctx context.Context, code string) (bool, error)
	HostelExists(ctx context.Context, code string) (bool, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
	ListHostels(ctx context.Context) ([]models.Hostel, error)
	EnsureDepartment(ctx context.Context, d models.Department) (bool, error)
	EnsureHostel(ctx context.Context, h models.Hostel) (bool, error)
}

// RequestRepository persists Requests. Loaded Requests carry their Tracks
// (with Queries) and Final.
type RequestRepository interface {
	// CreateWithTracks inserts the Request and its Tracks, filling in ids.
	// A second active Request for the student yields apperrors.ErrActiveRequestExists.
	CreateWithTracks(ctx context.Context, req *models.Request) error
	FindActiveByStudent(ctx context.Context, studentID string) (*models.Request, error)
	FindLatestByStudent(ctx context.Context, studentID string) (*models.Request, error)
	// FindLatestOpenByStudent returns the newest Request not in status Completed
	FindLatestOpenByStudent(ctx context.Context, studentID string) (*models.Request, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Request, error)
	// LockByID loads the Request and holds a row lock until the transaction ends
	LockByID(ctx context.Context, id int64) (*models.Request, error)
	GetByID(ctx context.Context, id int64) (*models.Request, error)
	UpdateStatus(ctx context.Context, id int64, status models.RequestStatus) error
	// List returns one page of Requests matching filter, newest first, and the total count
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error)
}

// TrackRepository persists Tracks
type TrackRepository interface {
	Update(ctx context.Context, trackID int64, status models.TrackStatus, updatedAt time.Time) (*models.Track, error)
	ListByRequest(ctx context.Context, requestID int64) ([]models.Track, error)
}

// QueryRepository persists Queries
type QueryRepository interface {
	Create(ctx context.Context, q *models.Query) error
	Update(ctx context.Context, queryID int64, status models.QueryStatus, remarks string, resolvedAt time.Time) (*models.Query, error)
	GetByID(ctx context.Context, queryID int64) (*models.Query, error)
	// LockByID loads the Query and holds a row lock until the transaction ends
	LockByID(ctx context.Context, queryID int64) (*models.Query, error)
	ListPendingByStudent(ctx context.Context, studentID string) ([]models.Query, error)
	ListByUnit(ctx context.Context, unit models.UnitType, status *models.QueryStatus) ([]models.Query, error)
}

// FinalRepository persists Final decisions
type FinalRepository interface {
	Create(ctx context.Context, requestID int64, status models.RequestStatus, issuedAt time.Time) (*models.Final, error)
	GetByRequest(ctx context.Context, requestID int64) (*models.Final, error)
}

// StaffRepository persists admin and unit officer accounts
type StaffRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Staff, error)
	// Ensure inserts the account when its email is unknown and reports whether it did
	Ensure(ctx context.Context, staff *models.Staff) (bool, error)
}

// Repositories holds all the repository instances bound to one connection or transaction
type Repositories struct {
	Students   StudentRepository
	References ReferenceRepository
	Requests   RequestRepository
	Tracks     TrackRepository
	Queries    QueryRepository
	Finals     FinalRepository
	Staff      StaffRepository
}

// TxFn runs inside a single store transaction
type TxFn func(ctx context.Context, repos *Repositories) error

// Store hands out repositories, either autocommit or bound to a transaction
type Store interface {
	// Repos returns repositories that run each call on its own
	Repos() *Repositories
	// WithTx runs fn in one transaction; fn's error rolls everything back
	WithTx(ctx context.Context, fn TxFn) error
	Ping(ctx context.Context) error
	Close()
}
