package memory

import (
	"context"
	"time"

	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/pkg/apperrors"
)

type studentRepository struct{ session }

func (r studentRepository) FindByKey(_ context.Context, studentID string) (*models.Student, error) {
	defer r.lock()()
	s, ok := r.state().students[studentID]
	if !ok {
		return nil, apperrors.NewNotFoundError("student not found")
	}
	return &s, nil
}

func (r studentRepository) FindByEmail(_ context.Context, email string) (*models.Student, error) {
	defer r.lock()()
	for _, s := range r.state().students {
		if s.Email == email {
			out := s
			return &out, nil
		}
	}
	return nil, apperrors.NewNotFoundError("student not found")
}

func (r studentRepository) emailTaken(email, studentID string) bool {
	for id, s := range r.state().students {
		if s.Email == email && id != studentID {
			return true
		}
	}
	return false
}

func (r studentRepository) Upsert(_ context.Context, s *models.Student) (*models.Student, error) {
	defer r.lock()()
	st := r.state()
	if r.emailTaken(s.Email, s.StudentID) {
		return nil, apperrors.NewConflictError("email is already registered to another student").
			WithDetails(map[string]interface{}{"email": s.Email})
	}

	now := time.Now().UTC()
	next := *s
	next.Documents = append([]models.Document(nil), s.Documents...)
	next.Department, next.Hostel = nil, nil
	if existing, ok := st.students[s.StudentID]; ok {
		next.PasswordHash = existing.PasswordHash
		next.CreatedAt = existing.CreatedAt
		if next.ProfilePicture == nil {
			next.ProfilePicture = existing.ProfilePicture
		}
		if len(next.Documents) == 0 {
			next.Documents = existing.Documents
		}
	} else {
		next.PasswordHash = nil
		next.CreatedAt = now
	}
	next.UpdatedAt = now
	st.students[s.StudentID] = next

	out := next
	return &out, nil
}

func (r studentRepository) Register(_ context.Context, s *models.Student) error {
	defer r.lock()()
	st := r.state()
	if _, ok := st.students[s.StudentID]; ok || r.emailTaken(s.Email, s.StudentID) {
		return apperrors.NewConflictError("student id or email is already registered")
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	st.students[s.StudentID] = *s
	return nil
}

func (r studentRepository) SetPassword(_ context.Context, studentID, hash string) error {
	defer r.lock()()
	st := r.state()
	s, ok := st.students[studentID]
	if !ok || s.PasswordHash != nil {
		return apperrors.NewConflictError("student is already registered")
	}
	s.PasswordHash = &hash
	s.UpdatedAt = time.Now().UTC()
	st.students[studentID] = s
	return nil
}

type referenceRepository struct{ session }

func (r referenceRepository) DepartmentExists(_ context.Context, code string) (bool, error) {
	defer r.lock()()
	_, ok := r.state().departments[code]
	return ok, nil
}

func (r referenceRepository) HostelExists(_ context.Context, code string) (bool, error) {
	defer r.lock()()
	_, ok := r.state().hostels[code]
	return ok, nil
}

func (r referenceRepository) ListDepartments(_ context.Context) ([]models.Department, error) {
	defer r.lock()()
	out := make([]models.Department, 0, len(r.state().departments))
	for _, d := range r.state().departments {
		out = append(out, d)
	}
	sortByCode(out, func(d models.Department) string { return d.Code })
	return out, nil
}

func (r referenceRepository) ListHostels(_ context.Context) ([]models.Hostel, error) {
	defer r.lock()()
	out := make([]models.Hostel, 0, len(r.state().hostels))
	for _, h := range r.state().hostels {
		out = append(out, h)
	}
	sortByCode(out, func(h models.Hostel) string { return h.Code })
	return out, nil
}

func (r referenceRepository) EnsureDepartment(_ context.Context, d models.Department) (bool, error) {
	defer r.lock()()
	if _, ok := r.state().departments[d.Code]; ok {
		return false, nil
	}
	r.state().departments[d.Code] = d
	return true, nil
}

func (r referenceRepository) EnsureHostel(_ context.Context, h models.Hostel) (bool, error) {
	defer r.lock()()
	if _, ok := r.state().hostels[h.Code]; ok {
		return false, nil
	}
	r.state().hostels[h.Code] = h
	return true, nil
}

type trackRepository struct{ session }

func (r trackRepository) Update(_ context.Context, trackID int64, status models.TrackStatus, updatedAt time.Time) (*models.Track, error) {
	defer r.lock()()
	st := r.state()
	t, ok := st.tracks[trackID]
	if !ok {
		return nil, apperrors.NewNotFoundError("track not found")
	}
	t.Status = status
	t.UpdatedAt = updatedAt
	st.tracks[trackID] = t
	return &t, nil
}

func (r trackRepository) ListByRequest(_ context.Context, requestID int64) ([]models.Track, error) {
	defer r.lock()()
	return r.state().load(models.Request{ID: requestID}).Tracks, nil
}

type queryRepository struct{ session }

func (r queryRepository) Create(_ context.Context, q *models.Query) error {
	defer r.lock()()
	st := r.state()
	track, ok := st.tracks[q.TrackID]
	if !ok {
		return apperrors.NewNotFoundError("track not found")
	}
	q.RequestID = track.RequestID
	st.nextQueryID++
	q.ID = st.nextQueryID
	st.queries[q.ID] = *q
	return nil
}

func (r queryRepository) Update(_ context.Context, queryID int64, status models.QueryStatus, remarks string, resolvedAt time.Time) (*models.Query, error) {
	defer r.lock()()
	st := r.state()
	q, ok := st.queries[queryID]
	if !ok {
		return nil, apperrors.NewNotFoundError("query not found")
	}
	q.Status = status
	q.Remarks = remarks
	q.ResolvedAt = &resolvedAt
	st.queries[queryID] = q
	return &q, nil
}

func (r queryRepository) GetByID(_ context.Context, queryID int64) (*models.Query, error) {
	defer r.lock()()
	q, ok := r.state().queries[queryID]
	if !ok {
		return nil, apperrors.NewNotFoundError("query not found")
	}
	return &q, nil
}

func (r queryRepository) LockByID(ctx context.Context, queryID int64) (*models.Query, error) {
	return r.GetByID(ctx, queryID)
}

func (r queryRepository) ListPendingByStudent(_ context.Context, studentID string) ([]models.Query, error) {
	defer r.lock()()
	var out []models.Query
	for _, q := range r.state().queries {
		if q.StudentID == studentID && q.Status == models.QueryPending {
			out = append(out, q)
		}
	}
	newestQueriesFirst(out)
	return out, nil
}

func (r queryRepository) ListByUnit(_ context.Context, unit models.UnitType, status *models.QueryStatus) ([]models.Query, error) {
	defer r.lock()()
	var out []models.Query
	for _, q := range r.state().queries {
		if q.ApprovingUnit != unit {
			continue
		}
		if status != nil && q.Status != *status {
			continue
		}
		out = append(out, q)
	}
	newestQueriesFirst(out)
	return out, nil
}

type finalRepository struct{ session }

func (r finalRepository) Create(_ context.Context, requestID int64, status models.RequestStatus, issuedAt time.Time) (*models.Final, error) {
	defer r.lock()()
	st := r.state()
	if _, ok := st.finals[requestID]; ok {
		return nil, apperrors.NewInvalidStateError("final decision already issued")
	}
	if _, ok := st.requests[requestID]; !ok {
		return nil, apperrors.NewNotFoundError("request not found")
	}
	f := models.Final{RequestID: requestID, FinalStatus: status, IssuedAt: issuedAt}
	st.finals[requestID] = f
	return &f, nil
}

func (r finalRepository) GetByRequest(_ context.Context, requestID int64) (*models.Final, error) {
	defer r.lock()()
	f, ok := r.state().finals[requestID]
	if !ok {
		return nil, apperrors.NewNotFoundError("final not found")
	}
	return &f, nil
}

type staffRepository struct{ session }

func (r staffRepository) FindByEmail(_ context.Context, email string) (*models.Staff, error) {
	defer r.lock()()
	s, ok := r.state().staff[email]
	if !ok {
		return nil, apperrors.NewNotFoundError("staff not found")
	}
	return &s, nil
}

func (r staffRepository) Ensure(_ context.Context, s *models.Staff) (bool, error) {
	defer r.lock()()
	st := r.state()
	if _, ok := st.staff[s.Email]; ok {
		return false, nil
	}
	st.nextStaffID++
	s.ID = st.nextStaffID
	s.CreatedAt = time.Now().UTC()
	st.staff[s.Email] = *s
	return true, nil
}
