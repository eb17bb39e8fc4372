package memory

import (
	"context"
	"sort"

	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/pkg/apperrors"
)

type requestRepository struct{ session }

func (r requestRepository) CreateWithTracks(_ context.Context, req *models.Request) error {
	defer r.lock()()
	st := r.state()

	// Mirrors the partial unique index of the SQL schema
	for _, existing := range st.requests {
		if existing.StudentID == req.StudentID && existing.Status.Active() && req.Status.Active() {
			return apperrors.NewCustomError(apperrors.ErrActiveRequestExists, "Active request already exists").
				WithDetails(map[string]interface{}{"studentId": req.StudentID})
		}
	}
	if _, ok := st.students[req.StudentID]; !ok {
		return apperrors.NewNotFoundError("student not found")
	}

	st.nextRequestID++
	req.ID = st.nextRequestID
	stored := *req
	stored.Tracks, stored.Final, stored.Student = nil, nil, nil
	st.requests[req.ID] = stored

	for i := range req.Tracks {
		st.nextTrackID++
		req.Tracks[i].ID = st.nextTrackID
		req.Tracks[i].RequestID = req.ID
		t := req.Tracks[i]
		t.Queries = nil
		st.tracks[t.ID] = t
	}
	return nil
}

// find returns the newest request of the student matching keep
func (r requestRepository) find(studentID string, keep func(models.Request) bool) (*models.Request, error) {
	defer r.lock()()
	st := r.state()

	var matches []models.Request
	for _, req := range st.requests {
		if req.StudentID == studentID && keep(req) {
			matches = append(matches, req)
		}
	}
	if len(matches) == 0 {
		return nil, apperrors.NewNotFoundError("request not found")
	}
	newestFirst(matches)
	out := st.load(matches[0])
	return &out, nil
}

func (r requestRepository) FindActiveByStudent(_ context.Context, studentID string) (*models.Request, error) {
	return r.find(studentID, func(req models.Request) bool { return req.Status.Active() })
}

func (r requestRepository) FindLatestByStudent(_ context.Context, studentID string) (*models.Request, error) {
	return r.find(studentID, func(models.Request) bool { return true })
}

func (r requestRepository) FindLatestOpenByStudent(_ context.Context, studentID string) (*models.Request, error) {
	return r.find(studentID, func(req models.Request) bool { return req.Status != models.StatusCompleted })
}

func (r requestRepository) ListByStudent(_ context.Context, studentID string) ([]models.Request, error) {
	defer r.lock()()
	st := r.state()

	var out []models.Request
	for _, req := range st.requests {
		if req.StudentID == studentID {
			out = append(out, st.load(req))
		}
	}
	newestFirst(out)
	return out, nil
}

func (r requestRepository) GetByID(_ context.Context, id int64) (*models.Request, error) {
	defer r.lock()()
	st := r.state()
	req, ok := st.requests[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("request not found")
	}
	out := st.load(req)
	return &out, nil
}

// LockByID is GetByID: the transaction already holds the store lock
func (r requestRepository) LockByID(ctx context.Context, id int64) (*models.Request, error) {
	return r.GetByID(ctx, id)
}

func (r requestRepository) UpdateStatus(_ context.Context, id int64, status models.RequestStatus) error {
	defer r.lock()()
	st := r.state()
	req, ok := st.requests[id]
	if !ok {
		return apperrors.NewNotFoundError("request not found")
	}
	req.Status = status
	st.requests[id] = req
	return nil
}

func (r requestRepository) List(_ context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	defer r.lock()()
	st := r.state()

	var matches []models.Request
	for _, req := range st.requests {
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.ActiveOnly && !req.Status.Active() {
			continue
		}
		loaded := st.load(req)
		if filter.Unit != nil {
			t := loaded.Track(*filter.Unit)
			if t == nil || (filter.TrackStatus != nil && t.Status != *filter.TrackStatus) {
				continue
			}
		}
		if s, ok := st.students[req.StudentID]; ok {
			loaded.Student = &s
		}
		matches = append(matches, loaded)
	}
	newestFirst(matches)

	total := len(matches)
	if filter.Limit > 0 {
		start := min(max(filter.Offset, 0), total)
		end := min(start+filter.Limit, total)
		matches = matches[start:end]
	}
	return matches, total, nil
}

func sortByCode[T any](items []T, code func(T) string) {
	sort.Slice(items, func(i, j int) bool { return code(items[i]) < code(items[j]) })
}
