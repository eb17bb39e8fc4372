// Package memory implements the repositories in process memory. It backs the
// memory database driver and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/app/repositories"
	"github.com/yigit/nodues/internal/pkg/apperrors"
)

type state struct {
	students    map[string]models.Student
	departments map[string]models.Department
	hostels     map[string]models.Hostel
	requests    map[int64]models.Request
	tracks      map[int64]models.Track
	queries     map[int64]models.Query
	finals      map[int64]models.Final
	staff       map[string]models.Staff

	nextRequestID int64
	nextTrackID   int64
	nextQueryID   int64
	nextStaffID   int64
}

func newState() state {
	return state{
		students:    map[string]models.Student{},
		departments: map[string]models.Department{},
		hostels:     map[string]models.Hostel{},
		requests:    map[int64]models.Request{},
		tracks:      map[int64]models.Track{},
		queries:     map[int64]models.Query{},
		finals:      map[int64]models.Final{},
		staff:       map[string]models.Staff{},
	}
}

// clone copies every map so a failed transaction can restore the previous state.
// Stored values never share mutable memory with callers, so a shallow value copy suffices
// except for student documents.
func (s state) clone() state {
	c := newState()
	for k, v := range s.students {
		v.Documents = append([]models.Document(nil), v.Documents...)
		c.students[k] = v
	}
	for k, v := range s.departments {
		c.departments[k] = v
	}
	for k, v := range s.hostels {
		c.hostels[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.tracks {
		c.tracks[k] = v
	}
	for k, v := range s.queries {
		c.queries[k] = v
	}
	for k, v := range s.finals {
		c.finals[k] = v
	}
	for k, v := range s.staff {
		c.staff[k] = v
	}
	c.nextRequestID = s.nextRequestID
	c.nextTrackID = s.nextTrackID
	c.nextQueryID = s.nextQueryID
	c.nextStaffID = s.nextStaffID
	return c
}

// Store is the in-memory implementation of repositories.Store. Transactions
// hold the store lock for their whole duration, so they are serialisable.
type Store struct {
	mu sync.Mutex
	st state
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{st: newState()}
}

// session binds repositories to the store, either inside a transaction
// (lock already held) or autocommit (lock taken per call).
type session struct {
	store *Store
	inTx  bool
}

func (s session) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.store.mu.Lock()
	return s.store.mu.Unlock
}

func (s session) state() *state {
	return &s.store.st
}

func (s *Store) bind(inTx bool) *repositories.Repositories {
	sess := session{store: s, inTx: inTx}
	return &repositories.Repositories{
		Students:   studentRepository{sess},
		References: referenceRepository{sess},
		Requests:   requestRepository{sess},
		Tracks:     trackRepository{sess},
		Queries:    queryRepository{sess},
		Finals:     finalRepository{sess},
		Staff:      staffRepository{sess},
	}
}

// Repos implements repositories.Store
func (s *Store) Repos() *repositories.Repositories {
	return s.bind(false)
}

// WithTx implements repositories.Store
func (s *Store) WithTx(ctx context.Context, fn repositories.TxFn) (err error) {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStoreFailure("begin transaction", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if r := recover(); r != nil {
			s.st = snapshot
			panic(r)
		}
	}()

	if err := fn(ctx, s.bind(true)); err != nil {
		s.st = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.st = snapshot
		return apperrors.NewStoreFailure("commit transaction", err)
	}
	return nil
}

// Ping implements repositories.Store
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close implements repositories.Store
func (s *Store) Close() {}

// load returns the request with its tracks, queries and final attached
func (st *state) load(r models.Request) models.Request {
	r.Tracks = nil
	for _, t := range st.tracks {
		if t.RequestID == r.ID {
			t.Queries = st.queriesOf(t.ID)
			r.Tracks = append(r.Tracks, t)
		}
	}
	sort.Slice(r.Tracks, func(i, j int) bool { return r.Tracks[i].StepNumber < r.Tracks[j].StepNumber })
	if f, ok := st.finals[r.ID]; ok {
		r.Final = &f
	} else {
		r.Final = nil
	}
	return r
}

func (st *state) queriesOf(trackID int64) []models.Query {
	var out []models.Query
	for _, q := range st.queries {
		if q.TrackID == trackID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// newestFirst sorts requests by submission time, newest first
func newestFirst(reqs []models.Request) {
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].SubmittedAt.Equal(reqs[j].SubmittedAt) {
			return reqs[i].ID > reqs[j].ID
		}
		return reqs[i].SubmittedAt.After(reqs[j].SubmittedAt)
	})
}

// newestQueriesFirst sorts queries by creation time, newest first
func newestQueriesFirst(qs []models.Query) {
	sort.Slice(qs, func(i, j int) bool {
		if qs[i].CreatedAt.Equal(qs[j].CreatedAt) {
			return qs[i].ID > qs[j].ID
		}
		return qs[i].CreatedAt.After(qs[j].CreatedAt)
	})
}
