package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/app/repositories/memory"
	"github.com/yigit/nodues/internal/pkg/apperrors"
	"github.com/yigit/nodues/internal/pkg/helpers"
	"golang.org/x/sync/errgroup"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.WorkflowEvent
}

func (p *recordingPublisher) Publish(e models.WorkflowEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) count(t models.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) last(t models.EventType) (models.WorkflowEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Type == t {
			return p.events[i], true
		}
	}
	return models.WorkflowEvent{}, false
}

type fixture struct {
	svc    *ClearanceService
	store  *memory.Store
	events *recordingPublisher

	mu    sync.Mutex
	clock time.Time
}

func newFixture(t *testing.T, policy models.Policy) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	_, err := store.Repos().References.EnsureDepartment(ctx, models.Department{Code: "CSE", Name: "Computer Science & Engineering"})
	require.NoError(t, err)
	_, err = store.Repos().References.EnsureHostel(ctx, models.Hostel{Code: "H1", Name: "Hostel 1"})
	require.NoError(t, err)

	f := &fixture{
		store:  store,
		events: &recordingPublisher{},
		clock:  time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	refs := NewReferenceService(store, time.Minute, zerolog.Nop())
	f.svc = NewClearanceService(store, refs, policy, zerolog.Nop(),
		WithEventPublisher(f.events),
		WithClock(func() time.Time {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.clock = f.clock.Add(time.Second)
			return f.clock
		}),
	)
	return f
}

func form(studentID string) models.SubmissionCommand {
	return models.SubmissionCommand{
		StudentID:      studentID,
		Name:           "Student " + studentID,
		Email:          studentID + "@uni.edu",
		Course:         "BTech",
		DepartmentCode: "CSE",
		IsHosteler:     true,
		HostelCode:     "H1",
		Reason:         "Graduation",
	}
}

func (f *fixture) submit(t *testing.T, studentID string) *models.Request {
	t.Helper()
	req, err := f.svc.Submit(context.Background(), form(studentID))
	require.NoError(t, err)
	return req
}

func TestSubmitOpensRequestWithSixPendingTracks(t *testing.T) {
	f := newFixture(t, models.DefaultPolicy())
	ctx := context.Background()

	req := f.submit(t, "S1")

	assert.NotZero(t, req.ID)
	assert.Equal(t, models.StatusPending, req.Status)
	require.Len(t, req.Tracks, models.TrackCount)
	for i, tr := range req.Tracks {
		assert.Equal(t, models.UnitOrder[i], tr.UnitType)
		assert.Equal(t, i+1, tr.StepNumber)
		assert.Equal(t, models.TrackPending, tr.Status)
	}
	require.NotNil(t, req.Reason)
	assert.Equal(t, "Graduation", *req.Reason)
	assert.Equal(t, 1, f.events.count(models.EventRequestSubmitted))

	latest, err := f.svc.GetLatest(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, req.ID, latest.ID)

	student, err := f.store.Repos().Students.FindByKey(ctx, "S1")
	require.NoError(t, err)
	require.NotNil(t, student.HostelCode)
	assert.Equal(t, "H1", *student.HostelCode)
}

func TestSubmitValidatesInput(t *testing.T) {
	f := newFixture(t, models.DefaultPolicy())
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		cmd := form("S1")
		cmd.Name = "  "
		_, err := f.svc.Submit(ctx, cmd)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("unknown department", func(t *testing.T) {
		cmd := form("S1")
		cmd.DepartmentCode = "XYZ"
		_, err := f.svc.Submit(ctx, cmd)
		require.ErrorIs(t, err, apperrors.ErrReferenceNotFound)
		assert.Equal(t, "XYZ", apperrors.DetailsOf(err)["department"])
	})

	t.Run("unknown hostel for hosteler", func(t *testing.T) {
		cmd := form("S1")
		cmd.HostelCode = "H9"
		_, err := f.svc.Submit(ctx, cmd)
		assert.ErrorIs(t, err, apperrors.ErrReferenceNotFound)
	})

	_, err := f.svc.GetLatest(ctx, "S1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "failed submissions must not leave a request behind")

	t.Run("hostel ignored for day scholars", func(t *testing.T) {
		cmd := form("S2")
		cmd.IsHosteler = false
		cmd.HostelCode = "H9"
		_, err := f.svc.Submit(ctx, cmd)
		require.NoError(t, err)

		student, err := f.store.Repos().Students.FindByKey(ctx, "S2")
		require.NoError(t, err)
		assert.Nil(t, student.HostelCode)
	})
}

func TestSubmitRejectsSecondActiveRequest(t *testing.T) {
	f := newFixture(t, models.DefaultPolicy())
	first := f.submit(t, "S1")

	_, err := f.svc.Submit(context.Background(), form("S1"))
	require.ErrorIs(t, err, apperrors.ErrActiveRequestExists)
	assert.EqualValues(t, first.ID, apperrors.DetailsOf(err)["requestId"])

	history, err := f.svc.History(context.Background(), "S1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestConcurrentSubmitsOpenOneRequest(t *testing.T) {
	f := newFixture(t, models.DefaultPolicy())

	var g errgroup.Group
	var mu sync.Mutex
	succeeded, conflicted := 0, 0
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := f.svc.Submit(context.Background(), form("S1"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperrors.ErrActiveRequestExists):
				conflicted++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 7, conflicted)
}

func TestApprovalsDriveStatusAndIssueFinalOnce(t *testing.T) {
	f := newFixture(t, models.DefaultPolicy())
	ctx := context.Background()
	req := f.submit(t, "S1")

	got, err := f.svc.ApproveTrack(ctx, req.ID, models.UnitLibrary)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Nil(t, got.Final)

	progress, err := f.svc.Progress(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressSummary{TotalUnits: 6, ApprovedUnits: 1, ProgressPercentage: 17, RemainingUnits: 5}, *progress)

	for _, unit := range models.UnitOrder {
		if unit == models.UnitLibrary {
			continue
		}
		got, err = f.svc.ApproveTrack(ctx, req.ID, unit)
		require.NoError(t, err)
	}
	assert.Equal(t, models.StatusReadyForCollection, got.Status)
	require.NotNil(t, got.Final)
	issuedAt := got.Final.IssuedAt
	assert.Equal(t, 1, f.events.count(models.EventFinalIssued))

	_, err = f.svc.ApproveTrack(ctx, req.ID, models.UnitLibrary)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	_, err = f.svc.ApproveAll(ctx, req.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	view, err := f.svc.FinalStatus(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReadyForCollection, view.Status)
	require.NotNil(t, view.Final)
	assert.True(t, issuedAt.Equal(view.Final.IssuedAt))
	assert.Equal(t, 1, f.events.count(models.EventFinalIssued))

	// Ready for Collection still blocks a new submission
	_, err = f.svc.Submit(ctx, form("S1"))
	assert.ErrorIs(t, err, apperrors.ErrActiveRequestExists)
}

func TestCompletedFinalStatusFreesStudent(t *testing.T) {
	f := newFixture(t, models.Policy{FinalStatus: models.StatusCompleted})
	ctx := context.Background()
	req := f.submit(t, "S1")

	got, err := f.svc.ApproveAll(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.Final)
	assert.Equal(t, models.StatusCompleted, got.Final.FinalStatus)
	assert.Equal(t, models.TrackCount, f.events.count(models.EventTrackApproved))

	// Completed requests drop out of the approval view
	_, err = f.svc.ApprovalStatus(ctx, "S1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	second := f.submit(t, "S1")
	assert.NotEqual(t, req.ID, second.ID)
}

func TestRejectionWithoutCascadeKeepsRequestOpen(t *testing.T) {
	f := newFixture(t, models.DefaultPolicy())
	ctx := context.Background()
	req := f.submit(t, "S1")

	got, err := f.svc.RejectTrack(ctx, req.ID, models.UnitAccounts)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, models.TrackRejected, got.Track(models.UnitAccounts).Status)

	_, err = f.svc.ApproveTrack(ctx, req.ID, models.UnitAccounts)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	// Bulk approval skips the rejected track, so no Final can be issued
	got, err = f.svc.ApproveAll(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Nil(t, got.Final)
}

func TestRejectionWithCascadeRejectsRequest(t *testing.T) {
	f := newFixture(t, models.Policy{CascadeRejection: true, FinalStatus: models.StatusReadyForCollection})
	ctx := context.Background()
	req := f.submit(t, "S1")

	_, err := f.svc.ApproveTrack(ctx, req.ID, models.UnitDepartment)
	require.NoError(t, err)
	got, err := f.svc.RejectTrack(ctx, req.ID, models.UnitSports)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)

	// A rejected request no longer blocks resubmission
	f.submit(t, "S1")
	history, err := f.svc.History(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.StatusPending, history[0].Status)
	assert.Equal(t, models.StatusRejected, history[1].Status)
}

func TestRejectAll(t *testing.T) {
	t.Run("without cascade", func(t *testing.T) {
		f := newFixture(t, models.DefaultPolicy())
		ctx := context.Background()

		untouched := f.submit(t, "S1")
		got, err := f.svc.RejectAll(ctx, untouched.ID)
		require.NoError(t, err)
		for _, tr := range got.Tracks {
			assert.Equal(t, models.TrackRejected, tr.Status, tr.UnitType)
		}
		assert.Equal(t, models.StatusPending, got.Status)
		assert.Nil(t, got.Final)

		// the request still counts as active, so the student stays blocked
		_, err = f.svc.Submit(ctx, form("S1"))
		assert.ErrorIs(t, err, apperrors.ErrActiveRequestExists)

		_, err = f.svc.RejectAll(ctx, untouched.ID)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "nothing left to move")

		partly := f.submit(t, "S2")
		_, err = f.svc.ApproveTrack(ctx, partly.ID, models.UnitLibrary)
		require.NoError(t, err)
		before := f.events.count(models.EventTrackRejected)

		got, err = f.svc.RejectAll(ctx, partly.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TrackApproved, got.Track(models.UnitLibrary).Status, "terminal tracks are skipped")
		assert.Equal(t, models.TrackRejected, got.Track(models.UnitHostel).Status)
		assert.Equal(t, models.StatusInProgress, got.Status)
		assert.Equal(t, models.TrackCount-1, f.events.count(models.EventTrackRejected)-before)
	})

	t.Run("with cascade", func(t *testing.T) {
		f := newFixture(t, models.Policy{CascadeRejection: true, FinalStatus: models.StatusReadyForCollection})
		ctx := context.Background()
		req := f.submit(t, "S1")

		got, err := f.svc.RejectAll(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, got.Status)
		for _, tr := range got.Tracks {
			assert.Equal(t, models.TrackRejected, tr.Status, tr.UnitType)
		}

		_, err = f.svc.RejectAll(ctx, req.ID)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

		again := f.submit(t, "S1")
		assert.NotEqual(t, req.ID, again.ID)
	})
}

func TestRejectedRequestAcceptsNoFurtherDecisions(t *testing.T) {
	f := newFixture(t, models.Policy{CascadeRejection: true, FinalStatus: models.StatusReadyForCollection})
	ctx := context.Background()
	req := f.submit(t, "S1")
	live := f.submit(t, "S2")

	_, err := f.svc.RejectTrack(ctx, req.ID, models.UnitAccounts)
	require.NoError(t, err)

	_, err = f.svc.ApproveTrack(ctx, req.ID, models.UnitLibrary)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	_, err = f.svc.RejectTrack(ctx, req.ID, models.UnitLibrary)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	_, err = f.svc.ApproveAll(ctx, req.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	_, err = f.svc.RaiseQuery(ctx, req.ID, models.UnitLibrary, "Return books")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	latest, err := f.svc.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TrackPending, latest.Track(models.UnitLibrary).Status)

	// dead requests leave the Pending queue but stay visible by track status
	queue, total, err := f.svc.UnitQueue(ctx, models.UnitLibrary, nil, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, queue, 1)
	assert.Equal(t, live.ID, queue[0].RequestID)

	rejected := models.TrackRejected
	_, total, err = f.svc.UnitQueue(ctx, models.UnitAccounts, &rejected, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestDecisionsOnUnknownRequestOrUnit(t *testing.T) {
	f := newFixture(t, models.DefaultPolicy())
	ctx := context.Background()
	req := f.submit(t, "S1")

	_, err := f.svc.ApproveTrack(ctx, 999, models.UnitLibrary)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.svc.ApproveTrack(ctx, req.ID, models.UnitType("Canteen"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.svc.RejectAll(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestQueryLifecycle(t *testing.T) {
	f := newFixture(t, models.DefaultPolicy())
	ctx := context.Background()
	req := f.submit(t, "S1")

	_, err := f.svc.RaiseQuery(ctx, req.ID, models.UnitLibrary, "   ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	q, err := f.svc.RaiseQuery(ctx, req.ID, models.UnitLibrary, "Return 2 overdue books")
	require.NoError(t, err)
	assert.Equal(t, models.QueryPending, q.Status)
	assert.Equal(t, "S1", q.StudentID)
	assert.Equal(t, req.ID, q.RequestID)

	statuses, err := f.svc.ApprovalStatus(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, statuses, models.TrackCount)
	assert.Equal(t, models.UnitStatus{Unit: models.UnitLibrary, Status: models.LabelQueryRaised}, statuses[2])
	assert.Equal(t, string(models.TrackPending), statuses[0].Status)

	latest, err := f.svc.GetLatest(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, models.TrackPending, latest.Track(models.UnitLibrary).Status, "raising a query leaves the track Pending")

	pending, err := f.svc.PendingQueries(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	queue, total, err := f.svc.UnitQueue(ctx, models.UnitLibrary, nil, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.LabelQueryRaised, queue[0].TrackStatus)
	assert.Equal(t, 1, queue[0].PendingQueries)

	_, err = f.svc.ResolveQuery(ctx, "S1", models.UnitHostel, q.ID, "done")
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "unit must match")
	_, err = f.svc.ResolveQuery(ctx, "S2", models.UnitLibrary, q.ID, "done")
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "student must match")
	_, err = f.svc.ResolveQuery(ctx, "S1", models.UnitLibrary, 999, "done")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	resolved, err := f.svc.ResolveQuery(ctx, "S1", models.UnitLibrary, q.ID, "Books returned")
	require.NoError(t, err)
	assert.Equal(t, models.QueryResolved, resolved.Status)
	assert.Equal(t, "Books returned", resolved.Remarks)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = f.svc.ResolveQuery(ctx, "S1", models.UnitLibrary, q.ID, "again")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	pending, err = f.svc.PendingQueries(ctx, "S1")
	require.NoError(t, err)
	assert.NotNil(t, pending)
	assert.Empty(t, pending)

	statuses, err = f.svc.ApprovalStatus(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, string(models.TrackPending), statuses[2].Status)

	resolvedOnly := models.QueryResolved
	unitQueries, err := f.svc.UnitQueries(ctx, models.UnitLibrary, &resolvedOnly)
	require.NoError(t, err)
	assert.Len(t, unitQueries, 1)

	assert.Equal(t, 1, f.events.count(models.EventQueryRaised))
	assert.Equal(t, 1, f.events.count(models.EventQueryResolved))
	ev, ok := f.events.last(models.EventQueryResolved)
	require.True(t, ok)
	assert.Equal(t, req.ID, ev.RequestID)
	assert.Equal(t, q.ID, ev.QueryID)
	assert.Equal(t, req.ID, resolved.RequestID)
}

func TestRaiseQueryOnDecidedTrack(t *testing.T) {
	f := newFixture(t, models.DefaultPolicy())
	ctx := context.Background()
	req := f.submit(t, "S1")

	_, err := f.svc.ApproveTrack(ctx, req.ID, models.UnitProctor)
	require.NoError(t, err)
	_, err = f.svc.RaiseQuery(ctx, req.ID, models.UnitProctor, "Too late")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestReadsWithoutRequest(t *testing.T) {
	f := newFixture(t, models.DefaultPolicy())
	ctx := context.Background()

	_, err := f.svc.GetLatest(ctx, "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.svc.Progress(ctx, "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.svc.FinalStatus(ctx, "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.svc.ApprovalStatus(ctx, "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	history, err := f.svc.History(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, history)
	pending, err := f.svc.PendingQueries(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestUnitQueueAndAdminListing(t *testing.T) {
	f := newFixture(t, models.DefaultPolicy())
	ctx := context.Background()
	r1 := f.submit(t, "S1")
	r2 := f.submit(t, "S2")

	_, err := f.svc.ApproveTrack(ctx, r1.ID, models.UnitLibrary)
	require.NoError(t, err)

	pendingQueue, total, err := f.svc.UnitQueue(ctx, models.UnitLibrary, nil, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, r2.ID, pendingQueue[0].RequestID)
	assert.Equal(t, "Student S2", pendingQueue[0].StudentName)

	approved := models.TrackApproved
	approvedQueue, total, err := f.svc.UnitQueue(ctx, models.UnitLibrary, &approved, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, r1.ID, approvedQueue[0].RequestID)

	bogus := models.TrackStatus("Lost")
	_, _, err = f.svc.UnitQueue(ctx, models.UnitLibrary, &bogus, 0, 10)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	all, total, err := f.svc.ListRequests(ctx, nil, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, all, 1)
	assert.Equal(t, r2.ID, all[0].ID, "newest first")

	inProgress := models.StatusInProgress
	filtered, total, err := f.svc.ListRequests(ctx, &inProgress, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, r1.ID, filtered[0].ID)

	badStatus := models.RequestStatus("Lost")
	_, _, err = f.svc.ListRequests(ctx, &badStatus, 0, 10)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// a huge page number lands past the end instead of overflowing
	offset, limit := helpers.CalculateOffsetLimit((1<<62)+1, 10)
	assert.NotPanics(t, func() {
		page, total, err := f.svc.ListRequests(ctx, nil, offset, limit)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Empty(t, page)
	})
	assert.NotPanics(t, func() {
		_, _, err := f.svc.UnitQueue(ctx, models.UnitHostel, nil, -10, limit)
		require.NoError(t, err)
	})
}

func TestCancelledContextFailsAsStoreFailure(t *testing.T) {
	f := newFixture(t, models.DefaultPolicy())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Submit(ctx, form("S1"))
	assert.ErrorIs(t, err, apperrors.ErrStoreFailure)
}
