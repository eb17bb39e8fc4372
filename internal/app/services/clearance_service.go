package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/app/repositories"
	"github.com/yigit/nodues/internal/pkg/apperrors"
	"github.com/yigit/nodues/internal/pkg/retry"
	"github.com/yigit/nodues/internal/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// EventPublisher receives workflow events once their transaction has committed
type EventPublisher interface {
	Publish(event models.WorkflowEvent)
}

// ReferenceLookup answers whether department and hostel codes exist
type ReferenceLookup interface {
	DepartmentExists(ctx context.Context, code string) (bool, error)
	HostelExists(ctx context.Context, code string) (bool, error)
}

type noopPublisher struct{}

func (noopPublisher) Publish(models.WorkflowEvent) {}

// ClearanceService is the workflow engine: submissions, per-unit decisions,
// the query/reply exchange and status aggregation.
type ClearanceService struct {
	store      repositories.Store
	references ReferenceLookup
	events     EventPublisher
	policy     models.Policy
	reads      retry.Policy
	now        func() time.Time
	logger     zerolog.Logger
}

// ClearanceOption customises a ClearanceService
type ClearanceOption func(*ClearanceService)

// WithEventPublisher sets where committed workflow events go
func WithEventPublisher(p EventPublisher) ClearanceOption {
	return func(s *ClearanceService) {
		if p != nil {
			s.events = p
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) ClearanceOption {
	return func(s *ClearanceService) { s.now = now }
}

// WithReadRetry sets the retry policy for pure reads
func WithReadRetry(p retry.Policy) ClearanceOption {
	return func(s *ClearanceService) { s.reads = p }
}

// NewClearanceService creates the workflow engine
func NewClearanceService(
	store repositories.Store,
	references ReferenceLookup,
	policy models.Policy,
	logger zerolog.Logger,
	opts ...ClearanceOption,
) *ClearanceService {
	if policy.FinalStatus == "" {
		policy.FinalStatus = models.StatusReadyForCollection
	}
	s := &ClearanceService{
		store:      store,
		references: references,
		events:     noopPublisher{},
		policy:     policy,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger.With().Str("component", "clearance").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the aggregation policy in effect
func (s *ClearanceService) Policy() models.Policy {
	return s.policy
}

// --- Submission ---

// Submit validates the form, upserts the student profile and opens a new
// Request with six Pending Tracks.
func (s *ClearanceService) Submit(ctx context.Context, cmd models.SubmissionCommand) (req *models.Request, err error) {
	ctx, span := telemetry.Start(ctx, "submit", attribute.String("student.id", cmd.StudentID))
	defer func() { telemetry.End(span, err) }()

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, cmd); err != nil {
		return nil, err
	}

	now := s.now()
	var created models.Request
	err = s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		student, err := repos.Students.FindByKey(ctx, strings.TrimSpace(cmd.StudentID))
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				return err
			}
			student = &models.Student{}
		}
		cmd.ApplyTo(student)
		student, err = repos.Students.Upsert(ctx, student)
		if err != nil {
			return err
		}

		// The upsert holds the student row, so this check and the insert
		// below cannot interleave with another submission of the same student.
		active, err := repos.Requests.FindActiveByStudent(ctx, student.StudentID)
		switch {
		case err == nil:
			return apperrors.NewCustomError(apperrors.ErrActiveRequestExists, "An active no-dues request already exists").
				WithDetails(map[string]interface{}{"studentId": student.StudentID, "requestId": active.ID, "status": active.Status})
		case !errors.Is(err, apperrors.ErrNotFound):
			return err
		}

		created = models.Request{
			StudentID:   student.StudentID,
			SubmittedAt: now,
			Status:      models.StatusPending,
			Tracks:      models.NewTracks(now),
		}
		if reason := strings.TrimSpace(cmd.Reason); reason != "" {
			created.Reason = &reason
		}
		if err := repos.Requests.CreateWithTracks(ctx, &created); err != nil {
			return err
		}
		created.Student = student
		return nil
	})
	if err != nil {
		s.logFailure(err, "submit", zerolog.Dict().Str("studentId", cmd.StudentID))
		return nil, err
	}

	s.logger.Info().Str("studentId", created.StudentID).Int64("requestId", created.ID).Msg("No-dues request submitted")
	s.events.Publish(models.WorkflowEvent{
		Type:      models.EventRequestSubmitted,
		StudentID: created.StudentID,
		RequestID: created.ID,
		Status:    created.Status,
		At:        now,
	})
	return &created, nil
}

func (s *ClearanceService) checkReferences(ctx context.Context, cmd models.SubmissionCommand) error {
	if code := strings.TrimSpace(cmd.DepartmentCode); code != "" {
		ok, err := s.references.DepartmentExists(ctx, code)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewReferenceNotFoundError("department", code)
		}
	}
	if code := cmd.EffectiveHostel(); code != "" {
		ok, err := s.references.HostelExists(ctx, code)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewReferenceNotFoundError("hostel", code)
		}
	}
	return nil
}

// --- Track decisions ---

// ApproveTrack approves the unit's Track of a Request
func (s *ClearanceService) ApproveTrack(ctx context.Context, requestID int64, unit models.UnitType) (*models.Request, error) {
	return s.decide(ctx, "approve", requestID, unit, models.EventTrackApproved, (*models.Track).Approve)
}

// RejectTrack rejects the unit's Track of a Request
func (s *ClearanceService) RejectTrack(ctx context.Context, requestID int64, unit models.UnitType) (*models.Request, error) {
	return s.decide(ctx, "reject", requestID, unit, models.EventTrackRejected, (*models.Track).Reject)
}

func (s *ClearanceService) decide(
	ctx context.Context,
	op string,
	requestID int64,
	unit models.UnitType,
	eventType models.EventType,
	transition func(*models.Track, time.Time) error,
) (out *models.Request, err error) {
	ctx, span := telemetry.Start(ctx, op,
		attribute.Int64("request.id", requestID),
		attribute.String("unit", string(unit)),
	)
	defer func() { telemetry.End(span, err) }()

	if !unit.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown unit type %q", unit))
	}

	now := s.now()
	var events []models.WorkflowEvent
	var req *models.Request
	err = s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		events = events[:0]
		var err error
		req, err = repos.Requests.LockByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := decidable(req); err != nil {
			return err
		}
		track := req.Track(unit)
		if track == nil {
			return apperrors.NewNotFoundError(fmt.Sprintf("request %d has no %s track", requestID, unit))
		}
		if err := transition(track, now); err != nil {
			return err
		}
		if _, err := repos.Tracks.Update(ctx, track.ID, track.Status, track.UpdatedAt); err != nil {
			return err
		}
		events = append(events, models.WorkflowEvent{
			Type:      eventType,
			StudentID: req.StudentID,
			RequestID: req.ID,
			Unit:      unit,
			At:        now,
		})

		finalEvents, err := s.settle(ctx, repos, req, now)
		events = append(events, finalEvents...)
		return err
	})
	if err != nil {
		s.logFailure(err, op, zerolog.Dict().Int64("requestId", requestID).Str("unit", string(unit)))
		return nil, err
	}

	s.logger.Info().
		Int64("requestId", req.ID).
		Str("unit", string(unit)).
		Str("status", string(req.Status)).
		Msgf("Track %s", op)
	s.publish(events, req.Status)
	return req, nil
}

// ApproveAll approves every Pending Track of a Request. Tracks that are
// already terminal are skipped; the call fails only when none could move.
func (s *ClearanceService) ApproveAll(ctx context.Context, requestID int64) (*models.Request, error) {
	return s.bulk(ctx, "approve_all", requestID, models.EventTrackApproved, (*models.Track).Approve)
}

// RejectAll rejects every Pending Track of a Request. Without cascading
// rejection the Request keeps its Pending or In-Progress status, so it still
// counts as the student's active Request and blocks a new submission.
func (s *ClearanceService) RejectAll(ctx context.Context, requestID int64) (*models.Request, error) {
	return s.bulk(ctx, "reject_all", requestID, models.EventTrackRejected, (*models.Track).Reject)
}

func (s *ClearanceService) bulk(
	ctx context.Context,
	op string,
	requestID int64,
	eventType models.EventType,
	transition func(*models.Track, time.Time) error,
) (out *models.Request, err error) {
	ctx, span := telemetry.Start(ctx, op, attribute.Int64("request.id", requestID))
	defer func() { telemetry.End(span, err) }()

	now := s.now()
	var events []models.WorkflowEvent
	var req *models.Request
	err = s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		events = events[:0]
		var err error
		req, err = repos.Requests.LockByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := decidable(req); err != nil {
			return err
		}

		moved := 0
		for i := range req.Tracks {
			track := &req.Tracks[i]
			if track.Status.Terminal() {
				continue
			}
			if err := transition(track, now); err != nil {
				return err
			}
			if _, err := repos.Tracks.Update(ctx, track.ID, track.Status, track.UpdatedAt); err != nil {
				return err
			}
			moved++
			events = append(events, models.WorkflowEvent{
				Type:      eventType,
				StudentID: req.StudentID,
				RequestID: req.ID,
				Unit:      track.UnitType,
				At:        now,
			})
		}
		if moved == 0 {
			return apperrors.NewInvalidTransitionError("no pending track left on this request").
				WithDetails(map[string]interface{}{"requestId": requestID})
		}

		finalEvents, err := s.settle(ctx, repos, req, now)
		events = append(events, finalEvents...)
		return err
	})
	if err != nil {
		s.logFailure(err, op, zerolog.Dict().Int64("requestId", requestID))
		return nil, err
	}

	s.logger.Info().Int64("requestId", req.ID).Str("status", string(req.Status)).Msgf("Bulk %s applied", op)
	s.publish(events, req.Status)
	return req, nil
}

// decidable rejects decisions on a Request that is already Rejected or Completed
func decidable(req *models.Request) error {
	if req.Status.Active() {
		return nil
	}
	return apperrors.NewInvalidTransitionError(fmt.Sprintf("request %d is already %s", req.ID, req.Status)).
		WithDetails(map[string]interface{}{"requestId": req.ID, "status": req.Status})
}

// settle issues the Final once every Track is Approved and persists the
// derived status. The caller holds the Request lock.
func (s *ClearanceService) settle(ctx context.Context, repos *repositories.Repositories, req *models.Request, now time.Time) ([]models.WorkflowEvent, error) {
	var events []models.WorkflowEvent
	if req.Final == nil && models.AllApproved(req.Tracks) {
		final, err := repos.Finals.Create(ctx, req.ID, s.policy.FinalStatus, now)
		if err != nil {
			return nil, err
		}
		req.Final = final
		events = append(events, models.WorkflowEvent{
			Type:      models.EventFinalIssued,
			StudentID: req.StudentID,
			RequestID: req.ID,
			At:        now,
		})
	}

	status := models.DeriveStatus(models.TrackStatuses(req.Tracks), req.Final, s.policy)
	if status != req.Status {
		if err := repos.Requests.UpdateStatus(ctx, req.ID, status); err != nil {
			return nil, err
		}
		req.Status = status
	}
	return events, nil
}

// --- Queries ---

// RaiseQuery opens a Query on the unit's Pending Track. The Track status is
// left unchanged.
func (s *ClearanceService) RaiseQuery(ctx context.Context, requestID int64, unit models.UnitType, message string) (out *models.Query, err error) {
	ctx, span := telemetry.Start(ctx, "raise_query",
		attribute.Int64("request.id", requestID),
		attribute.String("unit", string(unit)),
	)
	defer func() { telemetry.End(span, err) }()

	if !unit.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown unit type %q", unit))
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("query message is required")
	}

	now := s.now()
	var query models.Query
	var status models.RequestStatus
	err = s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		req, err := repos.Requests.LockByID(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.Status.Active() {
			return apperrors.NewInvalidStateError(fmt.Sprintf("request %d is already %s", requestID, req.Status)).
				WithDetails(map[string]interface{}{"requestId": requestID, "status": req.Status})
		}
		track := req.Track(unit)
		if track == nil {
			return apperrors.NewNotFoundError(fmt.Sprintf("request %d has no %s track", requestID, unit))
		}
		if track.Status.Terminal() {
			return apperrors.NewInvalidStateError(fmt.Sprintf("%s track is already %s", unit, track.Status)).
				WithDetails(map[string]interface{}{"trackId": track.ID, "status": track.Status})
		}
		query = models.Query{
			TrackID:       track.ID,
			RequestID:     req.ID,
			StudentID:     req.StudentID,
			ApprovingUnit: unit,
			Remarks:       message,
			Status:        models.QueryPending,
			CreatedAt:     now,
		}
		status = req.Status
		return repos.Queries.Create(ctx, &query)
	})
	if err != nil {
		s.logFailure(err, "raise_query", zerolog.Dict().Int64("requestId", requestID).Str("unit", string(unit)))
		return nil, err
	}

	s.logger.Info().Int64("queryId", query.ID).Str("studentId", query.StudentID).Str("unit", string(unit)).Msg("Query raised")
	s.events.Publish(models.WorkflowEvent{
		Type:      models.EventQueryRaised,
		StudentID: query.StudentID,
		RequestID: requestID,
		Unit:      unit,
		QueryID:   query.ID,
		Status:    status,
		At:        now,
	})
	return &query, nil
}

// ResolveQuery records the student's response to a Pending Query. The query
// must belong to the given student and unit.
func (s *ClearanceService) ResolveQuery(ctx context.Context, studentID string, unit models.UnitType, queryID int64, response string) (out *models.Query, err error) {
	ctx, span := telemetry.Start(ctx, "resolve_query",
		attribute.String("student.id", studentID),
		attribute.String("unit", string(unit)),
		attribute.Int64("query.id", queryID),
	)
	defer func() { telemetry.End(span, err) }()

	response = strings.TrimSpace(response)
	if response == "" {
		return nil, apperrors.NewValidationError("response is required")
	}

	now := s.now()
	var resolved *models.Query
	err = s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		q, err := repos.Queries.LockByID(ctx, queryID)
		if err != nil {
			return err
		}
		if q.StudentID != studentID || q.ApprovingUnit != unit {
			return apperrors.NewNotFoundError(fmt.Sprintf("query %d not found for student %s and unit %s", queryID, studentID, unit))
		}
		if err := q.Resolve(response, now); err != nil {
			return err
		}
		resolved, err = repos.Queries.Update(ctx, q.ID, q.Status, q.Remarks, *q.ResolvedAt)
		return err
	})
	if err != nil {
		s.logFailure(err, "resolve_query", zerolog.Dict().Int64("queryId", queryID).Str("studentId", studentID))
		return nil, err
	}

	s.logger.Info().Int64("queryId", queryID).Str("studentId", studentID).Str("unit", string(unit)).Msg("Query resolved")
	s.events.Publish(models.WorkflowEvent{
		Type:      models.EventQueryResolved,
		StudentID: studentID,
		RequestID: resolved.RequestID,
		Unit:      unit,
		QueryID:   queryID,
		At:        now,
	})
	return resolved, nil
}

// --- Reads ---

// GetLatest returns the student's newest Request with Tracks, Queries and Final
func (s *ClearanceService) GetLatest(ctx context.Context, studentID string) (*models.Request, error) {
	ctx, span := telemetry.Start(ctx, "get_latest", attribute.String("student.id", studentID))
	req, err := retry.Read(ctx, s.reads, func(ctx context.Context) (*models.Request, error) {
		return s.store.Repos().Requests.FindLatestByStudent(ctx, studentID)
	})
	telemetry.End(span, err)
	return req, err
}

// GetRequest returns one Request by id
func (s *ClearanceService) GetRequest(ctx context.Context, requestID int64) (*models.Request, error) {
	ctx, span := telemetry.Start(ctx, "get_request", attribute.Int64("request.id", requestID))
	req, err := retry.Read(ctx, s.reads, func(ctx context.Context) (*models.Request, error) {
		return s.store.Repos().Requests.GetByID(ctx, requestID)
	})
	telemetry.End(span, err)
	return req, err
}

// History lists every Request of the student, newest first
func (s *ClearanceService) History(ctx context.Context, studentID string) ([]models.RequestSummary, error) {
	ctx, span := telemetry.Start(ctx, "history", attribute.String("student.id", studentID))
	reqs, err := retry.Read(ctx, s.reads, func(ctx context.Context) ([]models.Request, error) {
		return s.store.Repos().Requests.ListByStudent(ctx, studentID)
	})
	telemetry.End(span, err)
	if err != nil {
		return nil, err
	}

	out := make([]models.RequestSummary, 0, len(reqs))
	for i := range reqs {
		out = append(out, reqs[i].Summarize())
	}
	return out, nil
}

// ApprovalStatus returns the per-unit view of the student's latest Request
// that is not Completed. A Pending Track with an open Query shows as QueryRaised.
func (s *ClearanceService) ApprovalStatus(ctx context.Context, studentID string) ([]models.UnitStatus, error) {
	ctx, span := telemetry.Start(ctx, "approval_status", attribute.String("student.id", studentID))
	req, err := retry.Read(ctx, s.reads, func(ctx context.Context) (*models.Request, error) {
		return s.store.Repos().Requests.FindLatestOpenByStudent(ctx, studentID)
	})
	telemetry.End(span, err)
	if err != nil {
		return nil, err
	}
	return models.UnitStatuses(req.Tracks), nil
}

// PendingQueries lists the student's unresolved Queries, newest first
func (s *ClearanceService) PendingQueries(ctx context.Context, studentID string) ([]models.Query, error) {
	ctx, span := telemetry.Start(ctx, "pending_queries", attribute.String("student.id", studentID))
	qs, err := retry.Read(ctx, s.reads, func(ctx context.Context) ([]models.Query, error) {
		return s.store.Repos().Queries.ListPendingByStudent(ctx, studentID)
	})
	telemetry.End(span, err)
	if qs == nil && err == nil {
		qs = []models.Query{}
	}
	return qs, err
}

// Progress summarises the approved share of the student's latest Request
func (s *ClearanceService) Progress(ctx context.Context, studentID string) (*models.ProgressSummary, error) {
	req, err := s.GetLatest(ctx, studentID)
	if err != nil {
		return nil, err
	}
	p := models.Progress(req.Tracks)
	return &p, nil
}

// FinalStatus reports the overall status and Final decision of the student's latest Request
func (s *ClearanceService) FinalStatus(ctx context.Context, studentID string) (*models.FinalStatusView, error) {
	req, err := s.GetLatest(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return &models.FinalStatusView{RequestID: req.ID, Status: req.Status, Final: req.Final}, nil
}

// UnitQueue lists the Requests whose Track for unit is in trackStatus
// (Pending when nil), newest first.
func (s *ClearanceService) UnitQueue(ctx context.Context, unit models.UnitType, trackStatus *models.TrackStatus, offset, limit int) ([]models.QueueItem, int, error) {
	if !unit.Valid() {
		return nil, 0, apperrors.NewValidationError(fmt.Sprintf("unknown unit type %q", unit))
	}
	status := models.TrackPending
	if trackStatus != nil {
		status = *trackStatus
	}
	if !status.Valid() {
		return nil, 0, apperrors.NewValidationError(fmt.Sprintf("unknown track status %q", status))
	}

	ctx, span := telemetry.Start(ctx, "unit_queue", attribute.String("unit", string(unit)))
	type page struct {
		reqs  []models.Request
		total int
	}
	p, err := retry.Read(ctx, s.reads, func(ctx context.Context) (page, error) {
		reqs, total, err := s.store.Repos().Requests.List(ctx, models.RequestFilter{
			Unit:        &unit,
			TrackStatus: &status,
			ActiveOnly:  status == models.TrackPending,
			Offset:      offset,
			Limit:       limit,
		})
		return page{reqs, total}, err
	})
	telemetry.End(span, err)
	if err != nil {
		return nil, 0, err
	}

	items := make([]models.QueueItem, 0, len(p.reqs))
	for _, req := range p.reqs {
		items = append(items, models.NewQueueItem(req, unit))
	}
	return items, p.total, nil
}

// UnitQueries lists the Queries raised by unit, optionally filtered by status
func (s *ClearanceService) UnitQueries(ctx context.Context, unit models.UnitType, status *models.QueryStatus) ([]models.Query, error) {
	if !unit.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown unit type %q", unit))
	}
	ctx, span := telemetry.Start(ctx, "unit_queries", attribute.String("unit", string(unit)))
	qs, err := retry.Read(ctx, s.reads, func(ctx context.Context) ([]models.Query, error) {
		return s.store.Repos().Queries.ListByUnit(ctx, unit, status)
	})
	telemetry.End(span, err)
	if qs == nil && err == nil {
		qs = []models.Query{}
	}
	return qs, err
}

// ListRequests returns one page of Requests for administrators
func (s *ClearanceService) ListRequests(ctx context.Context, status *models.RequestStatus, offset, limit int) ([]models.Request, int, error) {
	if status != nil && !status.Valid() {
		return nil, 0, apperrors.NewValidationError(fmt.Sprintf("unknown request status %q", *status))
	}
	ctx, span := telemetry.Start(ctx, "list_requests")
	type page struct {
		reqs  []models.Request
		total int
	}
	p, err := retry.Read(ctx, s.reads, func(ctx context.Context) (page, error) {
		reqs, total, err := s.store.Repos().Requests.List(ctx, models.RequestFilter{
			Status: status,
			Offset: offset,
			Limit:  limit,
		})
		return page{reqs, total}, err
	})
	telemetry.End(span, err)
	if err != nil {
		return nil, 0, err
	}
	if p.reqs == nil {
		p.reqs = []models.Request{}
	}
	return p.reqs, p.total, nil
}

// --- helpers ---

func (s *ClearanceService) publish(events []models.WorkflowEvent, status models.RequestStatus) {
	for _, e := range events {
		e.Status = status
		s.events.Publish(e)
	}
}

// logFailure logs invalid transitions at warn level and store failures at
// error level. Other domain errors are expected outcomes and logged at debug.
func (s *ClearanceService) logFailure(err error, op string, fields *zerolog.Event) {
	var event *zerolog.Event
	switch {
	case errors.Is(err, apperrors.ErrStoreFailure):
		event = s.logger.Error()
	case apperrors.Is(err, apperrors.ErrInvalidTransition, apperrors.ErrInvalidState):
		event = s.logger.Warn()
	default:
		event = s.logger.Debug()
	}
	event.Err(err).Str("op", op).Dict("ctx", fields).Msg("Clearance operation failed")
}
