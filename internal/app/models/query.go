package models

import (
	"time"

	"github.com/yigit/nodues/internal/pkg/apperrors"
)

// QueryStatus is the resolution state of a Query
type QueryStatus string

// Query statuses. Resolved is terminal.
const (
	QueryPending  QueryStatus = "Pending"
	QueryResolved QueryStatus = "Resolved"
)

// Query is a blocking question raised by a unit against one of its Tracks
type Query struct {
	ID            int64       `json:"id" db:"id" example:"7"`
	TrackID       int64       `json:"trackId" db:"track_id" example:"11"`
	RequestID     int64       `json:"requestId" db:"request_id" example:"3"`
	StudentID     string      `json:"studentId" db:"student_id" example:"S1"`
	ApprovingUnit UnitType    `json:"approvingUnit" db:"approving_unit" example:"Library"`
	Remarks       string      `json:"remarks" db:"remarks" example:"Return 2 overdue books"`
	Status        QueryStatus `json:"status" db:"status" example:"Pending"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
	ResolvedAt    *time.Time  `json:"resolvedAt,omitempty" db:"resolved_at"`
}

// Resolve closes a Pending Query with the student's response. A Query that is
// already Resolved is left untouched.
func (q *Query) Resolve(response string, now time.Time) error {
	if q.Status != QueryPending {
		return apperrors.NewInvalidStateError("query is already resolved").
			WithDetails(map[string]interface{}{"queryId": q.ID})
	}
	q.Status = QueryResolved
	q.Remarks = response
	q.ResolvedAt = &now
	return nil
}
