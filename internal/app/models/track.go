package models

import (
	"fmt"
	"time"

	"github.com/yigit/nodues/internal/pkg/apperrors"
)

// TrackStatus is the stored state of one unit's clearance
type TrackStatus string

// Track statuses. Approved and Rejected are terminal.
const (
	TrackPending  TrackStatus = "Pending"
	TrackApproved TrackStatus = "Approved"
	TrackRejected TrackStatus = "Rejected"
)

// LabelQueryRaised is the derived display label of a Pending Track with an open Query.
// It is never stored.
const LabelQueryRaised = "QueryRaised"

// Terminal reports whether no further transition is allowed from s
func (s TrackStatus) Terminal() bool {
	return s == TrackApproved || s == TrackRejected
}

// Valid reports whether s is a known track status
func (s TrackStatus) Valid() bool {
	switch s {
	case TrackPending, TrackApproved, TrackRejected:
		return true
	}
	return false
}

// Track is one unit's clearance state within a Request
type Track struct {
	ID         int64       `json:"id" db:"id" example:"11"`
	RequestID  int64       `json:"requestId" db:"request_id" example:"3"`
	UnitType   UnitType    `json:"unitType" db:"unit_type" example:"Library"`
	StepNumber int         `json:"stepNumber" db:"step_number" example:"3"`
	Status     TrackStatus `json:"status" db:"status" example:"Pending"`
	UpdatedAt  time.Time   `json:"updatedAt" db:"updated_at"`

	Queries []Query `json:"queries,omitempty"`
}

// NewTracks builds the six Pending Tracks of a fresh Request in step order
func NewTracks(now time.Time) []Track {
	tracks := make([]Track, 0, TrackCount)
	for i, unit := range UnitOrder {
		tracks = append(tracks, Track{
			UnitType:   unit,
			StepNumber: i + 1,
			Status:     TrackPending,
			UpdatedAt:  now,
		})
	}
	return tracks
}

func (t *Track) transition(to TrackStatus, now time.Time) error {
	if t.Status != TrackPending {
		return apperrors.NewInvalidTransitionError(
			fmt.Sprintf("%s track is already %s and cannot become %s", t.UnitType, t.Status, to),
		).WithDetails(map[string]interface{}{
			"trackId": t.ID,
			"unit":    t.UnitType,
			"status":  t.Status,
		})
	}
	t.Status = to
	t.UpdatedAt = now
	return nil
}

// Approve moves a Pending Track to Approved
func (t *Track) Approve(now time.Time) error {
	return t.transition(TrackApproved, now)
}

// Reject moves a Pending Track to Rejected
func (t *Track) Reject(now time.Time) error {
	return t.transition(TrackRejected, now)
}

// HasPendingQuery reports whether any loaded Query on the Track is unresolved
func (t Track) HasPendingQuery() bool {
	for _, q := range t.Queries {
		if q.Status == QueryPending {
			return true
		}
	}
	return false
}

// DisplayStatus is QueryRaised for a Pending Track with an open Query, else the stored status
func (t Track) DisplayStatus() string {
	if t.Status == TrackPending && t.HasPendingQuery() {
		return LabelQueryRaised
	}
	return string(t.Status)
}
