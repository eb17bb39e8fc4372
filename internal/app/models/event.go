package models

import "time"

// EventType names a workflow change pushed to the affected student
type EventType string

const (
	EventRequestSubmitted EventType = "request.submitted"
	EventTrackApproved    EventType = "track.approved"
	EventTrackRejected    EventType = "track.rejected"
	EventQueryRaised      EventType = "query.raised"
	EventQueryResolved    EventType = "query.resolved"
	EventFinalIssued      EventType = "final.issued"
)

// WorkflowEvent is published after the transaction that caused it has committed
type WorkflowEvent struct {
	Type      EventType     `json:"type"`
	StudentID string        `json:"studentId"`
	RequestID int64         `json:"requestId"`
	Unit      UnitType      `json:"unit,omitempty"`
	QueryID   int64         `json:"queryId,omitempty"`
	Status    RequestStatus `json:"status"`
	At        time.Time     `json:"at"`
}
