package models

import "time"

// RequestStatus is the derived overall status of a Request
type RequestStatus string

// Overall statuses
const (
	StatusPending            RequestStatus = "Pending"
	StatusInProgress         RequestStatus = "In-Progress"
	StatusReadyForCollection RequestStatus = "Ready for Collection"
	StatusCompleted          RequestStatus = "Completed"
	StatusRejected           RequestStatus = "Rejected"
)

// Active reports whether a Request in this status blocks a new submission
func (s RequestStatus) Active() bool {
	return s != StatusRejected && s != StatusCompleted
}

// Valid reports whether s is a known overall status
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusReadyForCollection, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// TerminalStatuses lists the statuses that free a student to submit again
var TerminalStatuses = []RequestStatus{StatusRejected, StatusCompleted}

// Request is one clearance attempt by a student
type Request struct {
	ID          int64         `json:"id" db:"id" example:"3"`
	StudentID   string        `json:"studentId" db:"student_id" example:"S1"`
	SubmittedAt time.Time     `json:"submittedAt" db:"submitted_at"`
	Status      RequestStatus `json:"status" db:"status" example:"In-Progress"`
	Reason      *string       `json:"reason,omitempty" db:"reason" example:"Graduation"`

	Tracks  []Track  `json:"tracks"`
	Final   *Final   `json:"final,omitempty"`
	Student *Student `json:"student,omitempty"`
}

// Track returns the Request's Track for unit, or nil
func (r *Request) Track(unit UnitType) *Track {
	for i := range r.Tracks {
		if r.Tracks[i].UnitType == unit {
			return &r.Tracks[i]
		}
	}
	return nil
}

// Final is the immutable certificate decision issued once every Track is Approved
type Final struct {
	RequestID   int64         `json:"requestId" db:"request_id" example:"3"`
	FinalStatus RequestStatus `json:"finalStatus" db:"final_status" example:"Ready for Collection"`
	IssuedAt    time.Time     `json:"issuedAt" db:"issued_at"`
}

// RequestSummary is the history projection of a Request
type RequestSummary struct {
	ID          int64          `json:"id" example:"3"`
	SubmittedAt time.Time      `json:"submittedAt"`
	Status      RequestStatus  `json:"status" example:"Pending"`
	Reason      *string        `json:"reason,omitempty"`
	Tracks      []TrackSummary `json:"tracks"`
	Final       *FinalSummary  `json:"final,omitempty"`
}

// TrackSummary is the per-unit part of a RequestSummary
type TrackSummary struct {
	UnitType  UnitType    `json:"unitType" example:"Hostel"`
	Status    TrackStatus `json:"status" example:"Approved"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FinalSummary is the final-decision part of a RequestSummary
type FinalSummary struct {
	FinalStatus RequestStatus `json:"finalStatus" example:"Ready for Collection"`
	IssuedAt    time.Time     `json:"issuedAt"`
}

// Summarize projects a Request to its history summary
func (r *Request) Summarize() RequestSummary {
	s := RequestSummary{
		ID:          r.ID,
		SubmittedAt: r.SubmittedAt,
		Status:      r.Status,
		Reason:      r.Reason,
		Tracks:      make([]TrackSummary, 0, len(r.Tracks)),
	}
	for _, t := range r.Tracks {
		s.Tracks = append(s.Tracks, TrackSummary{UnitType: t.UnitType, Status: t.Status, UpdatedAt: t.UpdatedAt})
	}
	if r.Final != nil {
		s.Final = &FinalSummary{FinalStatus: r.Final.FinalStatus, IssuedAt: r.Final.IssuedAt}
	}
	return s
}

// RequestFilter narrows admin and unit listings
type RequestFilter struct {
	Status      *RequestStatus
	Unit        *UnitType
	TrackStatus *TrackStatus
	Offset      int
	Limit       int

	// ActiveOnly drops Rejected and Completed Requests
	ActiveOnly bool
}
