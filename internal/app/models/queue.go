package models

import "time"

// QueueItem is one row of a unit officer's work queue
type QueueItem struct {
	RequestID      int64         `json:"requestId" example:"3"`
	StudentID      string        `json:"studentId" example:"S1"`
	StudentName    string        `json:"studentName,omitempty" example:"Asha Rao"`
	SubmittedAt    time.Time     `json:"submittedAt"`
	RequestStatus  RequestStatus `json:"requestStatus" example:"In-Progress"`
	Unit           UnitType      `json:"unit" example:"Library"`
	TrackID        int64         `json:"trackId" example:"11"`
	TrackStatus    string        `json:"trackStatus" example:"QueryRaised"`
	PendingQueries int           `json:"pendingQueries" example:"1"`
}

// NewQueueItem projects a loaded Request onto the queue row of unit
func NewQueueItem(req Request, unit UnitType) QueueItem {
	item := QueueItem{
		RequestID:     req.ID,
		StudentID:     req.StudentID,
		SubmittedAt:   req.SubmittedAt,
		RequestStatus: req.Status,
		Unit:          unit,
	}
	if req.Student != nil {
		item.StudentName = req.Student.Name
	}
	if t := req.Track(unit); t != nil {
		item.TrackID = t.ID
		item.TrackStatus = t.DisplayStatus()
		for _, q := range t.Queries {
			if q.Status == QueryPending {
				item.PendingQueries++
			}
		}
	}
	return item
}

// FinalStatusView answers "where does my clearance stand"
type FinalStatusView struct {
	RequestID int64         `json:"requestId" example:"3"`
	Status    RequestStatus `json:"status" example:"Ready for Collection"`
	Final     *Final        `json:"final,omitempty"`
}
