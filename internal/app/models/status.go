package models

import "math"

// Policy holds the configurable parts of status aggregation
type Policy struct {
	// CascadeRejection makes any Rejected Track reject the whole Request
	CascadeRejection bool
	// FinalStatus is the status a Final decision is issued with
	FinalStatus RequestStatus
}

// DefaultPolicy reproduces the observed behaviour: no cascading rejection,
// finals issued as Ready for Collection.
func DefaultPolicy() Policy {
	return Policy{FinalStatus: StatusReadyForCollection}
}

// DeriveStatus computes the overall status of a Request. The first matching rule wins:
//
//  1. a Final exists: its final status
//  2. cascading rejection is on and any Track is Rejected: Rejected
//  3. every Track is Approved: Ready for Collection
//  4. some Track is Approved: In-Progress
//  5. otherwise Pending
func DeriveStatus(tracks []TrackStatus, final *Final, policy Policy) RequestStatus {
	if final != nil {
		return final.FinalStatus
	}

	approved := 0
	for _, s := range tracks {
		switch s {
		case TrackApproved:
			approved++
		case TrackRejected:
			if policy.CascadeRejection {
				return StatusRejected
			}
		}
	}

	switch {
	case len(tracks) > 0 && approved == len(tracks):
		return StatusReadyForCollection
	case approved > 0:
		return StatusInProgress
	default:
		return StatusPending
	}
}

// TrackStatuses extracts the stored statuses of tracks
func TrackStatuses(tracks []Track) []TrackStatus {
	out := make([]TrackStatus, len(tracks))
	for i, t := range tracks {
		out[i] = t.Status
	}
	return out
}

// AllApproved reports whether a full set of Tracks is Approved, the trigger for issuing the Final
func AllApproved(tracks []Track) bool {
	if len(tracks) != TrackCount {
		return false
	}
	for _, t := range tracks {
		if t.Status != TrackApproved {
			return false
		}
	}
	return true
}

// UnitStatus is one row of the per-unit approval view
type UnitStatus struct {
	Unit   UnitType `json:"unit" example:"Library"`
	Status string   `json:"status" example:"QueryRaised"`
}

// UnitStatuses builds the per-unit view. Tracks must have their Queries loaded.
func UnitStatuses(tracks []Track) []UnitStatus {
	out := make([]UnitStatus, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, UnitStatus{Unit: t.UnitType, Status: t.DisplayStatus()})
	}
	return out
}

// ProgressSummary reports how far a Request has come
type ProgressSummary struct {
	TotalUnits         int `json:"totalUnits" example:"6"`
	ApprovedUnits      int `json:"approvedUnits" example:"2"`
	ProgressPercentage int `json:"progressPercentage" example:"33"`
	RemainingUnits     int `json:"remainingUnits" example:"4"`
}

// Progress summarises the approved share of tracks, rounded half away from zero
func Progress(tracks []Track) ProgressSummary {
	p := ProgressSummary{TotalUnits: len(tracks)}
	for _, t := range tracks {
		if t.Status == TrackApproved {
			p.ApprovedUnits++
		}
	}
	if p.TotalUnits > 0 {
		p.ProgressPercentage = int(math.Round(float64(p.ApprovedUnits) * 100 / float64(p.TotalUnits)))
	}
	p.RemainingUnits = p.TotalUnits - p.ApprovedUnits
	return p
}
