package dto

import "github.com/yigit/nodues/internal/app/models"

// RaiseQueryRequest is a unit officer's question to the student
type RaiseQueryRequest struct {
	Message string `json:"message" binding:"required,max=1000" example:"Return 2 overdue books"`
}

// ResolveQueryRequest is the student's reply to a Pending query
type ResolveQueryRequest struct {
	QueryID  int64  `json:"queryId" binding:"required,gt=0" example:"7"`
	Response string `json:"response" binding:"required,max=1000" example:"Books returned on 12 May"`
}

// RequestListResponse is one page of requests
type RequestListResponse struct {
	Requests   []models.Request `json:"requests"`
	Pagination PaginationInfo   `json:"pagination"`
}

// QueueResponse is one page of a unit's work queue
type QueueResponse struct {
	Items      []models.QueueItem `json:"items"`
	Pagination PaginationInfo     `json:"pagination"`
}

// ReferenceDataResponse bundles the static lookups used by the submission form
type ReferenceDataResponse struct {
	Departments []models.Department `json:"departments"`
	Hostels     []models.Hostel     `json:"hostels"`
	Units       []models.UnitInfo   `json:"units"`
}
