package models

import (
	"strings"

	"github.com/yigit/nodues/internal/pkg/apperrors"
)

// SubmissionCommand is the validated, typed form of a clearance submission.
// It is built at the HTTP boundary from the raw form.
type SubmissionCommand struct {
	StudentID      string
	Name           string
	Email          string
	Course         string
	DepartmentCode string
	HostelCode     string
	IsHosteler     bool
	ScholarNo      string
	Branch         string
	Degree         string
	MobileNo       string
	RoomNo         string
	CGPA           *float64
	AadharPassport string
	Address        string
	BankAccountNo  string
	IFSCCode       string
	Reason         string
	ProfilePicture string
	Documents      []Document
}

// Validate checks the fields the workflow cannot run without
func (c SubmissionCommand) Validate() error {
	var missing []string
	if strings.TrimSpace(c.StudentID) == "" {
		missing = append(missing, "studentId")
	}
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(c.Course) == "" {
		missing = append(missing, "course")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields: " + strings.Join(missing, ", ")).
			WithDetails(map[string]interface{}{"missing": missing})
	}
	if c.CGPA != nil && (*c.CGPA < 0 || *c.CGPA > 10) {
		return apperrors.NewValidationError("cgpa must be between 0 and 10")
	}
	return nil
}

// EffectiveHostel is the hostel code to validate and store: only hostelers keep one
func (c SubmissionCommand) EffectiveHostel() string {
	if !c.IsHosteler {
		return ""
	}
	return strings.TrimSpace(c.HostelCode)
}

// ApplyTo copies the form onto a Student, keeping the stored picture and
// documents when none were uploaded with this submission.
func (c SubmissionCommand) ApplyTo(s *Student) {
	s.StudentID = strings.TrimSpace(c.StudentID)
	s.Name = strings.TrimSpace(c.Name)
	s.Email = strings.ToLower(strings.TrimSpace(c.Email))
	s.Course = strings.TrimSpace(c.Course)
	s.DepartmentCode = optional(c.DepartmentCode)
	s.HostelCode = optional(c.EffectiveHostel())
	s.IsHosteler = c.IsHosteler
	s.ScholarNo = optional(c.ScholarNo)
	s.Branch = optional(c.Branch)
	s.Degree = optional(c.Degree)
	s.MobileNo = optional(c.MobileNo)
	s.RoomNo = optional(c.RoomNo)
	s.CGPA = c.CGPA
	s.AadharPassport = optional(c.AadharPassport)
	s.Address = optional(c.Address)
	s.BankAccountNo = optional(c.BankAccountNo)
	s.IFSCCode = optional(c.IFSCCode)
	if p := optional(c.ProfilePicture); p != nil {
		s.ProfilePicture = p
	}
	if len(c.Documents) > 0 {
		s.Documents = c.Documents
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
