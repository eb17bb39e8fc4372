package dto

import (
	"mime/multipart"

	"github.com/yigit/nodues/internal/app/models"
)

// SubmitFormRequest is the multipart no-dues form. Presence of the required
// fields is checked by the workflow so the response can list every missing one.
type SubmitFormRequest struct {
	StudentID      string   `form:"student_id" binding:"omitempty,studentid" example:"S1"`
	Name           string   `form:"studentName" binding:"omitempty,max=100" example:"Asha Rao"`
	Email          string   `form:"email" binding:"omitempty,email" example:"asha@college.edu"`
	Course         string   `form:"course" example:"BTech"`
	DepartmentCode string   `form:"department" example:"CSE"`
	HostelCode     string   `form:"hostelNo" example:"H1"`
	IsHosteler     bool     `form:"isHosteler" example:"true"`
	ScholarNo      string   `form:"scholarNo" example:"21CS042"`
	Branch         string   `form:"branch" example:"AI"`
	Degree         string   `form:"degree" example:"B.Tech"`
	MobileNo       string   `form:"mobileNo" binding:"omitempty,mobile" example:"9876543210"`
	RoomNo         string   `form:"roomNo" example:"B-204"`
	CGPA           *float64 `form:"cgpa" binding:"omitempty,gte=0,lte=10" example:"8.4"`
	AadharPassport string   `form:"aadharPassport" example:"1234-5678-9012"`
	Address        string   `form:"address" example:"12 MG Road, Pune"`
	BankAccountNo  string   `form:"bankAccountNo" example:"001234567890"`
	IFSCCode       string   `form:"ifscCode" binding:"omitempty,ifsc" example:"SBIN0001234"`
	Reason         string   `form:"reason" binding:"omitempty,max=500" example:"Graduation"`

	ProfilePicture *multipart.FileHeader   `form:"profilePicture" swaggerignore:"true"`
	Documents      []*multipart.FileHeader `form:"documents" swaggerignore:"true"`
}

// ToCommand converts the bound form and the stored attachments into a workflow command
func (r SubmitFormRequest) ToCommand(profilePicture string, documents []models.Document) models.SubmissionCommand {
	return models.SubmissionCommand{
		StudentID:      r.StudentID,
		Name:           r.Name,
		Email:          r.Email,
		Course:         r.Course,
		DepartmentCode: r.DepartmentCode,
		HostelCode:     r.HostelCode,
		IsHosteler:     r.IsHosteler,
		ScholarNo:      r.ScholarNo,
		Branch:         r.Branch,
		Degree:         r.Degree,
		MobileNo:       r.MobileNo,
		RoomNo:         r.RoomNo,
		CGPA:           r.CGPA,
		AadharPassport: r.AadharPassport,
		Address:        r.Address,
		BankAccountNo:  r.BankAccountNo,
		IFSCCode:       r.IFSCCode,
		Reason:         r.Reason,
		ProfilePicture: profilePicture,
		Documents:      documents,
	}
}

// SubmitFormResponse is returned when a request has been opened
type SubmitFormResponse struct {
	Request *models.Request `json:"request"`
}
