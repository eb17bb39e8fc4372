package models

import "time"

// Student defines the student model based on the 'students' table
type Student struct {
	StudentID      string     `json:"studentId" db:"student_id" example:"S1"`                   // Unique student identifier
	Name           string     `json:"name" db:"name" example:"Asha Verma"`                      // Full name
	Email          string     `json:"email" db:"email" example:"asha@university.edu"`           // Unique email address
	Course         string     `json:"course" db:"course" example:"BTech"`                       // Enrolled course
	DepartmentCode *string    `json:"departmentCode,omitempty" db:"department_code" example:"CSE"` // Department reference (nullable)
	HostelCode     *string    `json:"hostelCode,omitempty" db:"hostel_code" example:"H1"`       // Hostel reference, set only for hostelers
	IsHosteler     bool       `json:"isHosteler" db:"is_hosteler" example:"true"`
	ScholarNo      *string    `json:"scholarNo,omitempty" db:"scholar_no"`
	Branch         *string    `json:"branch,omitempty" db:"branch"`
	Degree         *string    `json:"degree,omitempty" db:"degree"`
	MobileNo       *string    `json:"mobileNo,omitempty" db:"mobile_no"`
	RoomNo         *string    `json:"roomNo,omitempty" db:"room_no"`
	CGPA           *float64   `json:"cgpa,omitempty" db:"cgpa" example:"8.4"`
	AadharPassport *string    `json:"aadharPassport,omitempty" db:"aadhar_passport"`
	Address        *string    `json:"address,omitempty" db:"address"`
	BankAccountNo  *string    `json:"bankAccountNo,omitempty" db:"bank_account_no"`
	IFSCCode       *string    `json:"ifscCode,omitempty" db:"ifsc_code"`
	ProfilePicture *string    `json:"profilePicture,omitempty" db:"profile_picture"` // Stored file name, opaque to the workflow
	Documents      []Document `json:"documents,omitempty" db:"documents"`           // Uploaded document metadata, opaque to the workflow
	PasswordHash   *string    `json:"-" db:"password_hash"`                         // Set only through registration
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`

	Department *Department `json:"department,omitempty"`
	Hostel     *Hostel     `json:"hostel,omitempty"`
}

// Document is the metadata of an uploaded supporting document
type Document struct {
	Filename     string `json:"filename" example:"5f8c...pdf"`
	OriginalName string `json:"originalName" example:"fee-receipt.pdf"`
	Size         int64  `json:"size" example:"20480"`
	MimeType     string `json:"mimeType" example:"application/pdf"`
}
