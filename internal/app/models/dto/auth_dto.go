package dto

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"asha@college.edu"`
	Password string `json:"password" binding:"required" example:"s3cretpass1"`
}

// RegisterStudentRequest represents student registration data
type RegisterStudentRequest struct {
	StudentID      string `json:"studentId" binding:"required,studentid" example:"S1"`
	Name           string `json:"name" binding:"required,min=2,max=100" example:"Asha Rao"`
	Email          string `json:"email" binding:"required,email" example:"asha@college.edu"`
	Password       string `json:"password" binding:"required,password" example:"s3cretpass1"`
	Course         string `json:"course" binding:"required" example:"BTech"`
	DepartmentCode string `json:"department,omitempty" example:"CSE"`
	HostelCode     string `json:"hostel,omitempty" example:"H1"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType" example:"Bearer"`
	ExpiresIn   int    `json:"expiresIn" example:"86400"`
}

// AccountResponse describes the authenticated account
type AccountResponse struct {
	Subject string `json:"subject" example:"S1"`
	Name    string `json:"name" example:"Asha Rao"`
	Email   string `json:"email" example:"asha@college.edu"`
	Role    string `json:"role" example:"STUDENT" enums:"STUDENT,UNIT,ADMIN"`
	Unit    string `json:"unit,omitempty" example:"Library"`
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token   TokenResponse   `json:"token"`
	Account AccountResponse `json:"account"`
}
