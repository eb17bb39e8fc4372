package models

import "time"

// Role is the authorization role carried in access tokens
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleUnit    Role = "UNIT"
	RoleAdmin   Role = "ADMIN"
)

// Staff is an admin or a unit officer account
type Staff struct {
	ID           int64     `json:"id" db:"id" example:"1"`
	Email        string    `json:"email" db:"email" example:"library@nodues.app"`
	Name         string    `json:"name" db:"name" example:"Library Officer"`
	Role         Role      `json:"role" db:"role" example:"UNIT"`
	UnitType     *UnitType `json:"unitType,omitempty" db:"unit_type" example:"Library"` // Set only for unit officers
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Actor is the authenticated caller of a workflow operation
type Actor struct {
	Subject string   // student_id for students, staff email for staff
	Role    Role
	Unit    UnitType // only for RoleUnit
}

// IsStaff reports whether the actor is an admin or unit officer
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleUnit
}

// CanActOn reports whether the actor may decide or query the Track of unit.
// Unit officers act only for their own unit; admins may override any unit.
func (a Actor) CanActOn(unit UnitType) bool {
	switch a.Role {
	case RoleAdmin:
		return unit.Valid()
	case RoleUnit:
		return a.Unit != "" && a.Unit == unit
	default:
		return false
	}
}

// CanReadStudent reports whether the actor may read the given student's data
func (a Actor) CanReadStudent(studentID string) bool {
	if a.IsStaff() {
		return true
	}
	return a.Role == RoleStudent && a.Subject == studentID
}
