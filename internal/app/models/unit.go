package models

import "strings"

// UnitType identifies one of the six approving campus units
type UnitType string

// Approving units, in the fixed order their Tracks are created
const (
	UnitDepartment UnitType = "Department"
	UnitHostel     UnitType = "Hostel"
	UnitLibrary    UnitType = "Library"
	UnitAccounts   UnitType = "Accounts"
	UnitSports     UnitType = "Sports"
	UnitProctor    UnitType = "Proctor"
)

// UnitOrder lists every unit in step order. Index i holds the unit for step i+1.
var UnitOrder = [...]UnitType{
	UnitDepartment,
	UnitHostel,
	UnitLibrary,
	UnitAccounts,
	UnitSports,
	UnitProctor,
}

// TrackCount is the number of Tracks every Request owns
const TrackCount = len(UnitOrder)

// Step returns the informational 1-based step number, or 0 for an unknown unit
func (u UnitType) Step() int {
	for i, unit := range UnitOrder {
		if unit == u {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether u is one of the six approving units
func (u UnitType) Valid() bool {
	return u.Step() > 0
}

// ParseUnitType resolves a unit name case-insensitively
func ParseUnitType(s string) (UnitType, bool) {
	s = strings.TrimSpace(s)
	for _, unit := range UnitOrder {
		if strings.EqualFold(string(unit), s) {
			return unit, true
		}
	}
	return "", false
}

// UnitInfo is the reference-data view of a unit type
type UnitInfo struct {
	UnitType   UnitType `json:"unitType" example:"Library"`
	StepNumber int      `json:"stepNumber" example:"3"`
}

// Units returns the reference listing of all unit types
func Units() []UnitInfo {
	out := make([]UnitInfo, 0, TrackCount)
	for i, unit := range UnitOrder {
		out = append(out, UnitInfo{UnitType: unit, StepNumber: i + 1})
	}
	return out
}
