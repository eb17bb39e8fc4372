package models

// Department is seeded reference data identified by its code
type Department struct {
	Code string  `json:"code" db:"code" example:"CSE"`
	Name string  `json:"name" db:"name" example:"Computer Science & Engineering"`
	Head *string `json:"head,omitempty" db:"head" example:"Dr. John Doe"`
}

// Hostel is seeded reference data identified by its number
type Hostel struct {
	Code   string  `json:"code" db:"code" example:"H1"`
	Name   string  `json:"name" db:"name" example:"Hostel 1"`
	Warden *string `json:"warden,omitempty" db:"warden" example:"Mr. Warden 1"`
}
