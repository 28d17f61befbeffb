package org

import "time"

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Employee is the directory record. BPJS numbers and the overtime rate
// are stored encrypted and only surface for permitted viewers, see
// FilterEmployeeFields.
type Employee struct {
	ID                  string     `json:"id"`
	FullName            string     `json:"fullName"`
	Email               string     `json:"email"`
	NIP                 string     `json:"nip,omitempty"`
	Phone               string     `json:"phone,omitempty"`
	Address             string     `json:"address,omitempty"`
	DateOfBirth         *time.Time `json:"dateOfBirth,omitempty"`
	PlaceOfBirth        string     `json:"placeOfBirth,omitempty"`
	Gender              string     `json:"gender,omitempty"`
	DivisionID          string     `json:"divisionId,omitempty"`
	DivisionCode        string     `json:"divisionCode,omitempty"`
	DivisionName        string     `json:"divisionName,omitempty"`
	RoleID              string     `json:"roleId,omitempty"`
	RoleName            string     `json:"roleName,omitempty"`
	AccessLevel         int        `json:"accessLevel"`
	SupervisorID        string     `json:"supervisorId,omitempty"`
	SupervisorName      string     `json:"supervisorName,omitempty"`
	JoinDate            *time.Time `json:"joinDate,omitempty"`
	EmploymentStatus    string     `json:"employmentStatus,omitempty"`
	BPJSKesehatan       string     `json:"bpjsKesehatan,omitempty"`
	BPJSKetenagakerjaan string     `json:"bpjsKetenagakerjaan,omitempty"`
	OvertimeRate        *float64   `json:"overtimeRate,omitempty"`
	DefaultWFHDays      string     `json:"defaultWfhDays,omitempty"`
	IsActive            bool       `json:"isActive"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type Division struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	HeadID    string    `json:"headId,omitempty"`
	HeadName  string    `json:"headName,omitempty"`
	Members   int       `json:"members,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Role is a job title, not an authorization construct. Access levels
// drive permissions.
type Role struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Members   int       `json:"members,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Stats struct {
	TotalEmployees  int            `json:"totalEmployees"`
	ActiveEmployees int            `json:"activeEmployees"`
	ByDivision      map[string]int `json:"byDivision"`
	ByLevel         map[int]int    `json:"byLevel"`
}
