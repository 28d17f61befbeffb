package leave

import "time"

const (
	TypeAnnual    = "annual"
	TypeSick      = "sick"
	TypeMenstrual = "menstrual"
	TypeMarriage  = "marriage"
	TypeMaternity = "maternity"
	TypePaternity = "paternity"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved_final"
	StatusRejected = "rejected"
)

// TypeRule is the validation policy for one leave type. Zero fields
// mean the rule does not apply.
type TypeRule struct {
	Name           string
	HasQuota       bool
	MaxConsecutive int
	MaxPerMonth    int
	FixedDays      int
	GenderSpecific string
}

var TypeRules = map[string]TypeRule{
	TypeAnnual:    {Name: "Annual Leave", HasQuota: true},
	TypeSick:      {Name: "Sick Leave", MaxConsecutive: 2},
	TypeMenstrual: {Name: "Menstrual Leave", MaxPerMonth: 1, GenderSpecific: "female"},
	TypeMarriage:  {Name: "Marriage Leave", FixedDays: 3},
	TypeMaternity: {Name: "Maternity Leave", FixedDays: 45, GenderSpecific: "female"},
	TypePaternity: {Name: "Paternity Leave", FixedDays: 2, GenderSpecific: "male"},
}

type Request struct {
	ID               string     `json:"id"`
	EmployeeID       string     `json:"employeeId"`
	EmployeeName     string     `json:"employeeName,omitempty"`
	EmployeeEmail    string     `json:"employeeEmail,omitempty"`
	EmployeeDivision string     `json:"employeeDivision,omitempty"`
	EmployeeRole     string     `json:"employeeRole,omitempty"`
	LeaveType        string     `json:"leaveType"`
	StartDate        time.Time  `json:"startDate"`
	EndDate          time.Time  `json:"endDate"`
	WorkingDays      int        `json:"workingDays"`
	Reason           string     `json:"reason,omitempty"`
	EmergencyContact string     `json:"emergencyContact,omitempty"`
	Status           string     `json:"status"`
	ApproverID       string     `json:"approverId,omitempty"`
	ApproverName     string     `json:"approverName,omitempty"`
	ApprovalType     string     `json:"approvalType,omitempty"`
	AdminOverride    bool       `json:"adminOverride,omitempty"`
	DecidedBy        string     `json:"decidedBy,omitempty"`
	DecidedByName    string     `json:"decidedByName,omitempty"`
	DecidedAt        *time.Time `json:"decidedAt,omitempty"`
	ApproverComments string     `json:"approverComments,omitempty"`
	AttachmentName   string     `json:"attachmentName,omitempty"`
	SubmittedAt      time.Time  `json:"submittedAt"`
}

// Quota is the annual-leave pool for one employee and calendar year.
type Quota struct {
	EmployeeID    string    `json:"employeeId"`
	Year          int       `json:"year"`
	AnnualQuota   int       `json:"annualQuota"`
	AnnualUsed    int       `json:"annualUsed"`
	AnnualPending int       `json:"annualPending"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Available is what the employee can still request.
func (q Quota) Available() int {
	return q.AnnualQuota - q.AnnualUsed - q.AnnualPending
}

type Stats struct {
	TotalRequests    int            `json:"totalRequests"`
	ApprovedRequests int            `json:"approvedRequests"`
	PendingRequests  int            `json:"pendingRequests"`
	RejectedRequests int            `json:"rejectedRequests"`
	ByLeaveType      map[string]int `json:"byLeaveType"`
	TotalDaysTaken   int            `json:"totalDaysTaken"`
}

// Upload is an attachment handed in with a submission, such as a
// doctor's note.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
}
