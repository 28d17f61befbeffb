package overtime

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Entry is one worked date inside a request.
type Entry struct {
	Date        time.Time `json:"date"`
	Hours       float64   `json:"hours"`
	Description string    `json:"description,omitempty"`
}

type Request struct {
	ID               string     `json:"id"`
	EmployeeID       string     `json:"employeeId"`
	EmployeeName     string     `json:"employeeName,omitempty"`
	EmployeeEmail    string     `json:"employeeEmail,omitempty"`
	EmployeeDivision string     `json:"employeeDivision,omitempty"`
	EmployeeRole     string     `json:"employeeRole,omitempty"`
	WeekStart        time.Time  `json:"weekStart"`
	WeekEnd          time.Time  `json:"weekEnd"`
	Entries          []Entry    `json:"entries"`
	TotalHours       float64    `json:"totalHours"`
	Reason           string     `json:"reason,omitempty"`
	Status           string     `json:"status"`
	ApproverID       string     `json:"approverId,omitempty"`
	ApproverName     string     `json:"approverName,omitempty"`
	ApprovalType     string     `json:"approvalType,omitempty"`
	AdminOverride    bool       `json:"adminOverride,omitempty"`
	DecidedBy        string     `json:"decidedBy,omitempty"`
	DecidedByName    string     `json:"decidedByName,omitempty"`
	DecidedAt        *time.Time `json:"decidedAt,omitempty"`
	ApproverComments string     `json:"approverComments,omitempty"`
	SubmittedAt      time.Time  `json:"submittedAt"`
}

// Balance is the per-month ledger of approved, paid and outstanding
// hours for one employee. Months use the "2006-01" form.
type Balance struct {
	EmployeeID    string     `json:"employeeId"`
	Month         string     `json:"month"`
	ApprovedHours float64    `json:"approvedHours"`
	PaidHours     float64    `json:"paidHours"`
	BalanceHours  float64    `json:"balanceHours"`
	LastResetAt   *time.Time `json:"lastResetAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// ResetState records the last payroll reset. New entries must be dated
// on or after LastResetDate.
type ResetState struct {
	LastResetDate  time.Time `json:"lastResetDate"`
	LastResetMonth string    `json:"lastResetMonth"`
	ResetCount     int       `json:"resetCount"`
}

// ReportRow is one employee's line in the payroll export for a month.
type ReportRow struct {
	EmployeeID    string  `json:"employeeId"`
	EmployeeName  string  `json:"employeeName"`
	EmployeeEmail string  `json:"employeeEmail"`
	Division      string  `json:"division"`
	Role          string  `json:"role"`
	ApprovedHours float64 `json:"approvedHours"`
	PaidHours     float64 `json:"paidHours"`
	BalanceHours  float64 `json:"balanceHours"`
	OvertimeRate  float64 `json:"overtimeRate"`
	CalculatedPay float64 `json:"calculatedPay"`
}
