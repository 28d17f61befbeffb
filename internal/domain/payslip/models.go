package payslip

import "time"

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusDeleted = "deleted"
)

// Components are the per-payslip earning and deduction amounts. Gross,
// total deductions and net are derived, never stored from client input.
type Components struct {
	BasicSalary         float64 `json:"basicSalary"`
	OvertimePay         float64 `json:"overtimePay"`
	Allowances          float64 `json:"allowances"`
	Bonus               float64 `json:"bonus"`
	OtherEarnings       float64 `json:"otherEarnings"`
	IncomeTax           float64 `json:"incomeTax"`
	BPJSKesehatan       float64 `json:"bpjsKesehatan"`
	BPJSKetenagakerjaan float64 `json:"bpjsKetenagakerjaan"`
	LoanDeduction       float64 `json:"loanDeduction"`
	OtherDeductions     float64 `json:"otherDeductions"`
}

type Payslip struct {
	ID            string `json:"id"`
	EmployeeID    string `json:"employeeId"`
	EmployeeName  string `json:"employeeName,omitempty"`
	EmployeeEmail string `json:"employeeEmail,omitempty"`
	Division      string `json:"division,omitempty"`
	Role          string `json:"role,omitempty"`
	PayPeriod     string `json:"payPeriod"`
	Components
	GrossSalary float64    `json:"grossSalary"`
	NetSalary   float64    `json:"netSalary"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	PDFKey      string     `json:"-"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	PaidDate    *time.Time `json:"paidDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

type Stats struct {
	TotalPayslips   int     `json:"totalPayslips"`
	TotalGross      float64 `json:"totalGross"`
	TotalNet        float64 `json:"totalNet"`
	TotalDeductions float64 `json:"totalDeductions"`
	AverageGross    float64 `json:"averageGross"`
	AverageNet      float64 `json:"averageNet"`
	Paid            int     `json:"paid"`
	Pending         int     `json:"pending"`
}

type DivisionTotals struct {
	Count int     `json:"count"`
	Gross float64 `json:"gross"`
	Net   float64 `json:"net"`
}

// Summary is the payroll roll-up for one pay period.
type Summary struct {
	TotalEmployees  int                       `json:"totalEmployees"`
	TotalGross      float64                   `json:"totalGross"`
	TotalNet        float64                   `json:"totalNet"`
	TotalDeductions float64                   `json:"totalDeductions"`
	Breakdown       Components                `json:"breakdown"`
	ByDivision      map[string]DivisionTotals `json:"byDivision"`
	ByStatus        map[string]int            `json:"byStatus"`
}
