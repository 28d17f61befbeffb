package notifications

const (
	TypeLeaveSubmitted    = "leave_submitted"
	TypeLeaveApproved     = "leave_approved"
	TypeLeaveRejected     = "leave_rejected"
	TypeOvertimeSubmitted = "overtime_submitted"
	TypeOvertimeApproved  = "overtime_approved"
	TypeOvertimeRejected  = "overtime_rejected"
	TypePayslipPublished  = "payslip_published"
	TypeAccountCreated    = "account_created"
	TypePasswordReset     = "password_reset"
)
