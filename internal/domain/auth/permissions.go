package auth

// Access levels. Lower is more privileged; admins hold every grant.
const (
	LevelAdmin        = 1
	LevelDivisionHead = 2
	LevelSupervisor   = 3
	LevelStaff        = 4
)

const (
	PermEmployeesRead  = "org.employees.read"
	PermEmployeesWrite = "org.employees.write"
	PermOrgRead        = "org.structure.read"
	PermOrgWrite       = "org.structure.write"

	PermLeaveRead    = "leave.read"
	PermLeaveWrite   = "leave.write"
	PermLeaveApprove = "leave.approve"

	PermOvertimeRead    = "overtime.read"
	PermOvertimeWrite   = "overtime.write"
	PermOvertimeApprove = "overtime.approve"

	PermPayslipsRead  = "payslips.read"
	PermPayslipsWrite = "payslips.write"

	PermNotificationsRead = "notifications.read"
	PermAuditRead         = "audit.read"
	PermAdminReset        = "admin.reset"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermOrgRead,
	PermOrgWrite,
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveApprove,
	PermOvertimeRead,
	PermOvertimeWrite,
	PermOvertimeApprove,
	PermPayslipsRead,
	PermPayslipsWrite,
	PermNotificationsRead,
	PermAuditRead,
	PermAdminReset,
}

// LevelPermissions maps each access level to its grants. Approval
// grants start at supervisor level; employee and payslip management
// is admin only.
var LevelPermissions = map[int][]string{
	LevelAdmin: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermOrgRead,
		PermOrgWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermOvertimeRead,
		PermOvertimeWrite,
		PermOvertimeApprove,
		PermPayslipsRead,
		PermPayslipsWrite,
		PermNotificationsRead,
		PermAuditRead,
		PermAdminReset,
	},
	LevelDivisionHead: {
		PermEmployeesRead,
		PermOrgRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermOvertimeRead,
		PermOvertimeWrite,
		PermOvertimeApprove,
		PermPayslipsRead,
		PermNotificationsRead,
	},
	LevelSupervisor: {
		PermEmployeesRead,
		PermOrgRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermOvertimeRead,
		PermOvertimeWrite,
		PermOvertimeApprove,
		PermPayslipsRead,
		PermNotificationsRead,
	},
	LevelStaff: {
		PermOrgRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermOvertimeRead,
		PermOvertimeWrite,
		PermPayslipsRead,
		PermNotificationsRead,
	},
}

// PermissionsForLevel returns a copy of the grants for level, nil when
// the level is unknown.
func PermissionsForLevel(level int) []string {
	perms, ok := LevelPermissions[level]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// ValidLevel reports whether level is one of the four access levels.
func ValidLevel(level int) bool {
	return level >= LevelAdmin && level <= LevelStaff
}
