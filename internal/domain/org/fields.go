package org

import "github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/auth"

// FilterEmployeeFields blanks out what the viewer may not see. Admins
// see everything. Employees see their own BPJS numbers but not their
// overtime rate, which stays visible to admins only. Everyone else gets
// the record with all sensitive fields removed.
func FilterEmployeeFields(emp *Employee, user auth.UserContext, isSelf bool) {
	if user.AccessLevel == auth.LevelAdmin {
		return
	}

	if isSelf {
		emp.OvertimeRate = nil
		return
	}

	emp.BPJSKesehatan = ""
	emp.BPJSKetenagakerjaan = ""
	emp.OvertimeRate = nil
}
