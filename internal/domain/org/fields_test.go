package org

import (
	"testing"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/auth"
)

func sampleEmployee() *Employee {
	rate := 45000.0
	return &Employee{
		BPJSKesehatan:       "0001234567890",
		BPJSKetenagakerjaan: "0009876543210",
		OvertimeRate:        &rate,
	}
}

func TestFilterEmployeeFieldsAdmin(t *testing.T) {
	emp := sampleEmployee()
	user := auth.UserContext{AccessLevel: auth.LevelAdmin}

	FilterEmployeeFields(emp, user, false)

	if emp.BPJSKesehatan == "" || emp.BPJSKetenagakerjaan == "" || emp.OvertimeRate == nil {
		t.Fatal("admin should retain sensitive fields")
	}
}

func TestFilterEmployeeFieldsSelf(t *testing.T) {
	emp := sampleEmployee()
	user := auth.UserContext{AccessLevel: auth.LevelStaff}

	FilterEmployeeFields(emp, user, true)

	if emp.BPJSKesehatan == "" || emp.BPJSKetenagakerjaan == "" {
		t.Fatal("employees should see their own BPJS numbers")
	}
	if emp.OvertimeRate != nil {
		t.Fatal("overtime rate should be hidden outside admin views")
	}
}

func TestFilterEmployeeFieldsOther(t *testing.T) {
	emp := sampleEmployee()
	user := auth.UserContext{AccessLevel: auth.LevelSupervisor}

	FilterEmployeeFields(emp, user, false)

	if emp.BPJSKesehatan != "" || emp.BPJSKetenagakerjaan != "" || emp.OvertimeRate != nil {
		t.Fatal("supervisors should not see another employee's sensitive fields")
	}
}
