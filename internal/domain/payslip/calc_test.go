package payslip

import "testing"

func TestTotals(t *testing.T) {
	c := Components{
		BasicSalary:         8000000,
		OvertimePay:         500000,
		Allowances:          750000,
		Bonus:               250000,
		IncomeTax:           400000,
		BPJSKesehatan:       80000,
		BPJSKetenagakerjaan: 160000,
		LoanDeduction:       100000,
	}

	gross, deductions, net := Totals(c)
	if gross != 9500000 {
		t.Fatalf("expected gross 9500000, got %v", gross)
	}
	if deductions != 740000 {
		t.Fatalf("expected deductions 740000, got %v", deductions)
	}
	if net != 8760000 {
		t.Fatalf("expected net 8760000, got %v", net)
	}
}

func TestTotalsZeroComponents(t *testing.T) {
	gross, deductions, net := Totals(Components{BasicSalary: 5000000})
	if gross != 5000000 {
		t.Fatalf("expected gross 5000000, got %v", gross)
	}
	if deductions != 0 {
		t.Fatalf("expected no deductions, got %v", deductions)
	}
	if net != 5000000 {
		t.Fatalf("expected net 5000000, got %v", net)
	}
}

func TestSummarize(t *testing.T) {
	payslips := []Payslip{
		{
			Division:    "Finance",
			Status:      StatusPaid,
			GrossSalary: 1000,
			NetSalary:   900,
			Components:  Components{BasicSalary: 800, Allowances: 200, IncomeTax: 100},
		},
		{
			Division:    "Finance",
			Status:      StatusPending,
			GrossSalary: 2000,
			NetSalary:   1800,
			Components:  Components{BasicSalary: 2000, IncomeTax: 200},
		},
		{
			Division:    "",
			Status:      StatusPaid,
			GrossSalary: 500,
			NetSalary:   500,
			Components:  Components{BasicSalary: 500},
		},
	}

	summary := Summarize(payslips)
	if summary.TotalEmployees != 3 {
		t.Fatalf("expected 3 employees, got %d", summary.TotalEmployees)
	}
	if summary.TotalGross != 3500 {
		t.Fatalf("expected total gross 3500, got %v", summary.TotalGross)
	}
	if summary.TotalNet != 3200 {
		t.Fatalf("expected total net 3200, got %v", summary.TotalNet)
	}
	if summary.TotalDeductions != 300 {
		t.Fatalf("expected total deductions 300, got %v", summary.TotalDeductions)
	}
	if summary.Breakdown.BasicSalary != 3300 {
		t.Fatalf("expected basic salary breakdown 3300, got %v", summary.Breakdown.BasicSalary)
	}
	if summary.ByDivision["Finance"].Count != 2 {
		t.Fatalf("expected 2 Finance payslips, got %d", summary.ByDivision["Finance"].Count)
	}
	if summary.ByDivision["Unassigned"].Gross != 500 {
		t.Fatalf("expected Unassigned gross 500, got %v", summary.ByDivision["Unassigned"].Gross)
	}
	if summary.ByStatus[StatusPaid] != 2 || summary.ByStatus[StatusPending] != 1 {
		t.Fatalf("unexpected status counts: %v", summary.ByStatus)
	}
}
