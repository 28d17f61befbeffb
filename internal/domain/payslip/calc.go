package payslip

// Totals computes the derived salary amounts from the components.
func Totals(c Components) (gross, deductions, net float64) {
	gross = c.BasicSalary + c.OvertimePay + c.Allowances + c.Bonus + c.OtherEarnings
	deductions = c.IncomeTax + c.BPJSKesehatan + c.BPJSKetenagakerjaan + c.LoanDeduction + c.OtherDeductions
	net = gross - deductions
	return gross, deductions, net
}

// Summarize folds a period's payslips into the payroll roll-up used by
// the admin report.
func Summarize(payslips []Payslip) *Summary {
	summary := &Summary{
		TotalEmployees: len(payslips),
		ByDivision:     map[string]DivisionTotals{},
		ByStatus:       map[string]int{},
	}

	for _, p := range payslips {
		summary.TotalGross += p.GrossSalary
		summary.TotalNet += p.NetSalary

		summary.Breakdown.BasicSalary += p.BasicSalary
		summary.Breakdown.OvertimePay += p.OvertimePay
		summary.Breakdown.Allowances += p.Allowances
		summary.Breakdown.Bonus += p.Bonus
		summary.Breakdown.OtherEarnings += p.OtherEarnings
		summary.Breakdown.IncomeTax += p.IncomeTax
		summary.Breakdown.BPJSKesehatan += p.BPJSKesehatan
		summary.Breakdown.BPJSKetenagakerjaan += p.BPJSKetenagakerjaan
		summary.Breakdown.LoanDeduction += p.LoanDeduction
		summary.Breakdown.OtherDeductions += p.OtherDeductions

		division := p.Division
		if division == "" {
			division = "Unassigned"
		}
		totals := summary.ByDivision[division]
		totals.Count++
		totals.Gross += p.GrossSalary
		totals.Net += p.NetSalary
		summary.ByDivision[division] = totals

		summary.ByStatus[p.Status]++
	}

	summary.TotalDeductions = summary.TotalGross - summary.TotalNet
	return summary
}
