package payslip

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/jung-kurt/gofpdf"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/metrics"
)

// GeneratePDF renders the payslip document and writes it through the
// file store, recording the object key on the row.
func (s *Service) GeneratePDF(ctx context.Context, payslipID string) (string, error) {
	p, err := s.Get(ctx, payslipID)
	if err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", p.EmployeeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Email: %s", p.EmployeeEmail))
	pdf.Ln(7)
	if p.Division != "" || p.Role != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Division: %s   Role: %s", p.Division, p.Role))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Pay period: %s", p.PayPeriod))
	pdf.Ln(10)

	// Zero components are omitted from the document.
	line := func(label string, amount float64) {
		if amount != 0 {
			pdf.Cell(0, 7, fmt.Sprintf("%s: %.2f", label, amount))
			pdf.Ln(7)
		}
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Earnings")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, fmt.Sprintf("Basic salary: %.2f", p.BasicSalary))
	pdf.Ln(7)
	line("Overtime pay", p.OvertimePay)
	line("Allowances", p.Allowances)
	line("Bonus", p.Bonus)
	line("Other earnings", p.OtherEarnings)
	pdf.Cell(0, 7, fmt.Sprintf("Gross salary: %.2f", p.GrossSalary))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Deductions")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	line("Income tax", p.IncomeTax)
	line("BPJS Kesehatan", p.BPJSKesehatan)
	line("BPJS Ketenagakerjaan", p.BPJSKetenagakerjaan)
	line("Loan deduction", p.LoanDeduction)
	line("Other deductions", p.OtherDeductions)
	_, deductions, _ := Totals(p.Components)
	pdf.Cell(0, 7, fmt.Sprintf("Total deductions: %.2f", deductions))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 9, fmt.Sprintf("Net salary: %.2f", p.NetSalary))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return "", err
	}

	key := path.Join("payslips", p.EmployeeID, p.ID+".pdf")
	if err := s.Files.Upload(ctx, key, "application/pdf", buf.Bytes()); err != nil {
		return "", err
	}
	if err := s.Store.SetPDFKey(ctx, p.ID, key); err != nil {
		return "", err
	}
	metrics.PayslipPDFs.Inc()
	return key, nil
}

// PDFURL returns a signed link for the payslip document, rendering it
// on first access.
func (s *Service) PDFURL(ctx context.Context, payslipID string) (string, error) {
	key, err := s.ensurePDF(ctx, payslipID)
	if err != nil {
		return "", err
	}
	return s.Files.SignedURL(ctx, key)
}

func (s *Service) DownloadPDF(ctx context.Context, payslipID string) ([]byte, string, error) {
	key, err := s.ensurePDF(ctx, payslipID)
	if err != nil {
		return nil, "", err
	}
	data, contentType, err := s.Files.Download(ctx, key)
	return data, contentType, err
}

func (s *Service) ensurePDF(ctx context.Context, payslipID string) (string, error) {
	p, err := s.Get(ctx, payslipID)
	if err != nil {
		return "", err
	}
	if p.PDFKey != "" {
		return p.PDFKey, nil
	}
	return s.GeneratePDF(ctx, payslipID)
}
