package payslip

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/org"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/storage"
)

var (
	ErrPayslipNotFound = errors.New("payslip not found")
	ErrDuplicatePeriod = errors.New("payslip already exists for this period")
	ErrInvalidPeriod   = errors.New("pay period must be in YYYY-MM form")
	ErrInvalidStatus   = errors.New("invalid payslip status")
	ErrNegativeAmount  = errors.New("salary components cannot be negative")
)

type Service struct {
	Store *Store
	Org   *org.Store
	Files storage.FileStore
}

func NewService(store *Store, orgStore *org.Store, files storage.FileStore) *Service {
	return &Service{Store: store, Org: orgStore, Files: files}
}

type CreateInput struct {
	EmployeeID string
	PayPeriod  string
	Components Components
	Notes      string
	CreatedBy  string
	MarkPaid   bool
}

// Create validates the input, derives gross and net from the
// components and persists the payslip. One non-deleted payslip per
// employee and period.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Payslip, error) {
	if _, err := time.Parse("2006-01", in.PayPeriod); err != nil {
		return nil, ErrInvalidPeriod
	}
	for _, amount := range []float64{
		in.Components.BasicSalary, in.Components.OvertimePay, in.Components.Allowances,
		in.Components.Bonus, in.Components.OtherEarnings, in.Components.IncomeTax,
		in.Components.BPJSKesehatan, in.Components.BPJSKetenagakerjaan,
		in.Components.LoanDeduction, in.Components.OtherDeductions,
	} {
		if amount < 0 {
			return nil, ErrNegativeAmount
		}
	}

	if _, err := s.Org.GetEmployee(ctx, in.EmployeeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, org.ErrEmployeeNotFound
		}
		return nil, err
	}

	exists, err := s.Store.PeriodExists(ctx, in.EmployeeID, in.PayPeriod)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicatePeriod
	}

	gross, _, net := Totals(in.Components)
	p := &Payslip{
		EmployeeID:  in.EmployeeID,
		PayPeriod:   in.PayPeriod,
		Components:  in.Components,
		GrossSalary: gross,
		NetSalary:   net,
		Status:      StatusPending,
		Notes:       in.Notes,
		CreatedBy:   in.CreatedBy,
	}
	if in.MarkPaid {
		now := time.Now()
		p.Status = StatusPaid
		p.PaidDate = &now
	}

	id, err := s.Store.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, payslipID string) (*Payslip, error) {
	p, err := s.Store.Get(ctx, payslipID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPayslipNotFound
	}
	return p, err
}

func (s *Service) EmployeePayslips(ctx context.Context, employeeID string, limit int) ([]Payslip, error) {
	return s.Store.ListByEmployee(ctx, employeeID, limit)
}

func (s *Service) PeriodPayslips(ctx context.Context, period, divisionID string) ([]Payslip, error) {
	if _, err := time.Parse("2006-01", period); err != nil {
		return nil, ErrInvalidPeriod
	}
	return s.Store.ListByPeriod(ctx, period, divisionID)
}

// UpdateStatus moves a payslip between pending and paid. Marking paid
// stamps the paid date.
func (s *Service) UpdateStatus(ctx context.Context, payslipID, status, actorID string) error {
	paidDate, err := statusChange(status)
	if err != nil {
		return err
	}
	updated, err := s.Store.UpdateStatus(ctx, payslipID, status, actorID, paidDate)
	if err != nil {
		return err
	}
	if !updated {
		return ErrPayslipNotFound
	}
	return nil
}

func (s *Service) BulkUpdateStatus(ctx context.Context, payslipIDs []string, status, actorID string) (int, error) {
	paidDate, err := statusChange(status)
	if err != nil {
		return 0, err
	}
	return s.Store.BulkUpdateStatus(ctx, payslipIDs, status, actorID, paidDate)
}

func (s *Service) Delete(ctx context.Context, payslipID string) error {
	deleted, err := s.Store.SoftDelete(ctx, payslipID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrPayslipNotFound
	}
	return nil
}

// Statistics aggregates the year's payslips, current year when zero,
// optionally for a single employee.
func (s *Service) Statistics(ctx context.Context, employeeID string, year int) (*Stats, error) {
	if year == 0 {
		year = time.Now().Year()
	}
	return s.Store.StatsFor(ctx, employeeID, year)
}

// PayrollSummary builds the period roll-up for the admin report.
func (s *Service) PayrollSummary(ctx context.Context, period, divisionID string) (*Summary, error) {
	payslips, err := s.PeriodPayslips(ctx, period, divisionID)
	if err != nil {
		return nil, err
	}
	return Summarize(payslips), nil
}

func statusChange(status string) (*time.Time, error) {
	switch status {
	case StatusPaid:
		now := time.Now()
		return &now, nil
	case StatusPending:
		return nil, nil
	default:
		return nil, ErrInvalidStatus
	}
}
