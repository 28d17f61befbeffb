package org

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/auth"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/email"
)

var (
	ErrDuplicateEmail       = errors.New("email already in use")
	ErrDivisionNotFound     = errors.New("division not found")
	ErrDivisionNotEmpty     = errors.New("division still has employees assigned")
	ErrRoleNotEmpty         = errors.New("role still has employees assigned")
	ErrInvalidAccessLevel   = errors.New("access level must be between 1 and 4")
	ErrInvalidGender        = errors.New("gender must be male or female")
	ErrSupervisorIneligible = errors.New("supervisor must be an active employee with access level 1 to 3")
	ErrSupervisorCycle      = errors.New("supervisor assignment would create a reporting cycle")
)

// Supervisor chains deeper than this are treated as cyclic. The org is
// small; a legitimate chain never gets close.
const maxSupervisorDepth = 10

type Service struct {
	Store  *Store
	Mailer email.Mailer
	From   string
}

func NewService(store *Store, mailer email.Mailer, from string) *Service {
	return &Service{Store: store, Mailer: mailer, From: from}
}

// CreateEmployeeInput carries the new record plus the free-form job
// title, which is resolved to a role on the fly.
type CreateEmployeeInput struct {
	Employee
	RoleName string
}

// CreateEmployeeResult includes the generated temporary password. It is
// returned exactly once so the admin can hand it to the new employee;
// only its hash is stored.
type CreateEmployeeResult struct {
	EmployeeID   string
	UserID       string
	TempPassword string
}

// CreateEmployee provisions the employee record and its login in one
// transaction. The account starts with a temporary password and is
// forced to change it on first sign-in.
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*CreateEmployeeResult, error) {
	emp := in.Employee
	if err := s.normalizeEmployee(ctx, &emp, in.RoleName); err != nil {
		return nil, err
	}

	taken, err := s.Store.EmailTaken(ctx, emp.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrDuplicateEmail
	}

	if emp.SupervisorID != "" {
		if err := s.checkSupervisorEligible(ctx, emp.SupervisorID); err != nil {
			return nil, err
		}
	}

	tempPassword, err := auth.GenerateTempPassword(12)
	if err != nil {
		return nil, fmt.Errorf("generate temp password: %w", err)
	}
	hash, err := auth.HashPassword(tempPassword)
	if err != nil {
		return nil, fmt.Errorf("hash temp password: %w", err)
	}

	emp.IsActive = true
	employeeID, userID, err := s.Store.CreateEmployeeWithUser(ctx, emp, hash, true)
	if err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}

	if s.Mailer != nil {
		subject, body := welcomeEmail(emp.FullName, emp.Email, tempPassword)
		if err := s.Mailer.Send(ctx, s.From, emp.Email, subject, body); err != nil {
			slog.Warn("welcome email failed", "employeeId", employeeID, "err", err)
		}
	}

	return &CreateEmployeeResult{
		EmployeeID:   employeeID,
		UserID:       userID,
		TempPassword: tempPassword,
	}, nil
}

func welcomeEmail(fullName, emailAddr, tempPassword string) (subject, body string) {
	subject = "Your Account - Datarhaya HR System"
	body = fmt.Sprintf(`Hello %s,

An account has been created for you in the HR system.

Email: %s
TEMPORARY PASSWORD: %s

You will be asked to set your own password the first time you sign in.
Contact HR if anything looks wrong.

---
This is an automated message from the Datarhaya HR system.
Do not reply to this email.
`, fullName, emailAddr, tempPassword)
	return subject, body
}

func (s *Service) GetEmployee(ctx context.Context, employeeID string) (*Employee, error) {
	emp, err := s.Store.GetEmployee(ctx, employeeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmployeeNotFound
	}
	return emp, err
}

// ListEmployees returns one page of matches plus the unpaged total for
// the X-Total-Count header.
func (s *Service) ListEmployees(ctx context.Context, filter ListFilter) ([]Employee, int, error) {
	employees, err := s.Store.ListEmployees(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.CountEmployees(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return employees, total, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, employeeID string, in CreateEmployeeInput) error {
	current, err := s.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}

	emp := in.Employee
	if err := s.normalizeEmployee(ctx, &emp, in.RoleName); err != nil {
		return err
	}

	if !strings.EqualFold(emp.Email, current.Email) {
		taken, err := s.Store.EmailTaken(ctx, emp.Email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken {
			return ErrDuplicateEmail
		}
	}

	return s.Store.UpdateEmployee(ctx, employeeID, emp)
}

// normalizeEmployee applies the field rules shared by create and
// update: access level range, lowercase gender, division existence and
// job-title resolution.
func (s *Service) normalizeEmployee(ctx context.Context, emp *Employee, roleName string) error {
	if !auth.ValidLevel(emp.AccessLevel) {
		return ErrInvalidAccessLevel
	}
	emp.Gender = strings.ToLower(strings.TrimSpace(emp.Gender))
	if emp.Gender != "" && emp.Gender != GenderMale && emp.Gender != GenderFemale {
		return ErrInvalidGender
	}
	if emp.DivisionID != "" {
		exists, err := s.Store.DivisionExists(ctx, emp.DivisionID)
		if err != nil {
			return fmt.Errorf("check division: %w", err)
		}
		if !exists {
			return ErrDivisionNotFound
		}
	}
	if roleName = strings.TrimSpace(roleName); roleName != "" {
		roleID, err := s.Store.GetOrCreateRole(ctx, roleName)
		if err != nil {
			return fmt.Errorf("resolve role: %w", err)
		}
		emp.RoleID = roleID
	}
	return nil
}

// AssignSupervisor points the employee at a new supervisor after
// checking eligibility and that the edge keeps the reporting graph
// acyclic. An empty supervisorID clears the assignment.
func (s *Service) AssignSupervisor(ctx context.Context, employeeID, supervisorID string) error {
	if supervisorID == "" {
		return s.Store.SetSupervisor(ctx, employeeID, "")
	}
	if supervisorID == employeeID {
		return ErrSupervisorCycle
	}
	if err := s.checkSupervisorEligible(ctx, supervisorID); err != nil {
		return err
	}
	cyclic, err := wouldCreateCycle(ctx, s.Store.SupervisorOf, employeeID, supervisorID)
	if err != nil {
		return fmt.Errorf("walk supervisor chain: %w", err)
	}
	if cyclic {
		return ErrSupervisorCycle
	}
	return s.Store.SetSupervisor(ctx, employeeID, supervisorID)
}

func (s *Service) checkSupervisorEligible(ctx context.Context, supervisorID string) error {
	sup, err := s.GetEmployee(ctx, supervisorID)
	if errors.Is(err, ErrEmployeeNotFound) {
		return ErrSupervisorIneligible
	}
	if err != nil {
		return err
	}
	if !sup.IsActive || sup.AccessLevel < auth.LevelAdmin || sup.AccessLevel > auth.LevelSupervisor {
		return ErrSupervisorIneligible
	}
	return nil
}

// wouldCreateCycle reports whether making supervisorID the supervisor
// of employeeID closes a loop. It walks up from the proposed supervisor
// through at most maxSupervisorDepth links.
func wouldCreateCycle(ctx context.Context, supervisorOf func(context.Context, string) (string, error), employeeID, supervisorID string) (bool, error) {
	current := supervisorID
	for depth := 0; depth < maxSupervisorDepth; depth++ {
		if current == "" {
			return false, nil
		}
		if current == employeeID {
			return true, nil
		}
		next, err := supervisorOf(ctx, current)
		if err != nil {
			return false, err
		}
		current = next
	}
	return true, nil
}

// Deactivate marks the employee inactive and ends their live sessions.
// The record and its history stay.
func (s *Service) Deactivate(ctx context.Context, employeeID string) error {
	if err := s.Store.SetEmployeeActive(ctx, employeeID, false); err != nil {
		return err
	}
	return s.Store.RevokeEmployeeSessions(ctx, employeeID)
}

func (s *Service) Reactivate(ctx context.Context, employeeID string) error {
	return s.Store.SetEmployeeActive(ctx, employeeID, true)
}

// ApprovalScope lists the active employees whose requests the approver
// is entitled to see: direct reports, plus members of any division they
// head. Display only; decision rights are re-derived per request.
func (s *Service) ApprovalScope(ctx context.Context, approverID string) ([]Employee, error) {
	reports, err := s.Store.ListDirectReports(ctx, approverID)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{approverID: true}
	var out []Employee
	for _, emp := range reports {
		if !seen[emp.ID] {
			seen[emp.ID] = true
			out = append(out, emp)
		}
	}

	divisionIDs, err := s.Store.DivisionsHeadedBy(ctx, approverID)
	if err != nil {
		return nil, err
	}
	for _, divisionID := range divisionIDs {
		members, err := s.Store.ListDivisionMembers(ctx, divisionID)
		if err != nil {
			return nil, err
		}
		for _, emp := range members {
			if !seen[emp.ID] {
				seen[emp.ID] = true
				out = append(out, emp)
			}
		}
	}
	return out, nil
}

func (s *Service) CreateDivision(ctx context.Context, code, name string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return "", errors.New("division code and name are required")
	}
	return s.Store.CreateDivision(ctx, code, name)
}

// SetDivisionHead assigns the division's head, who becomes the second
// approver-resolution step for its members.
func (s *Service) SetDivisionHead(ctx context.Context, divisionID, employeeID string) error {
	exists, err := s.Store.DivisionExists(ctx, divisionID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrDivisionNotFound
	}
	if employeeID != "" {
		if err := s.checkSupervisorEligible(ctx, employeeID); err != nil {
			return err
		}
	}
	return s.Store.SetDivisionHead(ctx, divisionID, employeeID)
}

func (s *Service) DeleteDivision(ctx context.Context, divisionID string) error {
	count, err := s.Store.DivisionMemberCount(ctx, divisionID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrDivisionNotEmpty
	}
	return s.Store.DeleteDivision(ctx, divisionID)
}

func (s *Service) DeleteRole(ctx context.Context, roleID string) error {
	count, err := s.Store.RoleMemberCount(ctx, roleID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrRoleNotEmpty
	}
	return s.Store.DeleteRole(ctx, roleID)
}
