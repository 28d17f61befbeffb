// Package approval resolves who must approve an employee's leave and
// overtime requests. Resolution is an ordered chain: direct supervisor,
// then division head, then HR leadership as a fallback. The winning
// branch is recorded on the request so reviewers can see how the
// approver was chosen.
package approval

import (
	"context"
	"errors"
)

const (
	TypeDirectSupervisor = "direct_supervisor"
	TypeDivisionHead     = "division_head"
	TypeFallback         = "fallback_approver"
)

// ErrNoApprover means the whole chain came up empty. Callers refuse the
// submission rather than leaving a request nobody can decide.
var ErrNoApprover = errors.New("no eligible approver found")

// Person is the slice of an employee record the resolver inspects.
type Person struct {
	ID          string
	FullName    string
	Email       string
	AccessLevel int
	Active      bool
}

// Directory answers the org lookups the chain walks. Lookups report
// found=false instead of an error when the relationship is simply not
// set.
type Directory interface {
	Supervisor(ctx context.Context, employeeID string) (Person, bool, error)
	DivisionHead(ctx context.Context, employeeID string) (Person, bool, error)
	HRHead(ctx context.Context) (Person, bool, error)
	FirstActiveAdmin(ctx context.Context) (Person, bool, error)
}

// Assignment is a resolved approver plus the branch that produced them.
type Assignment struct {
	Approver Person
	Type     string
}

type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve walks the chain and returns the first usable approver. A
// direct supervisor only counts when active with access level 1 to 3; a
// division head or fallback only needs to be active.
func (r *Resolver) Resolve(ctx context.Context, employeeID string) (Assignment, error) {
	sup, found, err := r.dir.Supervisor(ctx, employeeID)
	if err != nil {
		return Assignment{}, err
	}
	if found && sup.Active && sup.AccessLevel >= 1 && sup.AccessLevel <= 3 {
		return Assignment{Approver: sup, Type: TypeDirectSupervisor}, nil
	}

	head, found, err := r.dir.DivisionHead(ctx, employeeID)
	if err != nil {
		return Assignment{}, err
	}
	if found && head.Active {
		return Assignment{Approver: head, Type: TypeDivisionHead}, nil
	}

	hr, found, err := r.dir.HRHead(ctx)
	if err != nil {
		return Assignment{}, err
	}
	if found && hr.Active {
		return Assignment{Approver: hr, Type: TypeFallback}, nil
	}

	admin, found, err := r.dir.FirstActiveAdmin(ctx)
	if err != nil {
		return Assignment{}, err
	}
	if found {
		return Assignment{Approver: admin, Type: TypeFallback}, nil
	}

	return Assignment{}, ErrNoApprover
}
