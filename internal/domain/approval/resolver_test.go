package approval

import (
	"context"
	"errors"
	"testing"
)

type fakeDirectory struct {
	supervisor   Person
	hasSuper     bool
	divisionHead Person
	hasHead      bool
	hrHead       Person
	hasHRHead    bool
	admin        Person
	hasAdmin     bool
}

func (f *fakeDirectory) Supervisor(ctx context.Context, employeeID string) (Person, bool, error) {
	return f.supervisor, f.hasSuper, nil
}

func (f *fakeDirectory) DivisionHead(ctx context.Context, employeeID string) (Person, bool, error) {
	return f.divisionHead, f.hasHead, nil
}

func (f *fakeDirectory) HRHead(ctx context.Context) (Person, bool, error) {
	return f.hrHead, f.hasHRHead, nil
}

func (f *fakeDirectory) FirstActiveAdmin(ctx context.Context) (Person, bool, error) {
	return f.admin, f.hasAdmin, nil
}

func TestResolvePrefersDirectSupervisor(t *testing.T) {
	dir := &fakeDirectory{
		supervisor:   Person{ID: "sup-1", AccessLevel: 3, Active: true},
		hasSuper:     true,
		divisionHead: Person{ID: "head-1", AccessLevel: 2, Active: true},
		hasHead:      true,
	}
	got, err := NewResolver(dir).Resolve(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Approver.ID != "sup-1" || got.Type != TypeDirectSupervisor {
		t.Fatalf("got approver %s type %s, want sup-1 direct_supervisor", got.Approver.ID, got.Type)
	}
}

func TestResolveSkipsIneligibleSupervisor(t *testing.T) {
	tests := []struct {
		name       string
		supervisor Person
	}{
		{name: "inactive", supervisor: Person{ID: "sup-1", AccessLevel: 2, Active: false}},
		{name: "staff level", supervisor: Person{ID: "sup-1", AccessLevel: 4, Active: true}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			dir := &fakeDirectory{
				supervisor:   tc.supervisor,
				hasSuper:     true,
				divisionHead: Person{ID: "head-1", AccessLevel: 2, Active: true},
				hasHead:      true,
			}
			got, err := NewResolver(dir).Resolve(context.Background(), "emp-1")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got.Approver.ID != "head-1" || got.Type != TypeDivisionHead {
				t.Fatalf("got approver %s type %s, want head-1 division_head", got.Approver.ID, got.Type)
			}
		})
	}
}

func TestResolveFallsBackToHRHead(t *testing.T) {
	dir := &fakeDirectory{
		divisionHead: Person{ID: "head-1", Active: false},
		hasHead:      true,
		hrHead:       Person{ID: "hr-1", AccessLevel: 2, Active: true},
		hasHRHead:    true,
		admin:        Person{ID: "admin-1", AccessLevel: 1, Active: true},
		hasAdmin:     true,
	}
	got, err := NewResolver(dir).Resolve(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Approver.ID != "hr-1" || got.Type != TypeFallback {
		t.Fatalf("got approver %s type %s, want hr-1 fallback_approver", got.Approver.ID, got.Type)
	}
}

func TestResolveFallsBackToAdmin(t *testing.T) {
	dir := &fakeDirectory{
		admin:    Person{ID: "admin-1", AccessLevel: 1, Active: true},
		hasAdmin: true,
	}
	got, err := NewResolver(dir).Resolve(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Approver.ID != "admin-1" || got.Type != TypeFallback {
		t.Fatalf("got approver %s type %s, want admin-1 fallback_approver", got.Approver.ID, got.Type)
	}
}

func TestResolveNoApprover(t *testing.T) {
	_, err := NewResolver(&fakeDirectory{}).Resolve(context.Background(), "emp-1")
	if !errors.Is(err, ErrNoApprover) {
		t.Fatalf("got %v, want ErrNoApprover", err)
	}
}
