package org

import (
	"context"
	"testing"
)

func chainLookup(chain map[string]string) func(context.Context, string) (string, error) {
	return func(ctx context.Context, employeeID string) (string, error) {
		return chain[employeeID], nil
	}
}

func TestWouldCreateCycle(t *testing.T) {
	tests := []struct {
		name         string
		chain        map[string]string
		employeeID   string
		supervisorID string
		want         bool
	}{
		{
			name:         "no existing chain",
			chain:        map[string]string{},
			employeeID:   "a",
			supervisorID: "b",
			want:         false,
		},
		{
			name:         "direct loop back",
			chain:        map[string]string{"b": "a"},
			employeeID:   "a",
			supervisorID: "b",
			want:         true,
		},
		{
			name:         "loop through intermediary",
			chain:        map[string]string{"c": "b", "b": "a"},
			employeeID:   "a",
			supervisorID: "c",
			want:         true,
		},
		{
			name:         "legitimate deep chain",
			chain:        map[string]string{"d": "c", "c": "b", "b": ""},
			employeeID:   "a",
			supervisorID: "d",
			want:         false,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := wouldCreateCycle(context.Background(), chainLookup(tc.chain), tc.employeeID, tc.supervisorID)
			if err != nil {
				t.Fatalf("wouldCreateCycle: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWouldCreateCycleDepthCap(t *testing.T) {
	chain := map[string]string{}
	prev := ""
	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		chain[id] = prev
		prev = id
	}
	got, err := wouldCreateCycle(context.Background(), chainLookup(chain), "zz", prev)
	if err != nil {
		t.Fatalf("wouldCreateCycle: %v", err)
	}
	if !got {
		t.Fatal("chains beyond the depth cap should be treated as cyclic")
	}
}
