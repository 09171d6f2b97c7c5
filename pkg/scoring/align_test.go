package scoring_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/singalong/pkg/scoring"
)

func TestAlign(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		performed string
		target    string
		want      []scoring.Opcode
	}{
		{
			name:      "both empty",
			performed: "",
			target:    "",
			want:      nil,
		},
		{
			name:      "identical",
			performed: "a b c",
			target:    "a b c",
			want:      []scoring.Opcode{{Op: scoring.OpEqual, P1: 0, P2: 3, T1: 0, T2: 3}},
		},
		{
			name:      "nothing performed",
			performed: "",
			target:    "a b",
			want:      []scoring.Opcode{{Op: scoring.OpInsert, P1: 0, P2: 0, T1: 0, T2: 2}},
		},
		{
			name:      "extra leading token",
			performed: "hey a b",
			target:    "a b",
			want: []scoring.Opcode{
				{Op: scoring.OpDelete, P1: 0, P2: 1, T1: 0, T2: 0},
				{Op: scoring.OpEqual, P1: 1, P2: 3, T1: 0, T2: 2},
			},
		},
		{
			name:      "replaced tail",
			performed: "a b x y z",
			target:    "a b q",
			want: []scoring.Opcode{
				{Op: scoring.OpEqual, P1: 0, P2: 2, T1: 0, T2: 2},
				{Op: scoring.OpReplace, P1: 2, P2: 5, T1: 2, T2: 3},
			},
		},
		{
			name:      "skipped middle",
			performed: "a d",
			target:    "a b c d",
			want: []scoring.Opcode{
				{Op: scoring.OpEqual, P1: 0, P2: 1, T1: 0, T2: 1},
				{Op: scoring.OpInsert, P1: 1, P2: 1, T1: 1, T2: 3},
				{Op: scoring.OpEqual, P1: 1, P2: 2, T1: 3, T2: 4},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := scoring.Align(strings.Fields(tc.performed), strings.Fields(tc.target))
			if !slices.Equal(got, tc.want) {
				t.Errorf("Align() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestOpString(t *testing.T) {
	t.Parallel()

	for op, want := range map[scoring.Op]string{
		scoring.OpEqual:   "equal",
		scoring.OpReplace: "replace",
		scoring.OpDelete:  "delete",
		scoring.OpInsert:  "insert",
		scoring.Op('?'):   "unknown",
	} {
		if got := op.String(); got != want {
			t.Errorf("Op(%q).String() = %q, want %q", byte(op), got, want)
		}
	}
}
