package scoring

import "github.com/pmezard/go-difflib/difflib"

// Op classifies one run of an alignment.
type Op byte

// Alignment operations, named from the performer's point of view.
const (
	// OpEqual marks tokens present identically on both sides.
	OpEqual Op = 'e'
	// OpReplace marks a performed run that stands in for a target run.
	OpReplace Op = 'r'
	// OpDelete marks performed tokens with no target counterpart (extra).
	OpDelete Op = 'd'
	// OpInsert marks target tokens the performance never reached (missing).
	OpInsert Op = 'i'
)

// String returns the difflib name of the operation.
func (o Op) String() string {
	switch o {
	case OpEqual:
		return "equal"
	case OpReplace:
		return "replace"
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	default:
		return "unknown"
	}
}

// Opcode is one run of the edit script turning performed into target:
// performed[P1:P2] relates to target[T1:T2] as described by Op.
type Opcode struct {
	Op     Op
	P1, P2 int
	T1, T2 int
}

// Align computes the edit script between the performed and target token
// sequences using longest-matching-block alignment. Opcodes cover both
// sequences completely and in order.
func Align(performed, target []string) []Opcode {
	if len(performed) == 0 && len(target) == 0 {
		return nil
	}
	codes := difflib.NewMatcher(performed, target).GetOpCodes()
	out := make([]Opcode, 0, len(codes))
	for _, c := range codes {
		out = append(out, Opcode{Op: Op(c.Tag), P1: c.I1, P2: c.I2, T1: c.J1, T2: c.J2})
	}
	return out
}
