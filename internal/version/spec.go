package version

import (
	"fmt"
	"strings"
)

// Op is a constraint operator from a package specification token.
type Op string

const (
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpEqual        Op = "="
	OpRange        Op = "-"
)

// operators are tried longest first so ">=" never parses as ">" + "=...".
var operators = []Op{OpGreaterEqual, OpLessEqual, OpGreater, OpLess, OpEqual}

// Constraint is a version bound attached to a package name. For OpRange both
// Low and High are set and the bound is inclusive on both ends.
type Constraint struct {
	Op   Op
	Low  Triplet
	High Triplet
}

// Admits reports whether a resolved version satisfies the constraint.
func (c Constraint) Admits(v Triplet) bool {
	switch c.Op {
	case OpGreater:
		return v.Compare(c.Low) > 0
	case OpGreaterEqual:
		return v.Compare(c.Low) >= 0
	case OpLess:
		return v.Compare(c.Low) < 0
	case OpLessEqual:
		return v.Compare(c.Low) <= 0
	case OpEqual:
		return v.Equal(c.Low)
	case OpRange:
		return v.Compare(c.Low) >= 0 && v.Compare(c.High) <= 0
	}
	return false
}

func (c Constraint) String() string {
	if c.Op == OpRange {
		return fmt.Sprintf("=%s-%s", c.Low, c.High)
	}
	return string(c.Op) + c.Low.String()
}

// Spec is a parsed package specification: a name plus an optional version
// constraint. Immutable after parse.
type Spec struct {
	Raw        string
	Name       string
	Constraint *Constraint
}

// ParseSpec splits a raw token such as "foo>=1.2.3" into name and
// constraint. A bare name carries no constraint. An "=" operand of the form
// "a-b" where both halves are dotted versions is an inclusive range;
// otherwise the hyphen tail is treated as a release suffix.
func ParseSpec(token string) (Spec, error) {
	for _, op := range operators {
		idx := strings.Index(token, string(op))
		if idx <= 0 {
			continue
		}

		name := token[:idx]
		operand := token[idx+len(op):]
		if operand == "" {
			return Spec{}, fmt.Errorf("spec %q: operator %q has no version operand", token, op)
		}

		constraint, err := parseConstraint(op, operand)
		if err != nil {
			return Spec{}, fmt.Errorf("spec %q: %w", token, err)
		}
		return Spec{Raw: token, Name: name, Constraint: constraint}, nil
	}
	return Spec{Raw: token, Name: token}, nil
}

func parseConstraint(op Op, operand string) (*Constraint, error) {
	// "=1.0-2.0" is a range, "=1.0-1" is a version with a release suffix.
	// The tiebreaker: a range needs dotted versions on both sides of the
	// hyphen.
	if op == OpEqual {
		if idx := strings.IndexByte(operand, '-'); idx > 0 &&
			strings.Contains(operand[:idx], ".") && strings.Contains(operand[idx+1:], ".") {
			low, errLow := Parse(operand[:idx])
			high, errHigh := Parse(operand[idx+1:])
			if errLow == nil && errHigh == nil {
				return &Constraint{Op: OpRange, Low: low, High: high}, nil
			}
		}
	}

	v, err := Parse(operand)
	if err != nil {
		return nil, err
	}
	return &Constraint{Op: op, Low: v}, nil
}
