// Package version implements the dotted version triplets and the constraint
// syntax used in package specifications like "linux>=5.10.4".
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// component is one of major/minor/patch. An absent component is not the same
// as zero: it compares equal to another absent component and as a lower
// bound against any present one, which keeps ordering total for inputs like
// "1.2" versus "1.2.0".
type component struct {
	value   int
	present bool
}

func (c component) compare(other component) int {
	switch {
	case c.present && other.present:
		switch {
		case c.value < other.value:
			return -1
		case c.value > other.value:
			return 1
		}
		return 0
	case !c.present && !other.present:
		return 0
	case c.present:
		return 1
	default:
		return -1
	}
}

// Triplet is an ordered (major, minor, patch) with an optional trailing
// release suffix, parsed from a dot/hyphen-delimited string such as
// "1.2.3-2". The raw string is retained so formatting round-trips.
type Triplet struct {
	raw     string
	major   component
	minor   component
	patch   component
	release string
}

// Parse builds a Triplet from a raw version string.
func Parse(raw string) (Triplet, error) {
	t := Triplet{raw: raw}

	numeric := raw
	if idx := strings.IndexByte(raw, '-'); idx >= 0 {
		numeric = raw[:idx]
		t.release = raw[idx+1:]
	}

	parts := strings.Split(numeric, ".")
	if len(parts) > 3 {
		return Triplet{}, fmt.Errorf("version %q has more than three components", raw)
	}
	fields := []*component{&t.major, &t.minor, &t.patch}
	for i, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil || part == "" {
			return Triplet{}, fmt.Errorf("version %q: component %q is not numeric", raw, part)
		}
		fields[i].value = value
		fields[i].present = true
	}
	if !t.major.present {
		return Triplet{}, fmt.Errorf("version %q has no major component", raw)
	}
	return t, nil
}

// String returns the raw string the triplet was parsed from.
func (t Triplet) String() string {
	return t.raw
}

// Compare orders two triplets major→minor→patch→release and returns
// -1, 0 or 1. It never bails out on partially absent fields, so ordering is
// a strict total preorder.
func (t Triplet) Compare(other Triplet) int {
	if c := t.major.compare(other.major); c != 0 {
		return c
	}
	if c := t.minor.compare(other.minor); c != 0 {
		return c
	}
	if c := t.patch.compare(other.patch); c != 0 {
		return c
	}
	return compareRelease(t.release, other.release)
}

// Equal reports component-wise equality, absent components included.
func (t Triplet) Equal(other Triplet) bool {
	return t.Compare(other) == 0
}

// Less reports whether t orders strictly before other.
func (t Triplet) Less(other Triplet) bool {
	return t.Compare(other) < 0
}

// compareRelease orders release suffixes. An absent suffix orders before any
// present one. Present suffixes are split into maximal digit and non-digit
// runs compared pairwise: digit runs by numeric value, non-digit runs
// lexicographically, and a digit run orders after a non-digit one. When one
// suffix is a segment-prefix of the other the shorter orders first. Every
// rule is a total order on its segment class, so the whole comparison stays
// transitive however numeric and alphanumeric suffixes mix.
func compareRelease(a, b string) int {
	if a == "" || b == "" {
		switch {
		case a == b:
			return 0
		case a == "":
			return -1
		}
		return 1
	}

	segsA := releaseSegments(a)
	segsB := releaseSegments(b)
	for i := 0; i < len(segsA) && i < len(segsB); i++ {
		if c := compareSegment(segsA[i], segsB[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(segsA) < len(segsB):
		return -1
	case len(segsA) > len(segsB):
		return 1
	}
	return 0
}

// releaseSegments splits a suffix into maximal runs of digits and non-digits:
// "1a12" becomes ["1" "a" "12"].
func releaseSegments(s string) []string {
	var segs []string
	start := 0
	for i := 1; i <= len(s); i++ {
		if i == len(s) || isDigit(s[i]) != isDigit(s[start]) {
			segs = append(segs, s[start:i])
			start = i
		}
	}
	return segs
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// compareSegment orders two segment runs. Digit runs compare by value
// (leading zeros stripped, then length before content, so arbitrarily long
// runs never overflow) and sort after non-digit runs.
func compareSegment(a, b string) int {
	numA := isDigit(a[0])
	numB := isDigit(b[0])
	switch {
	case numA && !numB:
		return 1
	case !numA && numB:
		return -1
	case numA && numB:
		a = strings.TrimLeft(a, "0")
		b = strings.TrimLeft(b, "0")
		switch {
		case len(a) < len(b):
			return -1
		case len(a) > len(b):
			return 1
		}
	}
	return strings.Compare(a, b)
}
