package sorter

import (
	"fmt"
	"slices"
	"strings"
)

// Mode is the direction of the sort.
type Mode int

const (
	Ascending Mode = iota
	Descending
)

func (m Mode) String() string {
	if m == Descending {
		return "desc"
	}
	return "asc"
}

// ParseMode accepts "asc", "ascending", "desc" and "descending".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return Ascending, fmt.Errorf("unknown sort order %q", s)
	}
}

// Precedence is the outcome of comparing two lines.
type Precedence int

const (
	// BFirstOrTie keeps b ahead of a, including when both are equal.
	BFirstOrTie Precedence = iota
	// AFirst means a must be emitted before b.
	AFirst
)

// Order compares raw line bytes under m. Equal lines never yield AFirst, so
// an incumbent is never displaced by an equal contender.
func Order(m Mode, a, b string) Precedence {
	c := strings.Compare(a, b)
	if (m == Ascending && c < 0) || (m == Descending && c > 0) {
		return AFirst
	}
	return BFirstOrTie
}

// sortLines sorts ascending and reverses for descending mode.
func sortLines(m Mode, lines []string) {
	slices.Sort(lines)
	if m == Descending {
		slices.Reverse(lines)
	}
}
