// Package rank encodes the three-tier access hierarchy. A rank expresses
// both content restrictiveness and user privilege on the same ordered
// scale: top is the least restricted tier, free the most.
package rank

import (
	"fmt"
	"strings"
)

type Rank int

const (
	Top Rank = iota
	Middle
	Free
)

var names = [...]string{"top", "middle", "free"}

func (r Rank) String() string {
	if r < Top || r > Free {
		return fmt.Sprintf("rank(%d)", int(r))
	}
	return names[r]
}

// Parse maps a stored or user-supplied rank string onto the closed
// enumeration. Unknown values are rejected rather than defaulted so the
// access invariant stays statically checkable.
func Parse(s string) (Rank, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top":
		return Top, nil
	case "middle":
		return Middle, nil
	case "free":
		return Free, nil
	}
	return Free, fmt.Errorf("unknown rank %q", s)
}

// Valid reports whether s names one of the three tiers.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// CanAccess reports whether a user of rank user may view content of rank
// video. A user's tier is an upper bound on the restrictiveness tiers they
// reach: top reaches everything, middle reaches middle and free, free
// reaches only free.
func CanAccess(user, video Rank) bool {
	return user <= video
}

// Visible returns the content ranks reachable from user, most restricted
// tier last. Used for store listings and for the gateway's existence check.
func Visible(user Rank) []Rank {
	out := make([]Rank, 0, 3)
	for r := user; r <= Free; r++ {
		out = append(out, r)
	}
	return out
}

// All returns every rank in restrictiveness order.
func All() []Rank {
	return []Rank{Top, Middle, Free}
}
