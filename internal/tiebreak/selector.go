// Package tiebreak picks the dimension to explore from the four self-ratings.
package tiebreak

import (
	"fmt"
	"sort"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/config"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// Policy decides what happens when more than one dimension holds the maximum.
type Policy string

const (
	// Explicit hands the tied keys back for the user to choose.
	Explicit Policy = "explicit"
	// FixedPriority takes the first tied key in the selector's order.
	FixedPriority Policy = "fixed_priority"
)

// Min and Max bound a single rating.
const (
	Min = 1
	Max = 5
)

// Ratings maps each dimension key to its rating.
type Ratings map[string]int

// Outcome is the result of Select. Exactly one of Key or Tied is set.
type Outcome struct {
	Key  string   `json:"key,omitempty"`
	Tied []string `json:"tied,omitempty"`
}

// NeedsUserChoice reports whether the user must pick among Tied.
func (o Outcome) NeedsUserChoice() bool {
	return o.Key == "" && len(o.Tied) > 1
}

type Selector struct {
	policy Policy
	order  []string
}

// New returns a selector. An empty order means the canonical dimension order.
func New(policy Policy, order []string) (*Selector, error) {
	const op = "tie-break selector"

	switch policy {
	case "":
		policy = Explicit
	case Explicit, FixedPriority:
	default:
		return nil, types.ConfigurationError(op, fmt.Sprintf("unknown tie-break policy %q", policy), nil)
	}

	if len(order) == 0 {
		order = config.DimensionKeys
	}
	if !sameKeys(order, config.DimensionKeys) {
		return nil, types.ConfigurationError(op, fmt.Sprintf("priority order %v must hold each of %v once", order, config.DimensionKeys), nil)
	}
	return &Selector{policy: policy, order: append([]string(nil), order...)}, nil
}

// Policy returns the active policy.
func (s *Selector) Policy() Policy { return s.policy }

// Select finds the top-rated dimension. Ties come back in canonical order
// under Explicit and are broken by priority under FixedPriority.
func (s *Selector) Select(r Ratings) (Outcome, error) {
	if err := Validate(r); err != nil {
		return Outcome{}, err
	}

	top := Min
	for _, v := range r {
		top = max(top, v)
	}

	var tied []string
	for _, k := range config.DimensionKeys {
		if r[k] == top {
			tied = append(tied, k)
		}
	}

	if len(tied) == 1 {
		return Outcome{Key: tied[0]}, nil
	}
	if s.policy == FixedPriority {
		return Outcome{Key: s.first(tied)}, nil
	}
	return Outcome{Tied: tied}, nil
}

// Resolve accepts the user's pick among tied keys.
func Resolve(tied []string, key string) (string, error) {
	for _, k := range tied {
		if k == key {
			return key, nil
		}
	}
	return "", types.InvalidInputError("resolve tie", fmt.Sprintf("%q is not one of %v", key, tied))
}

// Validate checks that r holds exactly the four dimension keys, each in [Min, Max].
func Validate(r Ratings) error {
	const op = "validate ratings"

	if len(r) != len(config.DimensionKeys) {
		return types.InvalidInputError(op, fmt.Sprintf("expected %d ratings, got %d", len(config.DimensionKeys), len(r)))
	}
	for _, k := range config.DimensionKeys {
		v, ok := r[k]
		if !ok {
			return types.InvalidInputError(op, fmt.Sprintf("missing rating for %q", k))
		}
		if v < Min || v > Max {
			return types.InvalidInputError(op, fmt.Sprintf("rating for %q is %d, want %d..%d", k, v, Min, Max))
		}
	}
	return nil
}

func (s *Selector) first(tied []string) string {
	in := make(map[string]bool, len(tied))
	for _, k := range tied {
		in[k] = true
	}
	for _, k := range s.order {
		if in[k] {
			return k
		}
	}
	return tied[0]
}

func sameKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
