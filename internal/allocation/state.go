package allocation

import "github.com/shopspring/decimal"

// Status classifies the remaining balance.
type Status string

const (
	StatusBalanced Status = "balanced"
	StatusUnder    Status = "under"
	StatusOver     Status = "over"
)

// Policy decides which statuses may be submitted.
type Policy string

const (
	// PolicyExact requires the lines to add up to the target.
	PolicyExact Policy = "exact"
	// PolicyAtMost allows under-allocation but never over-allocation.
	PolicyAtMost Policy = "at-most"
)

// DefaultTolerance is one currency cent.
var DefaultTolerance = decimal.New(1, -2)

// State is derived from the target and the current lines. It is never
// patched incrementally.
type State struct {
	Target      decimal.Decimal
	Allocated   decimal.Decimal
	Remaining   decimal.Decimal
	Status      Status
	ActiveLines int
	TotalLines  int
}

// Classify maps a remaining amount to a Status given a tolerance.
func Classify(remaining, tolerance decimal.Decimal) Status {
	switch {
	case remaining.Abs().LessThan(tolerance):
		return StatusBalanced
	case remaining.IsPositive():
		return StatusUnder
	default:
		return StatusOver
	}
}

// Allows reports whether the policy accepts the given status.
func (p Policy) Allows(s Status) bool {
	switch p {
	case PolicyAtMost:
		return s == StatusBalanced || s == StatusUnder
	default:
		return s == StatusBalanced
	}
}

// ParsePolicy returns the named policy, or false if the name is unknown.
func ParsePolicy(name string) (Policy, bool) {
	switch Policy(name) {
	case PolicyExact, PolicyAtMost:
		return Policy(name), true
	}
	return "", false
}
