package allocation

import (
	"fmt"
	"strings"
)

// Validation is the outcome of a submission check. An invalid result is an
// expected state of a half-filled form, so it is a value, not an error.
type Validation struct {
	Valid   bool
	State   State
	Reasons []string
	// FormErrors are the reasons not tied to a single line.
	FormErrors []string
	// LineErrors maps a positional index to the fields missing on that line.
	LineErrors map[int][]string
}

// Validate checks the lines against policy. An empty policy falls back to
// the reconciler's configured one.
func (r *Reconciler) Validate(policy Policy) Validation {
	if policy == "" {
		policy = r.cfg.Policy
	}
	st := r.State()
	v := Validation{State: st, LineErrors: make(map[int][]string)}

	if st.ActiveLines == 0 {
		v.FormErrors = append(v.FormErrors, "at least one line is required")
	}

	for _, l := range r.lines {
		if l.Deleted {
			continue
		}
		missing := l.Missing(r.cfg.RequiredFields)
		if len(missing) == 0 {
			continue
		}
		v.LineErrors[l.Index] = missing
		v.Reasons = append(v.Reasons, fmt.Sprintf("line %d: missing %s", l.Index+1, strings.Join(missing, ", ")))
	}

	if !policy.Allows(st.Status) {
		v.FormErrors = append(v.FormErrors, imbalanceReason(st))
	}
	v.Reasons = append(v.Reasons, v.FormErrors...)

	v.Valid = len(v.Reasons) == 0
	return v
}

func imbalanceReason(st State) string {
	switch st.Status {
	case StatusOver:
		return fmt.Sprintf("over-allocated by %s (target %s, allocated %s)",
			st.Remaining.Neg().StringFixed(2), st.Target.StringFixed(2), st.Allocated.StringFixed(2))
	default:
		return fmt.Sprintf("%s remaining to allocate (target %s, allocated %s)",
			st.Remaining.StringFixed(2), st.Target.StringFixed(2), st.Allocated.StringFixed(2))
	}
}
