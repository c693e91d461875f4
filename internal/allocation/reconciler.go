package allocation

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Config holds the per-form knobs.
type Config struct {
	Policy         Policy
	AutoAppend     bool
	RequiredFields []string // in addition to category and amount
	MinLines       int      // blank lines synthesized when nothing is restored
	Tolerance      decimal.Decimal
	Description    string // prefill for synthesized and auto-appended lines
}

func (c Config) tolerance() decimal.Decimal {
	if c.Tolerance.IsPositive() {
		return c.Tolerance
	}
	return DefaultTolerance
}

// Reconciler owns the lines of one form and derives its balance. It is not
// safe for concurrent use.
type Reconciler struct {
	target decimal.Decimal
	cfg    Config
	lines  []Line
}

// New creates a Reconciler for target (taken as a magnitude) and restores
// existing lines in positional order. Restored lines are re-indexed 0..N-1
// and given an ID when they have none.
func New(target decimal.Decimal, cfg Config, existing ...Line) *Reconciler {
	r := &Reconciler{
		target: target.Abs(),
		cfg:    cfg,
		lines:  make([]Line, 0, len(existing)),
	}
	for i, l := range existing {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.Index = i
		r.lines = append(r.lines, l)
	}
	if len(r.lines) == 0 {
		for i := 0; i < cfg.MinLines; i++ {
			r.addLine(Line{Description: cfg.Description})
		}
	}
	return r
}

// Target returns the amount to distribute.
func (r *Reconciler) Target() decimal.Decimal { return r.target }

// Config returns the reconciler's configuration.
func (r *Reconciler) Config() Config { return r.cfg }

// Lines returns a copy of every line, deleted ones included, in positional order.
func (r *Reconciler) Lines() []Line {
	out := make([]Line, len(r.lines))
	copy(out, r.lines)
	return out
}

// Line returns the line with the given id.
func (r *Reconciler) Line(id uuid.UUID) (Line, bool) {
	if i := r.find(id); i >= 0 {
		return r.lines[i], true
	}
	return Line{}, false
}

// AddLine appends a line at the next positional index. Only the content
// fields of prefill are used.
func (r *Reconciler) AddLine(prefill Line) Line {
	return r.addLine(prefill)
}

// UpdateLine applies patch to the line with the given id. Unknown ids are
// ignored.
func (r *Reconciler) UpdateLine(id uuid.UUID, patch Patch) State {
	i := r.find(id)
	if i < 0 {
		return r.State()
	}
	patch.apply(&r.lines[i])
	if r.cfg.AutoAppend {
		r.autoAppend(i)
	}
	return r.State()
}

// SoftDeleteLine marks the line deleted. It keeps its slot and every other
// line keeps its index. Unknown ids are ignored.
func (r *Reconciler) SoftDeleteLine(id uuid.UUID) State {
	i := r.find(id)
	if i < 0 {
		return r.State()
	}
	r.lines[i].Deleted = true
	if r.cfg.AutoAppend {
		r.autoAppend(-1)
	}
	return r.State()
}

// State recomputes the balance from scratch.
func (r *Reconciler) State() State {
	allocated := decimal.Zero
	active := 0
	for _, l := range r.lines {
		if l.Deleted {
			continue
		}
		active++
		allocated = allocated.Add(l.Contribution())
	}
	remaining := r.target.Sub(allocated)
	return State{
		Target:      r.target,
		Allocated:   allocated,
		Remaining:   remaining,
		Status:      Classify(remaining, r.cfg.tolerance()),
		ActiveLines: active,
		TotalLines:  len(r.lines),
	}
}

func (r *Reconciler) addLine(prefill Line) Line {
	next := 0
	for _, l := range r.lines {
		if l.Index >= next {
			next = l.Index + 1
		}
	}
	l := Line{
		ID:          uuid.New(),
		Index:       next,
		CategoryRef: prefill.CategoryRef,
		Amount:      prefill.Amount,
		Notes:       prefill.Notes,
		Description: prefill.Description,
	}
	r.lines = append(r.lines, l)
	return l
}

func (r *Reconciler) find(id uuid.UUID) int {
	for i := range r.lines {
		if r.lines[i].ID == id {
			return i
		}
	}
	return -1
}

// autoAppend keeps a trailing line carrying the remainder. When the edited
// line is complete and the next active line is also the last one, that line's
// amount is rewritten. Otherwise, if the last active line is complete and the
// form is under-allocated, a line prefilled with the remainder is appended.
// edited is -1 when the mutation was a soft delete.
func (r *Reconciler) autoAppend(edited int) {
	if edited >= 0 && r.rewriteFollower(edited) {
		return
	}

	last := r.lastActive()
	if last < 0 || !r.lines[last].Complete(r.cfg.RequiredFields) {
		return
	}
	if st := r.State(); st.Status == StatusUnder {
		r.addLine(Line{Amount: st.Remaining, Description: r.cfg.Description})
	}
}

// rewriteFollower reports whether the edited line had an active follower
// that is the last active line. Its amount becomes the remainder when the
// form would otherwise be under-allocated.
func (r *Reconciler) rewriteFollower(edited int) bool {
	anchor := r.lines[edited]
	if anchor.Deleted || !anchor.Complete(r.cfg.RequiredFields) {
		return false
	}

	follower := -1
	for i := range r.lines {
		if r.lines[i].Deleted || r.lines[i].Index <= anchor.Index {
			continue
		}
		if follower < 0 || r.lines[i].Index < r.lines[follower].Index {
			follower = i
		}
	}
	if follower < 0 || !r.isLastActive(follower) {
		return false
	}

	rest := r.target.Sub(r.State().Allocated.Sub(r.lines[follower].Contribution()))
	if Classify(rest, r.cfg.tolerance()) == StatusUnder {
		r.lines[follower].Amount = rest
	}
	return true
}

// lastActive returns the position of the active line with the highest index,
// or -1.
func (r *Reconciler) lastActive() int {
	last := -1
	for i := range r.lines {
		if r.lines[i].Deleted {
			continue
		}
		if last < 0 || r.lines[i].Index > r.lines[last].Index {
			last = i
		}
	}
	return last
}

func (r *Reconciler) isLastActive(i int) bool {
	for j := range r.lines {
		if !r.lines[j].Deleted && r.lines[j].Index > r.lines[i].Index {
			return false
		}
	}
	return true
}
