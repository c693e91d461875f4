package submission

import (
	"context"
	"net/url"

	"github.com/budgetbox/budgetbox/internal/allocation"
	"github.com/budgetbox/budgetbox/internal/catalog"
	"github.com/budgetbox/budgetbox/internal/formset"
	"github.com/budgetbox/budgetbox/internal/model"
)

// StateView is the JSON rendition of an allocation.State.
type StateView struct {
	Target      string `json:"target"`
	Allocated   string `json:"allocated"`
	Remaining   string `json:"remaining"`
	Status      string `json:"status"`
	ActiveLines int    `json:"active_lines"`
	TotalLines  int    `json:"total_lines"`
}

// NewStateView formats st with two decimals.
func NewStateView(st allocation.State) StateView {
	return StateView{
		Target:      st.Target.StringFixed(2),
		Allocated:   st.Allocated.StringFixed(2),
		Remaining:   st.Remaining.StringFixed(2),
		Status:      string(st.Status),
		ActiveLines: st.ActiveLines,
		TotalLines:  st.TotalLines,
	}
}

// TransactionView is the transaction summary shown above a form.
type TransactionView struct {
	ID          int    `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
}

// Knobs are the reconciler settings the client mirrors.
type Knobs struct {
	Policy         string   `json:"policy"`
	AutoAppend     bool     `json:"auto_append"`
	RequiredFields []string `json:"required_fields"`
	MinLines       int      `json:"min_lines"`
	Tolerance      string   `json:"tolerance"`
}

// Form is everything a client needs to render one form.
type Form struct {
	Kind        string             `json:"kind"`
	Prefix      string             `json:"prefix"`
	Transaction TransactionView    `json:"transaction"`
	State       StateView          `json:"state"`
	Initial     map[string]string  `json:"initial"`
	Categories  []model.Descriptor `json:"categories"`
	Config      Knobs              `json:"config"`
}

// Form builds the initial state of a form for a transaction. The returned
// Result is only meaningful when ok is false.
func (s *Service) Form(ctx context.Context, kind Kind, txID int) (Form, Result, bool) {
	tx, res, ok := s.load(ctx, kind, txID)
	if !ok {
		return Form{}, res, false
	}

	acfg, err := s.cfg.Allocation(string(kind), tx.Description)
	if err != nil {
		return Form{}, failure(), false
	}
	r := allocation.New(tx.Magnitude(), acfg)

	return Form{
		Kind:   string(kind),
		Prefix: Prefix,
		Transaction: TransactionView{
			ID:          tx.ID,
			Date:        tx.Date.Format("2006-01-02"),
			Description: tx.Description,
			Amount:      tx.Amount.StringFixed(2),
			Type:        string(tx.Type),
		},
		State:      NewStateView(r.State()),
		Initial:    flatten(formset.Encode(Prefix, r.Lines())),
		Categories: s.deps.Catalog.Descriptors(catalog.Filter{FundManaged: kind != KindSplit}),
		Config: Knobs{
			Policy:         string(acfg.Policy),
			AutoAppend:     acfg.AutoAppend,
			RequiredFields: append([]string{allocation.FieldCategory, allocation.FieldAmount}, acfg.RequiredFields...),
			MinLines:       acfg.MinLines,
			Tolerance:      acfg.Tolerance.String(),
		},
	}, Result{}, true
}

func flatten(v url.Values) map[string]string {
	out := make(map[string]string, len(v))
	for k := range v {
		out[k] = v.Get(k)
	}
	return out
}
