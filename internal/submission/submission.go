// Package submission re-reconciles submitted split, allocation and debit
// forms and persists the accepted ones.
package submission

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/budgetbox/budgetbox/internal/allocation"
	"github.com/budgetbox/budgetbox/internal/audit"
	"github.com/budgetbox/budgetbox/internal/catalog"
	"github.com/budgetbox/budgetbox/internal/config"
	"github.com/budgetbox/budgetbox/internal/formset"
	"github.com/budgetbox/budgetbox/internal/funds"
	"github.com/budgetbox/budgetbox/internal/logger"
	"github.com/budgetbox/budgetbox/internal/model"
	"github.com/budgetbox/budgetbox/internal/transactions"
)

// Prefix is the formset prefix every form is submitted with.
const Prefix = "lines"

// FormKey is the error key for problems not tied to one line.
const FormKey = "form"

const retryMessage = "The submission could not be saved. Please try again."

// Kind names one of the three forms.
type Kind string

const (
	KindSplit    Kind = config.FormSplit
	KindAllocate Kind = config.FormAllocate
	KindDebit    Kind = config.FormDebit
)

// ParseKind returns the named kind, or false.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindSplit, KindAllocate, KindDebit:
		return k, true
	}
	return "", false
}

func (k Kind) movement() model.MovementKind {
	if k == KindDebit {
		return model.MovementDebit
	}
	return model.MovementAllocation
}

// Result is the JSON body answered to a submission.
type Result struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Errors     map[string][]string `json:"errors,omitempty"`
	RecordID   string              `json:"record_id,omitempty"`
	CreatedIDs []int               `json:"created_ids,omitempty"`
	Status     int                 `json:"-"`
}

func (r *Result) addError(key, msg string) {
	if r.Errors == nil {
		r.Errors = make(map[string][]string)
	}
	r.Errors[key] = append(r.Errors[key], msg)
}

// LineKey is the error key of the line at a positional index.
func LineKey(index int) string {
	return Prefix + "-" + strconv.Itoa(index)
}

// TransactionStore loads and splits transactions.
type TransactionStore interface {
	Get(id int) (model.Transaction, error)
	Split(originalID int, parts []transactions.Part) ([]model.Transaction, error)
}

// Ledger posts fund records.
type Ledger interface {
	Post(rec funds.Record) (string, error)
	HasRecord(txID int, kind model.MovementKind) (bool, error)
}

// Catalog resolves category references.
type Catalog interface {
	Lookup(ref string) (model.Category, error)
	ResolveFinal(main, sub string) (model.Category, error)
	Descriptors(f catalog.Filter) []model.Descriptor
}

// Learner records description to category rules.
type Learner interface {
	Learn(description string, categoryID int) error
}

// Auditor records every submission attempt.
type Auditor interface {
	Record(e audit.Entry) error
}

// History commits the book after a successful submission.
type History interface {
	Commit(message string) (string, error)
}

// Deps are the stores a Service works against. Audit and History are optional.
type Deps struct {
	Transactions TransactionStore
	Ledger       Ledger
	Catalog      Catalog
	Rules        Learner
	Audit        Auditor
	History      History
}

// Service runs the submission pipeline.
type Service struct {
	cfg  *config.Config
	deps Deps
}

// NewService creates a submission Service.
func NewService(cfg *config.Config, deps Deps) *Service {
	return &Service{cfg: cfg, deps: deps}
}

// Split handles the split form.
func (s *Service) Split(ctx context.Context, txID int, values url.Values) Result {
	return s.Submit(ctx, KindSplit, txID, values)
}

// Allocate handles the fund allocation form.
func (s *Service) Allocate(ctx context.Context, txID int, values url.Values) Result {
	return s.Submit(ctx, KindAllocate, txID, values)
}

// Debit handles the fund debit form.
func (s *Service) Debit(ctx context.Context, txID int, values url.Values) Result {
	return s.Submit(ctx, KindDebit, txID, values)
}

// Submit decodes values, re-reconciles them against the transaction and
// persists the outcome. Every attempt is audited.
func (s *Service) Submit(ctx context.Context, kind Kind, txID int, values url.Values) Result {
	log := logger.FromContext(ctx).With().Str("form", string(kind)).Int("transaction_id", txID).Logger()

	res := s.submit(ctx, kind, txID, values)

	entry := audit.Entry{
		Action:        string(kind),
		TransactionID: txID,
		RecordID:      res.RecordID,
		Outcome:       audit.OutcomeSuccess,
		Details:       res.Message,
	}
	switch {
	case res.Status >= http.StatusInternalServerError:
		entry.Outcome = audit.OutcomeError
	case !res.Success:
		entry.Outcome = audit.OutcomeRejected
		entry.Details = summarize(res)
	}
	if s.deps.Audit != nil {
		if err := s.deps.Audit.Record(entry); err != nil {
			log.Error().Err(err).Msg("writing audit entry")
		}
	}

	if res.Success && s.deps.History != nil {
		msg := fmt.Sprintf("%s: transaction %d: %s", kind, txID, res.Message)
		if hash, err := s.deps.History.Commit(msg); err != nil {
			log.Error().Err(err).Msg("committing book")
		} else if hash != "" {
			log = log.With().Str("commit", hash).Logger()
		}
	}

	ev := log.Info()
	if !res.Success {
		ev = log.Warn()
	}
	ev.Bool("success", res.Success).Int("status", res.Status).Str("record_id", res.RecordID).Msg("submission handled")
	return res
}

func (s *Service) submit(ctx context.Context, kind Kind, txID int, values url.Values) Result {
	log := logger.FromContext(ctx)

	tx, res, ok := s.load(ctx, kind, txID)
	if !ok {
		return res
	}

	rows, err := formset.Decode(Prefix, values)
	if err != nil {
		var fe formset.FieldError
		if errors.As(err, &fe) {
			return rejected(fe.Field, fe.Message)
		}
		return rejected(FormKey, err.Error())
	}

	acfg, err := s.cfg.Allocation(string(kind), tx.Description)
	if err != nil {
		log.Error().Err(err).Msg("building reconciler config")
		return failure()
	}
	r := allocation.New(tx.Magnitude(), acfg, formset.Lines(rows)...)
	v := r.Validate("")

	res = Result{Status: http.StatusBadRequest}
	for _, msg := range v.FormErrors {
		res.addError(FormKey, msg)
	}
	for idx, fields := range v.LineErrors {
		for _, f := range fields {
			res.addError(LineKey(idx), fmt.Sprintf("%s: this field is required", f))
		}
	}

	cats := s.resolveCategories(kind, rows, &res)
	if len(res.Errors) > 0 {
		res.Message = "Please correct the errors below."
		return res
	}

	switch kind {
	case KindSplit:
		return s.persistSplit(ctx, tx, rows, cats)
	default:
		return s.persistFunds(ctx, kind, tx, rows, cats)
	}
}

// load fetches the transaction and checks it may take this form.
func (s *Service) load(ctx context.Context, kind Kind, txID int) (model.Transaction, Result, bool) {
	tx, err := s.deps.Transactions.Get(txID)
	if errors.Is(err, transactions.ErrNotFound) {
		return tx, Result{Message: fmt.Sprintf("Transaction %d not found.", txID), Status: http.StatusNotFound}, false
	}
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("loading transaction")
		return tx, failure(), false
	}

	switch {
	case kind == KindAllocate && tx.Type != model.TransactionIncome:
		return tx, rejected(FormKey, "Only income transactions can be allocated to funds."), false
	case kind == KindDebit && tx.Type != model.TransactionExpense:
		return tx, rejected(FormKey, "Only expense transactions can debit funds."), false
	}

	if kind != KindSplit {
		has, err := s.deps.Ledger.HasRecord(txID, kind.movement())
		if err != nil {
			log := logger.FromContext(ctx)
			log.Error().Err(err).Msg("checking fund ledger")
			return tx, failure(), false
		}
		if has {
			res := rejected(FormKey, fmt.Sprintf("Transaction %d already has a fund %s.", txID, kind.movement()))
			res.Status = http.StatusConflict
			return tx, res, false
		}
	}
	return tx, Result{}, true
}

// resolveCategories maps each active row to its booked category, recording
// unknown or mismatched references as line errors.
func (s *Service) resolveCategories(kind Kind, rows []formset.Row, res *Result) map[int]model.Category {
	out := make(map[int]model.Category, len(rows))
	for _, row := range rows {
		if row.Deleted || row.FinalCategory() == "" {
			continue
		}
		var (
			c   model.Category
			err error
		)
		if kind == KindSplit && row.MainCategory != "" {
			c, err = s.deps.Catalog.ResolveFinal(row.MainCategory, row.Subcategory)
		} else {
			c, err = s.deps.Catalog.Lookup(row.FinalCategory())
		}
		if err != nil {
			res.addError(LineKey(row.Index), "category: "+err.Error())
			continue
		}
		if kind != KindSplit && !c.FundManaged {
			res.addError(LineKey(row.Index), fmt.Sprintf("category: %s is not a fund-managed category", c.Name))
			continue
		}
		out[row.Index] = c
	}
	return out
}

func (s *Service) persistSplit(ctx context.Context, tx model.Transaction, rows []formset.Row, cats map[int]model.Category) Result {
	log := logger.FromContext(ctx)

	var parts []transactions.Part
	for _, row := range rows {
		if row.Deleted {
			continue
		}
		parts = append(parts, transactions.Part{
			CategoryID:  cats[row.Index].ID,
			Amount:      row.Amount,
			Description: row.Description,
		})
	}

	children, err := s.deps.Transactions.Split(tx.ID, parts)
	if errors.Is(err, transactions.ErrSplitMismatch) {
		return rejected(FormKey, err.Error())
	}
	if err != nil {
		log.Error().Err(err).Msg("splitting transaction")
		return failure()
	}

	ids := make([]int, len(children))
	for i, c := range children {
		ids[i] = c.ID
		if s.deps.Rules == nil {
			continue
		}
		if err := s.deps.Rules.Learn(c.Description, c.CategoryID); err != nil {
			log.Warn().Err(err).Str("description", c.Description).Msg("learning categorization rule")
		}
	}

	return Result{
		Success:    true,
		Message:    fmt.Sprintf("Transaction split into %d lines.", len(children)),
		CreatedIDs: ids,
		Status:     http.StatusOK,
	}
}

func (s *Service) persistFunds(ctx context.Context, kind Kind, tx model.Transaction, rows []formset.Row, cats map[int]model.Category) Result {
	rec := funds.Record{
		Kind:          kind.movement(),
		Date:          tx.Date,
		TransactionID: tx.ID,
		Target:        tx.Magnitude(),
	}
	total := decimal.Zero
	for _, row := range rows {
		if row.Deleted {
			continue
		}
		rec.Lines = append(rec.Lines, funds.Line{
			Index:      row.Index,
			CategoryID: cats[row.Index].ID,
			Amount:     row.Amount,
			Notes:      row.Notes,
		})
		total = total.Add(row.Amount)
	}

	recordID, err := s.deps.Ledger.Post(rec)
	var verrs funds.ValidationErrors
	if errors.As(err, &verrs) {
		res := Result{Message: "Please correct the errors below.", Status: http.StatusBadRequest}
		for _, ve := range verrs {
			key := FormKey
			if ve.Line >= 0 {
				key = LineKey(ve.Line)
			}
			res.addError(key, ve.Description)
		}
		return res
	}
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("posting fund record")
		return failure()
	}

	verb := "Allocated"
	if kind == KindDebit {
		verb = "Debited"
	}
	return Result{
		Success:  true,
		Message:  fmt.Sprintf("%s %s across %d funds (%s).", verb, total.StringFixed(2), len(rec.Lines), recordID),
		RecordID: recordID,
		Status:   http.StatusOK,
	}
}

func rejected(key, msg string) Result {
	res := Result{Message: msg, Status: http.StatusBadRequest}
	res.addError(key, msg)
	return res
}

func failure() Result {
	return Result{Message: retryMessage, Status: http.StatusInternalServerError}
}

// summarize flattens a rejected result's errors for the audit trail.
func summarize(res Result) string {
	keys := make([]string, 0, len(res.Errors))
	for k := range res.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(res.Errors[k], "; "))
	}
	if len(parts) == 0 {
		return res.Message
	}
	return strings.Join(parts, " | ")
}
