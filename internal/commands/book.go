package commands

import (
	"fmt"
	"path/filepath"

	"github.com/budgetbox/budgetbox/internal/audit"
	"github.com/budgetbox/budgetbox/internal/catalog"
	"github.com/budgetbox/budgetbox/internal/config"
	"github.com/budgetbox/budgetbox/internal/funds"
	"github.com/budgetbox/budgetbox/internal/gitops"
	"github.com/budgetbox/budgetbox/internal/submission"
	"github.com/budgetbox/budgetbox/internal/suggest"
	"github.com/budgetbox/budgetbox/internal/transactions"
)

// book bundles the stores of one book directory.
type book struct {
	root   string
	cfg    *config.Config
	cats   *catalog.Service
	txns   *transactions.Store
	ledger *funds.Service
	rules  *suggest.Service
	audit  *audit.Log
	repo   *gitops.Repo // nil when the book is not under git
}

func openBook(dir string) (*book, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("%s is not a budgetbox book: %w", root, err)
	}
	tol, err := cfg.Tolerance()
	if err != nil {
		return nil, err
	}
	cats, err := catalog.Load(root)
	if err != nil {
		return nil, err
	}

	b := &book{
		root:   root,
		cfg:    cfg,
		cats:   cats,
		txns:   transactions.NewStore(root, tol),
		ledger: funds.NewService(root, cats, tol),
		rules:  suggest.NewService(root, cats),
		audit:  audit.NewLog(root),
	}
	if repo, err := gitops.Open(root); err == nil {
		b.repo = repo
	}
	return b, nil
}

func (b *book) submissions() *submission.Service {
	deps := submission.Deps{
		Transactions: b.txns,
		Ledger:       b.ledger,
		Catalog:      b.cats,
		Rules:        b.rules,
		Audit:        b.audit,
	}
	if b.repo != nil {
		deps.History = b.repo
	}
	return submission.NewService(b.cfg, deps)
}

// commit records the book's changes when it is under git.
func (b *book) commit(message string) (string, error) {
	if b.repo == nil {
		return "", nil
	}
	return b.repo.Commit(message)
}
