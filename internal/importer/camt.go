package importer

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetbox/budgetbox/internal/model"
)

// CamtParser parses ISO 20022 camt.053 bank-to-customer statements. Element
// names are matched without their namespace, so camt.053.001.04 to .08
// documents all read the same way.
type CamtParser struct {
	// Account overrides the statement IBAN as the book account.
	Account string
}

const (
	camtCredit     = "CRDT"
	camtDebit      = "DBIT"
	camtDateFormat = "2006-01-02"
)

type camtDocument struct {
	XMLName    xml.Name        `xml:"Document"`
	Statements []camtStatement `xml:"BkToCstmrStmt>Stmt"`
}

type camtStatement struct {
	IBAN    string      `xml:"Acct>Id>IBAN"`
	Entries []camtEntry `xml:"Ntry"`
}

type camtEntry struct {
	Amount      string          `xml:"Amt"`
	CdtDbtInd   string          `xml:"CdtDbtInd"`
	BookingDate string          `xml:"BookgDt>Dt"`
	BookingTime string          `xml:"BookgDt>DtTm"`
	Info        string          `xml:"AddtlNtryInf"`
	Batch       *struct{}       `xml:"NtryDtls>Btch"`
	Details     []camtTxDetails `xml:"NtryDtls>TxDtls"`
}

type camtTxDetails struct {
	Amount       string   `xml:"Amt"`
	TxAmount     string   `xml:"AmtDtls>TxAmt>Amt"`
	CdtDbtInd    string   `xml:"CdtDbtInd"`
	Debtor       string   `xml:"RltdPties>Dbtr>Pty>Nm"`
	Creditor     string   `xml:"RltdPties>Cdtr>Pty>Nm"`
	DebtorIBAN   string   `xml:"RltdPties>DbtrAcct>Id>IBAN"`
	CreditorIBAN string   `xml:"RltdPties>CdtrAcct>Id>IBAN"`
	Unstructured []string `xml:"RmtInf>Ustrd"`
	CreditorRef  string   `xml:"RmtInf>Strd>CdtrRefInf>Ref"`
	Remittance   string   `xml:"RmtInf>Strd>AddtlRmtInf"`
	CodeName     string   `xml:"BkTxCd>Prtry>Nm"`
	Code         string   `xml:"BkTxCd>Prtry>Cd"`
}

// Format returns the parser name.
func (p *CamtParser) Format() string { return "camt" }

// SetAccount sets the account imported rows belong to.
func (p *CamtParser) SetAccount(name string) { p.Account = name }

// Parse reads every statement in the document. A batch entry yields one
// transaction per TxDtls; any other entry yields one transaction. Entries
// without a booking date, amount or direction are skipped.
func (p *CamtParser) Parse(r io.Reader) ([]model.Transaction, error) {
	var doc camtDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding camt XML: %w", err)
	}

	var txns []model.Transaction
	for si, stmt := range doc.Statements {
		account := p.Account
		if account == "" {
			account = strings.TrimSpace(stmt.IBAN)
		}
		if account == "" {
			account = "camt"
		}

		for ei, e := range stmt.Entries {
			parsed, err := parseCamtEntry(e)
			if err != nil {
				return nil, fmt.Errorf("statement %d entry %d: %w", si+1, ei+1, err)
			}
			for _, t := range parsed {
				t.Account = account
				txns = append(txns, t)
			}
		}
	}
	return txns, nil
}

func parseCamtEntry(e camtEntry) ([]model.Transaction, error) {
	raw := strings.TrimSpace(e.BookingDate)
	if raw == "" && len(e.BookingTime) >= len(camtDateFormat) {
		raw = e.BookingTime[:len(camtDateFormat)]
	}
	if raw == "" {
		return nil, nil
	}
	date, err := time.Parse(camtDateFormat, raw)
	if err != nil {
		return nil, fmt.Errorf("parsing booking date %q: %w", raw, err)
	}

	if e.Batch != nil {
		var out []model.Transaction
		for _, d := range e.Details {
			amount := d.Amount
			if strings.TrimSpace(amount) == "" {
				amount = d.TxAmount
			}
			t, ok, err := camtTransaction(date, amount, d.CdtDbtInd, d.description(d.CdtDbtInd, ""))
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, t)
			}
		}
		return out, nil
	}

	var d camtTxDetails
	if len(e.Details) > 0 {
		d = e.Details[0]
	}
	t, ok, err := camtTransaction(date, e.Amount, e.CdtDbtInd, d.description(e.CdtDbtInd, e.Info))
	if err != nil || !ok {
		return nil, err
	}
	return []model.Transaction{t}, nil
}

func camtTransaction(date time.Time, rawAmount, ind, desc string) (model.Transaction, bool, error) {
	rawAmount = strings.TrimSpace(rawAmount)
	ind = strings.TrimSpace(ind)
	if rawAmount == "" || ind == "" {
		return model.Transaction{}, false, nil
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("parsing amount %q: %w", rawAmount, err)
	}

	var typ model.TransactionType
	switch ind {
	case camtCredit:
		typ = model.TransactionIncome
	case camtDebit:
		typ = model.TransactionExpense
	default:
		return model.Transaction{}, false, fmt.Errorf("unknown credit/debit indicator %q", ind)
	}
	amount = model.SignFor(typ, amount)

	return model.Transaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Type:        typ,
		Reference:   makeRef("camt", date, desc, amount),
	}, true, nil
}

// description joins the counterparty and free text, then appends the
// structured details in parentheses:
// "ACME AG - Invoice 42 (Ref: RF18 ; IBAN: CH93...)".
func (d camtTxDetails) description(ind, info string) string {
	var main []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !containsFold(main, s) {
			main = append(main, s)
		}
	}

	party, iban := d.Creditor, d.CreditorIBAN
	if ind == camtCredit {
		party, iban = d.Debtor, d.DebtorIBAN
	}
	add(party)
	add(info)
	for _, u := range d.Unstructured {
		add(u)
	}

	var extra []string
	if ref := strings.TrimSpace(d.CreditorRef); ref != "" {
		extra = append(extra, "Ref: "+ref)
	}
	if rem := strings.TrimSpace(d.Remittance); rem != "" {
		extra = append(extra, rem)
	}
	code := strings.TrimSpace(d.CodeName)
	if code == "" {
		code = strings.TrimSpace(d.Code)
	}
	if code != "" && !containsFold(main, code) {
		extra = append(extra, "Code: "+code)
	}
	if iban = strings.TrimSpace(iban); iban != "" {
		extra = append(extra, "IBAN: "+iban)
	}

	desc := strings.Join(main, " - ")
	if len(extra) > 0 {
		desc = strings.TrimSpace(desc + " (" + strings.Join(extra, " ; ") + ")")
	}
	if desc == "" {
		desc = "(no description)"
	}
	return desc
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
