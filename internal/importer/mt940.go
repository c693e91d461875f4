package importer

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/budgetbox/budgetbox/internal/model"
)

// MT940Parser parses SWIFT MT940 (and MT942) statements. Each :61:
// statement line becomes a transaction; the :86: field that follows it is
// the description.
type MT940Parser struct {
	// Account overrides the :25: account identification.
	Account string
}

// YYMMDD value date, optional MMDD entry date, mark, optional funds code,
// amount with decimal comma, rest.
var mt940Line = regexp.MustCompile(`^(\d{6})(\d{4})?(RC|RD|C|D)([A-Z])?(\d+,\d*)(.*)$`)

// Structured :86: subfields ("?20...") carrying text and counterparty name.
var mt940Subfield = regexp.MustCompile(`\?(\d{2})`)

type mt940Field struct {
	tag   string
	value string
	line  int
}

type mt940Entry struct {
	statement string
	details   string
	line      int
}

// Format returns the parser name.
func (p *MT940Parser) Format() string { return "mt940" }

// SetAccount sets the account imported rows belong to.
func (p *MT940Parser) SetAccount(name string) { p.Account = name }

// Parse reads every statement in the file.
func (p *MT940Parser) Parse(r io.Reader) ([]model.Transaction, error) {
	fields, err := readMT940Fields(r)
	if err != nil {
		return nil, err
	}

	account := p.Account
	var txns []model.Transaction
	var cur *mt940Entry
	flush := func() error {
		if cur == nil {
			return nil
		}
		t, err := parseMT940Entry(*cur)
		if err != nil {
			return fmt.Errorf("line %d: %w", cur.line, err)
		}
		t.Account = account
		if t.Account == "" {
			t.Account = "mt940"
		}
		txns = append(txns, t)
		cur = nil
		return nil
	}

	for _, f := range fields {
		switch f.tag {
		case "25":
			if err := flush(); err != nil {
				return nil, err
			}
			if p.Account == "" {
				account = f.value
			}
		case "61":
			if err := flush(); err != nil {
				return nil, err
			}
			cur = &mt940Entry{statement: f.value, line: f.line}
		case "86":
			if cur != nil {
				cur.details = f.value
			}
		default:
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return txns, nil
}

// readMT940Fields splits the file into ":tag:value" fields. Continuation
// lines are joined to the previous field with a space; block markers and
// the "-" statement terminator are dropped.
func readMT940Fields(r io.Reader) ([]mt940Field, error) {
	var fields []mt940Field
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r ")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" || trimmed == "-" || trimmed == "-}" || strings.HasPrefix(trimmed, "{"):
			continue
		case strings.HasPrefix(line, ":"):
			end := strings.Index(line[1:], ":")
			if end < 0 {
				return nil, fmt.Errorf("line %d: malformed tag %q", n, line)
			}
			fields = append(fields, mt940Field{
				tag:   line[1 : end+1],
				value: strings.TrimSpace(line[end+2:]),
				line:  n,
			})
		case len(fields) > 0:
			last := &fields[len(fields)-1]
			last.value = strings.TrimSpace(last.value + " " + trimmed)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading MT940: %w", err)
	}
	return fields, nil
}

func parseMT940Entry(e mt940Entry) (model.Transaction, error) {
	m := mt940Line.FindStringSubmatch(e.statement)
	if m == nil {
		return model.Transaction{}, fmt.Errorf("malformed :61: field %q", e.statement)
	}

	date, err := time.Parse("060102", m[1])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing value date %q: %w", m[1], err)
	}

	amount, err := ParseAmount(strings.TrimSuffix(m[5], ","), true)
	if err != nil {
		return model.Transaction{}, err
	}

	// A reversal flips the direction of the original booking.
	typ := model.TransactionExpense
	if m[3] == "C" || m[3] == "RD" {
		typ = model.TransactionIncome
	}
	amount = model.SignFor(typ, amount)

	desc := mt940Description(e.details)
	if desc == "" {
		desc = strings.TrimSpace(m[6])
	}
	if desc == "" {
		desc = "(no description)"
	}

	return model.Transaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Type:        typ,
		Reference:   makeRef("mt940", date, desc, amount),
	}, nil
}

// mt940Description returns the :86: text. Structured fields keep only the
// purpose lines (?20 to ?29, ?60 to ?63) and the counterparty name (?32,
// ?33), name first.
func mt940Description(details string) string {
	details = strings.TrimSpace(details)
	locs := mt940Subfield.FindAllStringSubmatchIndex(details, -1)
	if len(locs) == 0 {
		return details
	}

	var name, purpose []string
	for i, loc := range locs {
		end := len(details)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		code := details[loc[2]:loc[3]]
		text := strings.TrimSpace(details[loc[1]:end])
		if text == "" {
			continue
		}
		switch {
		case code == "32" || code == "33":
			name = append(name, text)
		case code >= "20" && code <= "29", code >= "60" && code <= "63":
			purpose = append(purpose, text)
		}
	}

	parts := make([]string, 0, 2)
	if len(name) > 0 {
		parts = append(parts, strings.Join(name, " "))
	}
	if len(purpose) > 0 {
		parts = append(parts, strings.Join(purpose, " "))
	}
	return strings.Join(parts, " - ")
}
