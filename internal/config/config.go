package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/budgetbox/budgetbox/internal/allocation"
	"github.com/budgetbox/budgetbox/internal/importer"
)

// FileName is the config file at the root of a book.
const FileName = "budgetbox.yaml"

// Environment variables that override command-line defaults.
const (
	EnvBook = "BUDGETBOX_BOOK"
	EnvAddr = "BUDGETBOX_ADDR"
)

// Form names.
const (
	FormSplit    = "split"
	FormAllocate = "allocate"
	FormDebit    = "debit"
)

// Config represents the top-level budgetbox.yaml configuration.
type Config struct {
	Book      BookConfig      `yaml:"book"`
	Forms     FormsConfig     `yaml:"forms"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Server    ServerConfig    `yaml:"server"`
	Import    ImportConfig    `yaml:"import"`
}

// BookConfig identifies the book.
type BookConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
}

// FormsConfig holds the knobs of each allocation form.
type FormsConfig struct {
	Split    FormConfig `yaml:"split"`
	Allocate FormConfig `yaml:"allocate"`
	Debit    FormConfig `yaml:"debit"`
}

// FormConfig configures one form's reconciler.
type FormConfig struct {
	Policy         string   `yaml:"policy"` // exact | at-most
	AutoAppend     bool     `yaml:"auto_append"`
	RequiredFields []string `yaml:"required_fields,omitempty"`
	MinLines       int      `yaml:"min_lines"`
}

// ReconcileConfig holds settings shared by every form.
type ReconcileConfig struct {
	Tolerance string `yaml:"tolerance"` // decimal, e.g. "0.01"
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// FormatGeneric is the import format driven by ImportConfig.Generic.
const FormatGeneric = "generic"

// ImportConfig sets defaults for the import command.
type ImportConfig struct {
	Format  string            `yaml:"format"`
	Account string            `yaml:"account,omitempty"`
	Generic *GenericCSVConfig `yaml:"generic,omitempty"`
}

// GenericCSVConfig maps the 0-based columns of a bank export.
type GenericCSVConfig struct {
	Delimiter         string `yaml:"delimiter,omitempty"` // default ","
	HeaderRows        int    `yaml:"header_rows"`
	DateColumn        int    `yaml:"date_column"`
	DescriptionColumn int    `yaml:"description_column"`
	AmountColumn      int    `yaml:"amount_column"`
	TypeColumn        *int   `yaml:"type_column,omitempty"`
	DateFormat        string `yaml:"date_format"` // Go layout, e.g. 2006-01-02
	DecimalComma      bool   `yaml:"decimal_comma"`
}

// Layout converts the section into an importer layout.
func (g GenericCSVConfig) Layout() (importer.CSVLayout, error) {
	l := importer.CSVLayout{
		Delimiter:         ',',
		HeaderRows:        g.HeaderRows,
		DateColumn:        g.DateColumn,
		DescriptionColumn: g.DescriptionColumn,
		AmountColumn:      g.AmountColumn,
		TypeColumn:        importer.NoColumn,
		DateFormat:        g.DateFormat,
		DecimalComma:      g.DecimalComma,
	}
	if g.Delimiter != "" {
		if utf8.RuneCountInString(g.Delimiter) != 1 {
			return importer.CSVLayout{}, fmt.Errorf("delimiter must be a single character, got %q", g.Delimiter)
		}
		l.Delimiter, _ = utf8.DecodeRuneInString(g.Delimiter)
	}
	if g.TypeColumn != nil {
		l.TypeColumn = *g.TypeColumn
		if l.TypeColumn < 0 {
			return importer.CSVLayout{}, errors.New("type column must not be negative")
		}
	}
	if err := l.Validate(); err != nil {
		return importer.CSVLayout{}, err
	}
	return l, nil
}

// Load reads a budgetbox.yaml file from disk and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new book.
func Default(bookName string) *Config {
	return &Config{
		Book: BookConfig{
			Name:     bookName,
			Currency: "USD",
		},
		Forms: FormsConfig{
			Split: FormConfig{
				Policy:         string(allocation.PolicyExact),
				AutoAppend:     true,
				RequiredFields: []string{allocation.FieldDescription},
				MinLines:       1,
			},
			Allocate: FormConfig{
				Policy:   string(allocation.PolicyAtMost),
				MinLines: 1,
			},
			Debit: FormConfig{
				Policy:   string(allocation.PolicyAtMost),
				MinLines: 1,
			},
		},
		Reconcile: ReconcileConfig{
			Tolerance: allocation.DefaultTolerance.String(),
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Import: ImportConfig{
			Format: "chase",
		},
	}
}

// Validate checks every form's policy and fields and the tolerance.
func (c *Config) Validate() error {
	if _, err := c.Tolerance(); err != nil {
		return err
	}
	for _, name := range []string{FormSplit, FormAllocate, FormDebit} {
		f, _ := c.Form(name)
		if _, ok := allocation.ParsePolicy(f.Policy); !ok {
			return fmt.Errorf("forms.%s.policy: unknown policy %q", name, f.Policy)
		}
		if f.MinLines < 0 {
			return fmt.Errorf("forms.%s.min_lines: must not be negative", name)
		}
		for _, field := range f.RequiredFields {
			if !slices.Contains(optionalFields, field) {
				return fmt.Errorf("forms.%s.required_fields: unknown field %q", name, field)
			}
		}
	}
	if g := c.Import.Generic; g != nil {
		if _, err := g.Layout(); err != nil {
			return fmt.Errorf("import.generic: %w", err)
		}
	} else if c.Import.Format == FormatGeneric {
		return errors.New("import.format: generic needs an import.generic section")
	}
	return nil
}

var optionalFields = []string{
	allocation.FieldCategory,
	allocation.FieldAmount,
	allocation.FieldDescription,
	allocation.FieldNotes,
}

// Tolerance parses reconcile.tolerance. Blank means the default.
func (c *Config) Tolerance() (decimal.Decimal, error) {
	if c.Reconcile.Tolerance == "" {
		return allocation.DefaultTolerance, nil
	}
	d, err := decimal.NewFromString(c.Reconcile.Tolerance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reconcile.tolerance: %w", err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("reconcile.tolerance: must be positive, got %s", d)
	}
	return d, nil
}

// Form returns the named form's settings.
func (c *Config) Form(name string) (FormConfig, bool) {
	switch name {
	case FormSplit:
		return c.Forms.Split, true
	case FormAllocate:
		return c.Forms.Allocate, true
	case FormDebit:
		return c.Forms.Debit, true
	}
	return FormConfig{}, false
}

// Allocation builds the reconciler configuration for the named form.
// description prefills synthesized lines.
func (c *Config) Allocation(name, description string) (allocation.Config, error) {
	f, ok := c.Form(name)
	if !ok {
		return allocation.Config{}, fmt.Errorf("unknown form %q", name)
	}
	policy, ok := allocation.ParsePolicy(f.Policy)
	if !ok {
		return allocation.Config{}, fmt.Errorf("forms.%s.policy: unknown policy %q", name, f.Policy)
	}
	tol, err := c.Tolerance()
	if err != nil {
		return allocation.Config{}, err
	}
	return allocation.Config{
		Policy:         policy,
		AutoAppend:     f.AutoAppend,
		RequiredFields: slices.Clone(f.RequiredFields),
		MinLines:       f.MinLines,
		Tolerance:      tol,
		Description:    description,
	}, nil
}
