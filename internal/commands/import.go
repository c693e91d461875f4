package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/budgetbox/budgetbox/internal/audit"
	"github.com/budgetbox/budgetbox/internal/config"
	"github.com/budgetbox/budgetbox/internal/importer"
)

func newImportCommand() *cobra.Command {
	var bookDir, format, account string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a bank export",
		Long: `Import reads a bank export into the book's transactions. CSV formats
(chase, raiffeisen, generic), SWIFT MT940 (mt940) and ISO 20022 camt.053
(camt) statements are supported.

Without a file argument every export in <book>/import/ is imported and then
moved to import/processed/. Rows whose reference is already known are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBook(bookDir)
			if err != nil {
				return err
			}
			if format == "" {
				format = b.cfg.Import.Format
			}
			if account == "" {
				account = b.cfg.Import.Account
			}

			p, err := parserFor(b.cfg, format, account)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				if err := importOne(out, b, p, args[0]); err != nil {
					return err
				}
				return commitImport(out, b, filepath.Base(args[0]))
			}
			return importPending(out, b, p)
		},
	}

	bookFlag(cmd, &bookDir)
	cmd.Flags().StringVar(&format, "format", "", "export format (default from config)")
	cmd.Flags().StringVar(&account, "account", "", "account name for imported rows (default from config)")

	return cmd
}

// parserFor picks the parser for format. The generic parser is only
// available when the book configures its columns.
func parserFor(cfg *config.Config, format, account string) (importer.Parser, error) {
	reg := importer.DefaultRegistry()
	if g := cfg.Import.Generic; g != nil {
		layout, err := g.Layout()
		if err != nil {
			return nil, fmt.Errorf("import.generic: %w", err)
		}
		reg.Register(importer.NewGenericParser(config.FormatGeneric, layout))
	}

	p := reg.Get(format)
	if p == nil {
		return nil, fmt.Errorf("unknown import format %q (available: %s)", format, strings.Join(reg.Formats(), ", "))
	}
	if as, ok := p.(importer.AccountSetter); ok && account != "" {
		as.SetAccount(account)
	}
	return p, nil
}

func importOne(out io.Writer, b *book, p importer.Parser, path string) error {
	sum, err := importer.ImportFile(p, path, b.txns)
	entry := audit.Entry{
		Action:  "import",
		Outcome: audit.OutcomeSuccess,
		Details: filepath.Base(path),
	}
	if err != nil {
		entry.Outcome = audit.OutcomeError
		entry.Details = err.Error()
	} else {
		entry.Details = fmt.Sprintf("%s: %d added, %d skipped", filepath.Base(path), sum.Added, sum.Skipped)
	}
	if aerr := b.audit.Record(entry); aerr != nil && err == nil {
		err = aerr
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %d parsed, %d added, %d skipped", filepath.Base(path), sum.Parsed, sum.Added, sum.Skipped)
	if sum.Added > 0 {
		fmt.Fprintf(out, " (ids %d-%d)", sum.FirstID, sum.LastID)
	}
	fmt.Fprintln(out)
	return nil
}

func commitImport(out io.Writer, b *book, what string) error {
	hash, err := b.commit("import: " + what)
	if err != nil {
		return err
	}
	if hash != "" {
		fmt.Fprintf(out, "Committed %s\n", hash)
	}
	return nil
}

func importPending(out io.Writer, b *book, p importer.Parser) error {
	files, err := importer.Scan(b.root)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No files to import.")
		return nil
	}

	for _, f := range files {
		if err := importOne(out, b, p, f.Path); err != nil {
			return err
		}
		if err := importer.MarkProcessed(b.root, f.Name); err != nil {
			return err
		}
	}
	return commitImport(out, b, fmt.Sprintf("%d file(s) from import/", len(files)))
}
