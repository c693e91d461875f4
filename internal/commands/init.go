package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/budgetbox/budgetbox/internal/catalog"
	"github.com/budgetbox/budgetbox/internal/config"
	"github.com/budgetbox/budgetbox/internal/gitops"
)

func newInitCommand() *cobra.Command {
	var (
		name  string
		noGit bool
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new budget book",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, name, !noGit)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "book name (required)")
	cmd.Flags().BoolVar(&noGit, "no-git", false, "do not put the book under git")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runInit(out io.Writer, dir, name string, useGit bool) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	dirs := []string{
		"categories",
		"transactions",
		"funds",
		"rules",
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, config.Default(name)); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := catalog.NewService(catalog.DefaultCatalog()).Save(dir); err != nil {
		return fmt.Errorf("writing categories: %w", err)
	}

	gitignore := ".env\nimport/processed/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	fmt.Fprintf(out, "Initialized budget book %q at %s\n", name, dir)

	if !useGit || gitops.IsRepo(dir) {
		return nil
	}
	if !gitops.Available() {
		fmt.Fprintln(out, "git not found; book is not versioned")
		return nil
	}
	repo, err := gitops.Init(dir)
	if err != nil {
		return err
	}
	hash, err := repo.Commit("init: " + name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Committed %s\n", hash)
	return nil
}
