package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/budgetbox/budgetbox/internal/config"
	"github.com/budgetbox/budgetbox/internal/logger"
	"github.com/budgetbox/budgetbox/internal/server"
)

func newServeCommand() *cobra.Command {
	var bookDir, addr, level string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the form API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBook(bookDir)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = b.cfg.Server.Addr
			}

			log := logger.New(level)
			srv := server.New(b.cfg, server.Deps{
				Submissions: b.submissions(),
				Categories:  b.cats,
				Suggest:     b.rules,
				Funds:       b.ledger,
			}, log.With().Str("book", b.root).Logger())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, addr)
		},
	}

	bookFlag(cmd, &bookDir)
	cmd.Flags().StringVar(&addr, "addr", os.Getenv(config.EnvAddr), "listen address (env "+config.EnvAddr+", default from config)")
	cmd.Flags().StringVar(&level, "log-level", "info", "log level")

	return cmd
}
