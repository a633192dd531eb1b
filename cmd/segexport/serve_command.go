package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/segexport/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		Long: "Run the MCP server on stdin/stdout.\n\n" +
			"Configure it in your MCP client (e.g., Claude Desktop). Logs go to\n" +
			"stderr and, when logging.file is set, to a rotating JSON log file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, closeLogs, err := ctx.newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = closeLogs() }()

			runCtx, stop := signal.NotifyContext(commandBaseContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server.Version = Version
			logger.Info("starting MCP server",
				zap.String("build_time", BuildTime),
				zap.String("git_commit", GitCommit),
				zap.String("config", ctx.configPath),
			)
			return server.New(cfg, logger).Run(runCtx)
		},
	}
}
