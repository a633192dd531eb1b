package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ironsheep/segexport/internal/config"
	"github.com/ironsheep/segexport/internal/export"
	"github.com/ironsheep/segexport/internal/report"
	"github.com/ironsheep/segexport/internal/source"
	"github.com/ironsheep/segexport/internal/task"
)

type exportFlags struct {
	tasksPath   string
	outputDir   string
	projectID   string
	allowRemote bool
	workers     int
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.tasksPath, "tasks", "t", "", "Tasks JSON file (\"-\" reads stdin)")
	cmd.Flags().StringVar(&f.projectID, "project", "", "Project identifier used in the archive name")
	cmd.Flags().BoolVar(&f.allowRemote, "allow-remote", false, "Fetch http(s) images to compute intensities")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Annotations processed concurrently per task")
	_ = cmd.MarkFlagRequired("tasks")
}

// options merges explicitly set flags over the configuration.
func (f *exportFlags) options(cmd *cobra.Command, cfg *config.Config) export.Options {
	opts := cfg.ExportOptions()
	if cmd.Flags().Changed("project") {
		opts.ProjectID = strings.TrimSpace(f.projectID)
	}
	if cmd.Flags().Changed("allow-remote") {
		opts.AllowRemoteFetch = f.allowRemote
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers = f.workers
	}
	return opts
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var flags exportFlags
	var summary bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export brush and polygon regions to a zip of CSV tables",
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

			opts := flags.options(cmd, cfg)
			if opts.ProjectID == "" {
				return errors.New("project id must not be empty")
			}
			outputDir := cfg.Export.OutputDir
			if cmd.Flags().Changed("out") {
				if outputDir, err = config.ExpandPath(flags.outputDir); err != nil {
					return fmt.Errorf("resolve output directory: %w", err)
				}
			}

			res, err := runExport(cmd, cfg, opts, flags.tasksPath, logger)
			if err != nil {
				return err
			}

			path, err := export.WriteArchiveFile(outputDir, opts.ProjectID, res.Tables, cfg.Export.FloatDecimals)
			if err != nil {
				return err
			}
			logger.Info("archive written",
				zap.String("run_id", res.RunID),
				zap.String("path", path),
				zap.Int("tables", len(res.Tables)),
			)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s (%d tables, %d rows)\n", path, len(res.Tables), res.Stats.Rows)
			if summary {
				fmt.Fprint(out, report.Render(res))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.outputDir, "out", "o", "", "Directory for the archive (defaults to export.output_dir)")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print counters and a per-label summary")
	return cmd
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var flags exportFlags
	var showWarnings bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Run the export without writing an archive and print a summary",
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

			res, err := runExport(cmd, cfg, flags.options(cmd, cfg), flags.tasksPath, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, report.Render(res))
			if showWarnings {
				for _, w := range multierr.Errors(res.Warnings) {
					fmt.Fprintf(out, "warning: %v\n", w)
				}
			}
			fmt.Fprintf(out, "Archive would contain a README only: %s\n", yesNo(res.Stats.Rows == 0))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&showWarnings, "warnings", false, "List non-fatal warnings")
	return cmd
}

// runExport reads tasks from path and runs the pipeline until done or
// interrupted.
func runExport(cmd *cobra.Command, cfg *config.Config, opts export.Options, path string, logger *zap.Logger) (*export.Result, error) {
	in, closeInput, err := openTasks(cmd, path)
	if err != nil {
		return nil, err
	}
	defer closeInput()

	runCtx, stop := signal.NotifyContext(commandBaseContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := source.NewResolver(cfg.SourceOptions(), logger.Named("source"))
	return export.New(opts, resolver, logger.Named("export")).Run(runCtx, task.NewReader(in))
}

func openTasks(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	path = strings.TrimSpace(path)
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve tasks path: %w", err)
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, nil, fmt.Errorf("open tasks: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func commandBaseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
