package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"secaudit/internal/app"
	"secaudit/internal/config"
	"secaudit/internal/domain"
)

type scanOptions struct {
	kind    string
	target  string
	output  string
	store   string
	timeout time.Duration
}

func newScanCmd() *cobra.Command {
	opts := scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one scan job and print its report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.kind, "kind", "all", "scan type: dependency, code, image (docker) or all")
	cmd.Flags().StringVar(&opts.target, "target", "", "directory or image to scan instead of the configured default")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "json", "report format: json or yaml")
	cmd.Flags().StringVar(&opts.store, "store", config.StoreMemory, "where to keep the job and report: memory or postgres")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "give up waiting after this long")
	return cmd
}

func runScan(ctx context.Context, out io.Writer, opts scanOptions) error {
	if opts.output != "json" && opts.output != "yaml" {
		return fmt.Errorf("unknown output format %q", opts.output)
	}
	kind, err := domain.ParseScanKind(opts.kind)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil && opts.store != config.StoreMemory {
		return err
	}
	cfg.StoreDriver = opts.store

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a, err := app.Build(jobCtx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		cancel()
		closeCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		_ = a.Close(closeCtx)
	}()

	job, err := a.Scanner.Submit(ctx, kind, opts.target)
	if err != nil {
		return err
	}
	waitCtx, stop := context.WithTimeout(ctx, opts.timeout)
	defer stop()
	id := job.ID
	job, err = a.Scanner.Wait(waitCtx, id)
	if err != nil {
		return fmt.Errorf("scan %s: %w", id, err)
	}
	if job.Status == domain.JobFailed {
		return fmt.Errorf("scan %s failed: %s", job.ID, job.Error)
	}
	report, err := a.Reports.Get(ctx, job.ReportID)
	if err != nil {
		return fmt.Errorf("load report %s: %w", job.ReportID, err)
	}
	return writeReport(out, report, opts.output)
}

func writeReport(w io.Writer, report domain.Report, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
