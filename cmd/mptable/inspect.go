package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mptable/internal/logger"
	"github.com/samcharles93/mptable/internal/report"
)

func inspectCmd(cfg Config) *cli.Command {
	var (
		src    sourceOptions
		format string
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Decode and print the floating pointer, table header and all entries",
		Flags: append(sourceFlags(&src), formatFlag(&format)),
		Action: func(ctx context.Context, c *cli.Command) error {
			applySourceConfig(c, cfg, &src)
			rep, err := loadReport(ctx, &src)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err := report.Encode(os.Stdout, format, rep); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return nil
		},
	}
}

func entriesCmd(cfg Config) *cli.Command {
	var (
		src    sourceOptions
		format string
		kind   string
	)

	return &cli.Command{
		Name:  "entries",
		Usage: "List base table entries of one kind",
		Flags: append(sourceFlags(&src),
			formatFlag(&format),
			&cli.StringFlag{
				Name:        "type",
				Usage:       "entry kind (processor, bus, ioapic, io_interrupt, local_interrupt)",
				Value:       "processor",
				Destination: &kind,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			applySourceConfig(c, cfg, &src)
			code, ok := report.ParseKind(kind)
			if !ok {
				return cli.Exit(fmt.Sprintf("error: unknown entry type %q", kind), 1)
			}
			rep, err := loadReport(ctx, &src)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			entries, _ := rep.Entries(code)
			if format == report.FormatText {
				format = report.FormatJSON
			}
			if err := report.Encode(os.Stdout, format, entries); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return nil
		},
	}
}

func formatFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "format",
		Aliases:     []string{"o"},
		Usage:       "output format (text, json, yaml)",
		Value:       report.FormatText,
		Destination: dst,
	}
}

func loadReport(ctx context.Context, src *sourceOptions) (*report.Report, error) {
	log := logger.FromContext(ctx)

	region, cfg, err := src.open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = region.Close() }()
	log.Debug("image opened", "path", src.image, "base", fmt.Sprintf("%#x", region.Base()),
		"size", region.Len(), "mmap", region.Mapped())

	if !cfg.Header.VerifyTableChecksum(cfg.Table) {
		log.Warn("configuration table checksum mismatch", "table", fmt.Sprintf("%#x", cfg.TableAddr))
	}
	return report.Build(cfg, src.image)
}
