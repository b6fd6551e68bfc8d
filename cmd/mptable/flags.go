package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mptable/internal/physmem"
	"github.com/samcharles93/mptable/pkg/mptable"
)

var (
	logLevel  string
	logFormat string
	debug     bool
)

// sourceOptions names where the table lives and how to validate it.
type sourceOptions struct {
	image       string
	origin      string
	pointer     string
	table       string
	windowStart string
	windowSize  string
	strict      bool
}

func sourceFlags(o *sourceOptions) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "image",
			Aliases:     []string{"i"},
			Usage:       "memory image or device to read (e.g. /dev/mem)",
			Destination: &o.image,
		},
		&cli.StringFlag{
			Name:        "origin",
			Usage:       "physical address of the first byte of the image",
			Value:       "0",
			Destination: &o.origin,
		},
		&cli.StringFlag{
			Name:        "pointer",
			Aliases:     []string{"p"},
			Usage:       "physical address of the MP floating pointer",
			Destination: &o.pointer,
		},
		&cli.StringFlag{
			Name:        "table",
			Aliases:     []string{"t"},
			Usage:       "physical address of the configuration table (skips the floating pointer)",
			Destination: &o.table,
		},
		&cli.StringFlag{
			Name:        "window-start",
			Usage:       "first physical address to map (default: --origin)",
			Destination: &o.windowStart,
		},
		&cli.StringFlag{
			Name:        "window-size",
			Usage:       "bytes of the image to map (required for devices; 0 = whole file)",
			Value:       "0",
			Destination: &o.windowSize,
		},
		&cli.BoolFlag{
			Name:        "strict",
			Usage:       "require byte sums of zero modulo 256 for the pointer and table",
			Destination: &o.strict,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// parseAddr accepts decimal, 0x-hex and 0o-octal addresses.
func parseAddr(name, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("--%s: invalid address %q", name, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("--%s: negative address %q", name, s)
	}
	return v, nil
}

// open maps the image and decodes the table it contains. The returned
// region must be closed after the config is no longer used.
func (o *sourceOptions) open() (*physmem.Region, *mptable.Config, error) {
	if o.image == "" {
		return nil, nil, fmt.Errorf("--image is required")
	}
	if o.pointer == "" && o.table == "" {
		return nil, nil, fmt.Errorf("one of --pointer or --table is required")
	}
	origin, err := parseAddr("origin", o.origin)
	if err != nil {
		return nil, nil, err
	}
	var start int64
	if o.windowStart != "" {
		if start, err = parseAddr("window-start", o.windowStart); err != nil {
			return nil, nil, err
		}
	}
	size, err := parseAddr("window-size", o.windowSize)
	if err != nil {
		return nil, nil, err
	}

	region, err := physmem.Open(o.image, physmem.Options{Origin: origin, Start: start, Size: size})
	if err != nil {
		return nil, nil, err
	}

	cfg, err := o.decode(region)
	if err != nil {
		_ = region.Close()
		return nil, nil, err
	}
	return region, cfg, nil
}

func (o *sourceOptions) decode(region *physmem.Region) (*mptable.Config, error) {
	opts := mptable.ReadOptions{StrictChecksum: o.strict}
	if o.table != "" {
		addr, err := parseAddr("table", o.table)
		if err != nil {
			return nil, err
		}
		return mptable.ReadTable(region, addr, opts)
	}
	addr, err := parseAddr("pointer", o.pointer)
	if err != nil {
		return nil, err
	}
	return mptable.Read(region, addr, opts)
}
