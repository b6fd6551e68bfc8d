package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Encode.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Encode writes v in the named format. Text is only defined for *Report;
// any other value falls back to JSON.
func Encode(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		if r, ok := v.(*Report); ok {
			return WriteText(w, r)
		}
		fallthrough
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

// WriteText prints a human-readable summary of r.
func WriteText(w io.Writer, r *Report) error {
	b := &strings.Builder{}
	if p := r.Pointer; p != nil {
		fmt.Fprintf(b, "Floating pointer @ %s\n", p.Address)
		fmt.Fprintf(b, "  table:        %s\n", p.TableAddress)
		fmt.Fprintf(b, "  length:       %d bytes\n", p.Length)
		fmt.Fprintf(b, "  spec rev:     1.%d\n", p.SpecRev)
		fmt.Fprintf(b, "  checksum:     %#02x (strict %s)\n", p.Checksum, okString(p.StrictChecksumOK))
		fmt.Fprintf(b, "  IMCR:         %t\n", p.IMCRPresent)
		fmt.Fprintln(b)
	}

	h := r.Header
	fmt.Fprintf(b, "Configuration table @ %s\n", h.Address)
	fmt.Fprintf(b, "  OEM/product:  %s / %s\n", h.OEM, h.Product)
	fmt.Fprintf(b, "  length:       %d bytes, %d entries\n", h.BaseTableLength, h.EntryCount)
	fmt.Fprintf(b, "  checksum:     %#02x (table %s)\n", h.Checksum, okString(h.TableChecksumOK))
	fmt.Fprintf(b, "  local APIC:   %s\n", h.LocalAPICAddress)
	if h.ExtTableLength > 0 {
		fmt.Fprintf(b, "  extended:     %d bytes (not decoded)\n", h.ExtTableLength)
	}

	if len(r.Processors) > 0 {
		fmt.Fprintf(b, "\nProcessors (%d)\n", len(r.Processors))
		fmt.Fprintf(b, "  %-5s %-4s %-8s %-5s %-12s %s\n", "APIC", "VER", "ENABLED", "BSP", "FAM/MOD/STP", "FEATURES")
		for _, p := range r.Processors {
			fmt.Fprintf(b, "  %-5d %-4d %-8t %-5t %-12s %s\n", p.LocalAPICID, p.LocalAPICVersion, p.Enabled, p.Boot,
				fmt.Sprintf("%d/%d/%d", p.Family, p.Model, p.Stepping), p.FeatureFlags)
		}
	}
	if len(r.Buses) > 0 {
		fmt.Fprintf(b, "\nBuses (%d)\n", len(r.Buses))
		for _, bus := range r.Buses {
			fmt.Fprintf(b, "  %-5d %s\n", bus.ID, bus.Type)
		}
	}
	if len(r.IOAPICs) > 0 {
		fmt.Fprintf(b, "\nI/O APICs (%d)\n", len(r.IOAPICs))
		for _, a := range r.IOAPICs {
			fmt.Fprintf(b, "  %-5d ver %-4d usable %-6t %s\n", a.ID, a.Version, a.Usable, a.Address)
		}
	}
	writeInterrupts(b, "I/O interrupts", r.IOInterrupts)
	writeInterrupts(b, "Local interrupts", r.LocalInterrupts)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeInterrupts(b *strings.Builder, title string, ints []Interrupt) {
	if len(ints) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s (%d)\n", title, len(ints))
	fmt.Fprintf(b, "  %-7s %-4s %-4s %-10s %s\n", "TYPE", "POL", "TRIG", "SRC", "DEST")
	for _, i := range ints {
		fmt.Fprintf(b, "  %-7s %-4d %-4d %-10s %d:%d\n", i.Type, i.Polarity, i.Trigger,
			fmt.Sprintf("%d:%d", i.SourceBusID, i.SourceBusIRQ), i.DestAPICID, i.DestINTIN)
	}
}

func okString(ok bool) string {
	if ok {
		return "ok"
	}
	return "mismatch"
}
