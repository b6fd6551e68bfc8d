// Package report collects a decoded MP configuration table into a
// serialisable topology summary.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/mptable/pkg/mptable"
)

type Report struct {
	ID        string    `json:"id" yaml:"id"`
	Source    string    `json:"source,omitempty" yaml:"source,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	Pointer *Pointer `json:"pointer,omitempty" yaml:"pointer,omitempty"`
	Header  Header   `json:"header" yaml:"header"`

	Processors      []Processor `json:"processors" yaml:"processors"`
	Buses           []Bus       `json:"buses" yaml:"buses"`
	IOAPICs         []IOAPIC    `json:"ioapics" yaml:"ioapics"`
	IOInterrupts    []Interrupt `json:"io_interrupts" yaml:"io_interrupts"`
	LocalInterrupts []Interrupt `json:"local_interrupts" yaml:"local_interrupts"`
}

type Pointer struct {
	Address              string `json:"address" yaml:"address"`
	TableAddress         string `json:"table_address" yaml:"table_address"`
	Length               int    `json:"length" yaml:"length"`
	SpecRev              uint8  `json:"spec_rev" yaml:"spec_rev"`
	Checksum             uint8  `json:"checksum" yaml:"checksum"`
	StrictChecksumOK     bool   `json:"strict_checksum_ok" yaml:"strict_checksum_ok"`
	DefaultConfiguration uint8  `json:"default_configuration" yaml:"default_configuration"`
	IMCRPresent          bool   `json:"imcr_present" yaml:"imcr_present"`
}

type Header struct {
	Address          string `json:"address" yaml:"address"`
	BaseTableLength  uint16 `json:"base_table_length" yaml:"base_table_length"`
	SpecRev          uint8  `json:"spec_rev" yaml:"spec_rev"`
	Checksum         uint8  `json:"checksum" yaml:"checksum"`
	TableChecksumOK  bool   `json:"table_checksum_ok" yaml:"table_checksum_ok"`
	OEM              string `json:"oem" yaml:"oem"`
	Product          string `json:"product" yaml:"product"`
	OEMTablePointer  string `json:"oem_table_pointer" yaml:"oem_table_pointer"`
	OEMTableSize     uint16 `json:"oem_table_size" yaml:"oem_table_size"`
	EntryCount       uint16 `json:"entry_count" yaml:"entry_count"`
	LocalAPICAddress string `json:"local_apic_address" yaml:"local_apic_address"`
	ExtTableLength   uint16 `json:"ext_table_length" yaml:"ext_table_length"`
}

type Processor struct {
	LocalAPICID      uint8  `json:"local_apic_id" yaml:"local_apic_id"`
	LocalAPICVersion uint8  `json:"local_apic_version" yaml:"local_apic_version"`
	Enabled          bool   `json:"enabled" yaml:"enabled"`
	Boot             bool   `json:"boot" yaml:"boot"`
	Family           uint8  `json:"family" yaml:"family"`
	Model            uint8  `json:"model" yaml:"model"`
	Stepping         uint8  `json:"stepping" yaml:"stepping"`
	FeatureFlags     string `json:"feature_flags" yaml:"feature_flags"`
}

type Bus struct {
	ID   uint8  `json:"id" yaml:"id"`
	Type string `json:"type" yaml:"type"`
}

type IOAPIC struct {
	ID      uint8  `json:"id" yaml:"id"`
	Version uint8  `json:"version" yaml:"version"`
	Usable  bool   `json:"usable" yaml:"usable"`
	Address string `json:"address" yaml:"address"`
}

type Interrupt struct {
	Type         string `json:"type" yaml:"type"`
	Polarity     uint8  `json:"polarity" yaml:"polarity"`
	Trigger      uint8  `json:"trigger" yaml:"trigger"`
	SourceBusID  uint8  `json:"source_bus_id" yaml:"source_bus_id"`
	SourceBusIRQ uint8  `json:"source_bus_irq" yaml:"source_bus_irq"`
	DestAPICID   uint8  `json:"dest_apic_id" yaml:"dest_apic_id"`
	DestINTIN    uint8  `json:"dest_intin" yaml:"dest_intin"`
}

// Build drives cfg's entry iterator to completion. A corrupt entry stream
// fails the whole report.
func Build(cfg *mptable.Config, source string) (*Report, error) {
	h := cfg.Header
	r := &Report{
		ID:        "mpr_" + uuid.NewString(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Header: Header{
			Address:          hex(cfg.TableAddr),
			BaseTableLength:  h.BaseTableLength,
			SpecRev:          h.SpecRev,
			Checksum:         h.Checksum,
			TableChecksumOK:  h.VerifyTableChecksum(cfg.Table),
			OEM:              h.OEM(),
			Product:          h.Product(),
			OEMTablePointer:  hex(int64(h.OEMTablePointer)),
			OEMTableSize:     h.OEMTableSize,
			EntryCount:       h.EntryCount,
			LocalAPICAddress: hex(int64(h.LocalAPICAddr)),
			ExtTableLength:   h.ExtTableLength,
		},
		Processors:      []Processor{},
		Buses:           []Bus{},
		IOAPICs:         []IOAPIC{},
		IOInterrupts:    []Interrupt{},
		LocalInterrupts: []Interrupt{},
	}
	if p := cfg.Pointer; p.VerifySignature() {
		r.Pointer = &Pointer{
			Address:              hex(cfg.PointerAddr),
			TableAddress:         hex(int64(p.PhysAddr)),
			Length:               p.ByteLength(),
			SpecRev:              p.SpecRev,
			Checksum:             p.Checksum,
			StrictChecksumOK:     p.VerifyStrictChecksum(),
			DefaultConfiguration: p.DefaultConfiguration(),
			IMCRPresent:          p.IMCRPresent(),
		}
	}

	it := cfg.Entries()
	for it.Next() {
		r.add(it.Entry())
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("walk entries: %w", err)
	}
	return r, nil
}

func (r *Report) add(e mptable.Entry) {
	switch e.Code {
	case mptable.EntryProcessor:
		p, _ := e.AsProcessor()
		r.Processors = append(r.Processors, Processor{
			LocalAPICID:      p.LocalAPICID,
			LocalAPICVersion: p.LocalAPICVersion,
			Enabled:          p.Enabled(),
			Boot:             p.BootProcessor(),
			Family:           p.Family(),
			Model:            p.Model(),
			Stepping:         p.Stepping(),
			FeatureFlags:     fmt.Sprintf("%#08x", p.FeatureFlags),
		})
	case mptable.EntryBus:
		b, _ := e.AsBus()
		r.Buses = append(r.Buses, Bus{ID: b.BusID, Type: b.TypeString()})
	case mptable.EntryIOAPIC:
		a, _ := e.AsIOAPIC()
		r.IOAPICs = append(r.IOAPICs, IOAPIC{
			ID:      a.ID,
			Version: a.Version,
			Usable:  a.Usable(),
			Address: hex(int64(a.Address)),
		})
	case mptable.EntryIOInterrupt:
		a, _ := e.AsIOInterruptAssignment()
		r.IOInterrupts = append(r.IOInterrupts, interrupt(a.InterruptAssignment))
	case mptable.EntryLocalInterrupt:
		a, _ := e.AsLocalInterruptAssignment()
		r.LocalInterrupts = append(r.LocalInterrupts, interrupt(a.InterruptAssignment))
	}
}

func interrupt(a mptable.InterruptAssignment) Interrupt {
	return Interrupt{
		Type:         a.InterruptType.String(),
		Polarity:     a.Polarity(),
		Trigger:      a.Trigger(),
		SourceBusID:  a.SourceBusID,
		SourceBusIRQ: a.SourceBusIRQ,
		DestAPICID:   a.DestAPICID,
		DestINTIN:    a.DestINTIN,
	}
}

// BootProcessor returns the bootstrap processor, if the table names one.
func (r *Report) BootProcessor() (Processor, bool) {
	for _, p := range r.Processors {
		if p.Boot {
			return p, true
		}
	}
	return Processor{}, false
}

// Entries returns the entries of one kind as a JSON/YAML-friendly value.
func (r *Report) Entries(code mptable.EntryCode) (any, bool) {
	switch code {
	case mptable.EntryProcessor:
		return r.Processors, true
	case mptable.EntryBus:
		return r.Buses, true
	case mptable.EntryIOAPIC:
		return r.IOAPICs, true
	case mptable.EntryIOInterrupt:
		return r.IOInterrupts, true
	case mptable.EntryLocalInterrupt:
		return r.LocalInterrupts, true
	}
	return nil, false
}

// ParseKind maps an entry kind name, as printed by EntryCode.String, back to
// its code.
func ParseKind(s string) (mptable.EntryCode, bool) {
	for c := mptable.EntryProcessor; c < mptable.EntryUnknown; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return mptable.EntryUnknown, false
}

// hex pads to at least eight digits after the 0x prefix.
func hex(v int64) string {
	return fmt.Sprintf("%#08x", v)
}
