package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"bl602rt/tools/vecsim"
)

// Profile describes the trap configuration of a target.
type Profile struct {
	Target      string `yaml:"target"`
	Variant     string `yaml:"variant"`
	WordSize    int    `yaml:"word_size"`
	VectorAlign int64  `yaml:"vector_align"`
	MtvecMode   string `yaml:"mtvec_mode"`

	// VectorSymbol is the linker name of the vector.
	VectorSymbol string `yaml:"vector_symbol"`

	IRQBase int            `yaml:"irq_base"`
	IRQs    map[string]int `yaml:"irqs"`

	Sources Sources `yaml:"sources"`
}

// Sources locates the vector variants relative to the repository root.
type Sources struct {
	Int string `yaml:"int"`
	FPU string `yaml:"fpu"`
}

// mtvecModes maps profile mode names to the mtvec mode field and the
// minimum vector alignment the mode implies.
var mtvecModes = map[string]struct {
	field    uint64
	minAlign int64
}{
	"direct":      {0, 4},
	"clic-direct": {2, 64},
}

// LoadProfile reads and validates a profile. Unknown keys are rejected.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

// Validate checks the profile for internal consistency.
func (p *Profile) Validate() error {
	switch {
	case p.Target == "":
		return fmt.Errorf("missing target")
	case p.Variant != vecsim.VariantInt && p.Variant != vecsim.VariantFPU:
		return fmt.Errorf("variant must be %q or %q, got %q", vecsim.VariantInt, vecsim.VariantFPU, p.Variant)
	case p.WordSize != 4 && p.WordSize != 8:
		return fmt.Errorf("word_size must be 4 or 8, got %d", p.WordSize)
	case p.VectorAlign <= 0 || p.VectorAlign&(p.VectorAlign-1) != 0:
		return fmt.Errorf("vector_align must be a power of two, got %d", p.VectorAlign)
	case p.VectorSymbol == "":
		return fmt.Errorf("missing vector_symbol")
	case p.Sources.Int == "" || p.Sources.FPU == "":
		return fmt.Errorf("sources must name both the int and fpu vectors")
	}

	mode, ok := mtvecModes[p.MtvecMode]
	if !ok {
		return fmt.Errorf("unknown mtvec_mode %q", p.MtvecMode)
	}
	if p.VectorAlign < mode.minAlign {
		return fmt.Errorf("mtvec_mode %s needs vector_align >= %d, got %d", p.MtvecMode, mode.minAlign, p.VectorAlign)
	}

	for name, line := range p.IRQs {
		if line < 0 || p.IRQBase+line > 0xfff {
			return fmt.Errorf("irq %s: line %d out of range", name, line)
		}
	}
	return nil
}

// Source returns the path of the vector source for variant.
func (p *Profile) Source(root, variant string) (string, error) {
	switch variant {
	case vecsim.VariantInt:
		return filepath.Join(root, p.Sources.Int), nil
	case vecsim.VariantFPU:
		return filepath.Join(root, p.Sources.FPU), nil
	}
	return "", fmt.Errorf("unknown variant %q", variant)
}
