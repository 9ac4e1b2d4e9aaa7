package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"bl602rt/tools/vecsim"
)

var (
	layoutVariant string
	layoutFormat  string
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the trap frame layout of a vector variant",
	Long: `Prints the frame slots the vector source saves, their offsets from the
frame base and the stack the vector allocates, followed by the mcause code of
every interrupt line named in the profile.`,
	Args: cobra.NoArgs,
	RunE: runLayout,
}

// Layout is the printable description of a vector variant.
type Layout struct {
	Target      string `yaml:"target"`
	Variant     string `yaml:"variant"`
	FrameArgs   int64  `yaml:"frame_args"`
	FrameSize   int64  `yaml:"frame_size"`
	StackUsage  int64  `yaml:"stack_usage"`
	VectorAlign int64  `yaml:"vector_align"`
	Slots       []Slot `yaml:"slots"`
	IRQs        []IRQ  `yaml:"irqs,omitempty"`
}

// Slot is a saved register.
type Slot struct {
	Name   string `yaml:"name"`
	Offset int64  `yaml:"offset"`
}

// IRQ is a named interrupt line and the mcause code it raises.
type IRQ struct {
	Name   string `yaml:"name"`
	Line   int    `yaml:"line"`
	Mcause int    `yaml:"mcause"`
}

func runLayout(cmd *cobra.Command, args []string) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}

	variant := layoutVariant
	if variant == "" {
		variant = p.Variant
	}

	path, err := p.Source(root, variant)
	if err != nil {
		return err
	}

	v, err := vecsim.Load(path)
	if err != nil {
		return err
	}
	logger.Debug("loaded vector", zap.String("path", path), zap.Int("instructions", len(v.Body)))

	return writeLayout(cmd.OutOrStdout(), buildLayout(p, v), layoutFormat)
}

func buildLayout(p *Profile, v *vecsim.Vector) *Layout {
	l := &Layout{
		Target:      p.Target,
		Variant:     v.Variant,
		FrameArgs:   v.FrameArgs,
		FrameSize:   v.FrameSize,
		StackUsage:  v.StackUsage,
		VectorAlign: v.Align,
	}

	for _, name := range v.Slots() {
		l.Slots = append(l.Slots, Slot{Name: name, Offset: v.Layout[name]})
	}

	for name, line := range p.IRQs {
		l.IRQs = append(l.IRQs, IRQ{Name: name, Line: line, Mcause: p.IRQBase + line})
	}
	sort.Slice(l.IRQs, func(i, j int) bool { return l.IRQs[i].Line < l.IRQs[j].Line })

	return l
}

func writeLayout(w io.Writer, l *Layout, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(l); err != nil {
			return err
		}
		return enc.Close()
	case "table":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	fmt.Fprintf(w, "%s/%s: frame %d bytes at sp+%d, stack usage %d bytes, vector align %d\n",
		l.Target, l.Variant, l.FrameSize, l.FrameArgs, l.StackUsage, l.VectorAlign)
	fmt.Fprintf(w, "\n%-8s %6s\n", "SLOT", "OFFSET")
	for _, s := range l.Slots {
		fmt.Fprintf(w, "%-8s %6d\n", s.Name, s.Offset)
	}

	if len(l.IRQs) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\n%-12s %4s %6s\n", "IRQ", "LINE", "MCAUSE")
	for _, irq := range l.IRQs {
		fmt.Fprintf(w, "%-12s %4d %6d\n", irq.Name, irq.Line, irq.Mcause)
	}
	return nil
}
