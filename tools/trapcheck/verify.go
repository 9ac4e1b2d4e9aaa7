package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bl602rt/kernel/clic"
	"bl602rt/kernel/trap"
	"bl602rt/tools/vecsim"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run both vector variants through the hart simulator",
	Long: `Executes the int and fpu vector sources on a simulated hart and checks
that every register survives the trap, that the stack is balanced, that
nested traps use disjoint frames and that dispatcher changes to the frame are
applied on return. The profile is also checked against the kernel constants.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}

	if err := checkProfileConstants(p); err != nil {
		return err
	}

	variants := []string{vecsim.VariantInt, vecsim.VariantFPU}
	vectors := make([]*vecsim.Vector, len(variants))

	var g errgroup.Group
	for i, variant := range variants {
		i, variant := i, variant // per-iteration copies (go 1.21 loop semantics)
		path, err := p.Source(root, variant)
		if err != nil {
			return err
		}

		g.Go(func() error {
			v, err := vecsim.Load(path)
			if err != nil {
				return err
			}
			if v.Variant != variant {
				return fmt.Errorf("%s: builds the %s variant, expected %s", path, v.Variant, variant)
			}
			if v.Align != p.VectorAlign {
				return fmt.Errorf("%s: PCALIGN %d does not match vector_align %d", path, v.Align, p.VectorAlign)
			}
			if err := vecsim.Check(v); err != nil {
				return err
			}

			logger.Debug("variant verified", zap.String("variant", variant), zap.Int("properties", len(vecsim.Properties)))
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := vecsim.Equivalent(vectors[0], vectors[1]); err != nil {
		return err
	}

	logger.Info("trap vector verified", zap.String("target", p.Target), zap.Strings("variants", variants))
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d properties hold for %d variants\n", p.Target, len(vecsim.Properties), len(variants))
	return nil
}

// checkProfileConstants cross-checks the profile against the values the
// kernel was built with.
func checkProfileConstants(p *Profile) error {
	switch {
	case p.VectorAlign != trap.VectorAlign:
		return fmt.Errorf("profile vector_align %d, kernel VectorAlign %d", p.VectorAlign, trap.VectorAlign)
	case uintptr(p.WordSize) != trap.WordSize:
		return fmt.Errorf("profile word_size %d, kernel word size %d", p.WordSize, trap.WordSize)
	case p.IRQBase != clic.IRQBase:
		return fmt.Errorf("profile irq_base %d, kernel IRQBase %d", p.IRQBase, clic.IRQBase)
	}

	mode := mtvecModes[p.MtvecMode].field
	if mode != uint64(trap.Mode) {
		return fmt.Errorf("profile mtvec_mode %s (%d), kernel mode %d", p.MtvecMode, mode, trap.Mode)
	}

	kernelLines := map[string]clic.IRQ{
		"timer_ch0": clic.TimerCh0,
		"timer_ch1": clic.TimerCh1,
		"watchdog":  clic.Watchdog,
		"gpio":      clic.GPIO,
	}
	for name, line := range p.IRQs {
		irq, known := kernelLines[name]
		if !known {
			continue
		}
		if got := int(irq.Source()); got != p.IRQBase+line {
			return fmt.Errorf("irq %s: profile mcause %d, kernel %d", name, p.IRQBase+line, got)
		}
	}
	return nil
}
