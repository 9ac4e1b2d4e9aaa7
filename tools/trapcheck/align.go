package main

import (
	"debug/elf"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var alignCmd = &cobra.Command{
	Use:   "align <image>",
	Short: "Check that the linked vector satisfies the mtvec alignment",
	Long: `Reads the symbol table of a linked ELF image and fails unless the vector
symbol named in the profile starts on a vector_align boundary. mtvec ignores
the low address bits, so a misaligned vector sends every trap into the
preceding code.`,
	Args: cobra.ExactArgs(1),
	RunE: runAlign,
}

func runAlign(cmd *cobra.Command, args []string) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}

	addr, err := elfVectorAddr(args[0], p)
	if err != nil {
		return err
	}

	if err := checkVectorAddr(addr, p); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	logger.Info("vector aligned",
		zap.String("image", args[0]),
		zap.String("symbol", p.VectorSymbol),
		zap.String("addr", fmt.Sprintf("%#x", addr)),
		zap.Int64("align", p.VectorAlign),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "%s @ %#x: aligned to %d\n", p.VectorSymbol, addr, p.VectorAlign)
	return nil
}

// elfVectorAddr resolves the address of the profile's vector symbol in the
// image and checks the image matches the profile's machine.
func elfVectorAddr(imgFile string, p *Profile) (uint64, error) {
	f, err := elf.Open(imgFile)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if f.Machine != elf.EM_RISCV {
		return 0, fmt.Errorf("%s: machine is %s, expected %s", imgFile, f.Machine, elf.EM_RISCV)
	}

	class := elf.ELFCLASS64
	if p.WordSize == 4 {
		class = elf.ELFCLASS32
	}
	if f.Class != class {
		return 0, fmt.Errorf("%s: class is %s, expected %s", imgFile, f.Class, class)
	}

	symbols, err := f.Symbols()
	if err != nil {
		return 0, err
	}

	return findSymbol(symbols, p.VectorSymbol)
}

// findSymbol returns the address of the function symbol name. The linker
// appends ".abi0" to assembly symbols that also have a Go wrapper.
func findSymbol(symbols []elf.Symbol, name string) (uint64, error) {
	for _, symbol := range symbols {
		if symbol.Name == name || symbol.Name == name+".abi0" {
			if elf.ST_TYPE(symbol.Info) != elf.STT_FUNC {
				return 0, fmt.Errorf("%q is not a function symbol", name)
			}
			return symbol.Value, nil
		}
	}

	return 0, fmt.Errorf("could not locate address of %q", name)
}

func checkVectorAddr(addr uint64, p *Profile) error {
	if rem := addr % uint64(p.VectorAlign); rem != 0 {
		return fmt.Errorf("%s at %#x is %d bytes past a %d-byte boundary", p.VectorSymbol, addr, rem, p.VectorAlign)
	}
	return nil
}
