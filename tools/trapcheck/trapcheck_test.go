package main

import (
	"bytes"
	"debug/elf"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"

	"bl602rt/tools/vecsim"
)

const repoRoot = "../.."

// verify fans out over goroutines; none may outlive a command.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testProfile(t *testing.T) *Profile {
	t.Helper()

	p, err := LoadProfile(filepath.Join(repoRoot, "targets", "bl602.yaml"))
	require.NoError(t, err)
	return p
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		verbose, profilePath, root = false, "targets/bl602.yaml", "."
		layoutVariant, layoutFormat = "", "table"
		logger = nil
	})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--root", repoRoot}, args...))

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestLoadProfile(t *testing.T) {
	p := testProfile(t)

	require.Equal(t, "bl602", p.Target)
	require.Equal(t, vecsim.VariantInt, p.Variant)
	require.Equal(t, int64(64), p.VectorAlign)
	require.Equal(t, "clic-direct", p.MtvecMode)
	require.Equal(t, 16, p.IRQBase)
	require.Equal(t, map[string]int{"timer_ch0": 36, "timer_ch1": 37, "watchdog": 38, "gpio": 44}, p.IRQs)
	require.NoError(t, checkProfileConstants(p))
}

func TestLoadProfileRejectsBadProfiles(t *testing.T) {
	valid, err := os.ReadFile(filepath.Join(repoRoot, "targets", "bl602.yaml"))
	require.NoError(t, err)

	specs := []struct {
		name    string
		edit    func(string) string
		errPart string
	}{
		{
			"unknown field",
			func(s string) string { return s + "stack_guard: true\n" },
			"field stack_guard not found",
		},
		{
			"bad variant",
			func(s string) string { return strings.Replace(s, "variant: int", "variant: soft", 1) },
			"variant must be",
		},
		{
			"alignment below mode minimum",
			func(s string) string { return strings.Replace(s, "vector_align: 64", "vector_align: 4", 1) },
			"needs vector_align >= 64",
		},
		{
			"alignment not a power of two",
			func(s string) string { return strings.Replace(s, "vector_align: 64", "vector_align: 96", 1) },
			"power of two",
		},
		{
			"unknown mode",
			func(s string) string { return strings.Replace(s, "mtvec_mode: clic-direct", "mtvec_mode: vectored", 1) },
			"unknown mtvec_mode",
		},
	}

	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profile.yaml")
			require.NoError(t, os.WriteFile(path, []byte(spec.edit(string(valid))), 0o644))

			_, err := LoadProfile(path)
			require.Error(t, err)
			require.Contains(t, err.Error(), spec.errPart)
		})
	}
}

func TestCheckProfileConstants(t *testing.T) {
	p := testProfile(t)
	p.IRQs["gpio"] = 45
	require.ErrorContains(t, checkProfileConstants(p), "irq gpio")

	p = testProfile(t)
	p.MtvecMode = "direct"
	require.ErrorContains(t, checkProfileConstants(p), "mtvec_mode")

	p = testProfile(t)
	p.IRQBase = 0
	require.ErrorContains(t, checkProfileConstants(p), "irq_base")
}

func TestLayout(t *testing.T) {
	p := testProfile(t)

	path, err := p.Source(repoRoot, vecsim.VariantFPU)
	require.NoError(t, err)
	v, err := vecsim.Load(path)
	require.NoError(t, err)

	l := buildLayout(p, v)
	require.Equal(t, vecsim.VariantFPU, l.Variant)
	require.Equal(t, int64(544), l.FrameSize)
	require.Equal(t, Slot{Name: "RA", Offset: 0}, l.Slots[0])
	require.Equal(t, Slot{Name: "FCSR", Offset: 528}, l.Slots[len(l.Slots)-1])
	require.Equal(t, IRQ{Name: "timer_ch0", Line: 36, Mcause: 52}, l.IRQs[0])
	require.Equal(t, IRQ{Name: "gpio", Line: 44, Mcause: 60}, l.IRQs[len(l.IRQs)-1])

	var buf bytes.Buffer
	require.NoError(t, writeLayout(&buf, l, "yaml"))

	var decoded Layout
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, *l, decoded)

	buf.Reset()
	require.NoError(t, writeLayout(&buf, l, "table"))
	require.Contains(t, buf.String(), "bl602/fpu: frame 544 bytes at sp+16, stack usage 560 bytes, vector align 64\n")
	require.Contains(t, buf.String(), "MCAUSE      256\n")
	require.Contains(t, buf.String(), "watchdog       38     54\n")

	require.Error(t, writeLayout(&buf, l, "json"))
}

func TestLayoutCommand(t *testing.T) {
	out, err := execute(t, "layout", "--variant", "int")
	require.NoError(t, err)
	require.Contains(t, out, "bl602/int: frame 272 bytes")
	require.NotContains(t, out, "FCSR")
}

func TestVerifyCommand(t *testing.T) {
	out, err := execute(t, "verify")
	require.NoError(t, err)
	require.Contains(t, out, "bl602: 7 properties hold for 2 variants\n")
}

func TestRootRequiresRepository(t *testing.T) {
	t.Cleanup(func() { root = "." })

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--root", t.TempDir(), "verify"})
	require.ErrorContains(t, rootCmd.Execute(), "not a bl602rt repository root")
}

func TestFindSymbol(t *testing.T) {
	symbols := []elf.Symbol{
		{Name: "bl602rt/kernel/trap.dispatch", Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC), Value: 0x23000100},
		{Name: "bl602rt/kernel/trap.trapVector", Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC), Value: 0x23000040},
		{Name: "bl602rt/kernel/trap.installed", Info: elf.ST_INFO(elf.STB_LOCAL, elf.STT_OBJECT), Value: 0x42000000},
	}

	addr, err := findSymbol(symbols, "bl602rt/kernel/trap.trapVector")
	require.NoError(t, err)
	require.Equal(t, uint64(0x23000040), addr)

	_, err = findSymbol(symbols, "bl602rt/kernel/trap.installed")
	require.ErrorContains(t, err, "not a function symbol")

	_, err = findSymbol(symbols, "bl602rt/kernel/trap.missing")
	require.ErrorContains(t, err, "could not locate")

	abi0 := []elf.Symbol{{Name: "bl602rt/kernel/trap.trapVector.abi0", Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC), Value: 0x23000080}}
	addr, err = findSymbol(abi0, "bl602rt/kernel/trap.trapVector")
	require.NoError(t, err)
	require.Equal(t, uint64(0x23000080), addr)
}

func TestCheckVectorAddr(t *testing.T) {
	p := testProfile(t)

	require.NoError(t, checkVectorAddr(0x23000040, p))
	require.NoError(t, checkVectorAddr(0x23000000, p))
	require.ErrorContains(t, checkVectorAddr(0x23000044, p), "4 bytes past a 64-byte boundary")
}

func TestElfVectorAddr(t *testing.T) {
	p := testProfile(t)

	notELF := filepath.Join(t.TempDir(), "image")
	require.NoError(t, os.WriteFile(notELF, []byte("not an image"), 0o644))
	_, err := elfVectorAddr(notELF, p)
	require.Error(t, err)

	if runtime.GOOS != "linux" {
		t.Skip("the test binary is not an ELF image on this host")
	}

	// The test binary is a real ELF image without the vector symbol.
	self, err := os.Executable()
	require.NoError(t, err)
	_, err = elfVectorAddr(self, p)
	require.Error(t, err)
}

func TestAlignCommandFailsOnMissingImage(t *testing.T) {
	_, err := execute(t, "align", filepath.Join(t.TempDir(), "missing.elf"))
	require.Error(t, err)
}
