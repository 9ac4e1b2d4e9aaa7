// Package vecsim executes the riscv64 trap vector assembly on a modelled
// hart. It understands the subset of the Go assembler syntax the vector is
// written in, which is enough to check the save and restore sequence of the
// checked-in source against the frame layout without a RISC-V machine.
package vecsim

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// OperandKind classifies an instruction operand.
type OperandKind uint8

const (
	// Reg is an integer register X0..X31.
	Reg OperandKind = iota

	// FReg is a floating-point register F0..F31.
	FReg

	// Imm is an immediate constant ($expr).
	Imm

	// Mem is a displacement from a base register, disp(Xn).
	Mem

	// Sym is a symbol reference, ·name(SB).
	Sym
)

// Operand is a decoded instruction operand.
type Operand struct {
	Kind OperandKind

	// Reg is the register number for Reg and FReg, and the base register
	// for Mem.
	Reg int

	// Value is the immediate for Imm and the displacement for Mem.
	Value int64

	// Name is the symbol for Sym.
	Name string
}

// Instr is one assembled instruction.
type Instr struct {
	Op   string
	Args []Operand

	// Line is the source line, for error messages.
	Line int
}

// Program is a parsed assembly file.
type Program struct {
	// Path is the file the program was read from.
	Path string

	// Constraint is the //go:build expression, empty if absent.
	Constraint string

	// Defines holds every #define seen in the file and its includes.
	Defines map[string]string

	// Text maps a TEXT symbol (without the package prefix) to its body.
	Text map[string][]Instr
}

// builtinIncludes stand in for runtime headers that do not live next to the
// source.
var builtinIncludes = map[string]map[string]string{
	"textflag.h": {
		"NOPROF":     "1",
		"DUPOK":      "2",
		"NOSPLIT":    "4",
		"RODATA":     "8",
		"NOPTR":      "16",
		"WRAPPER":    "32",
		"NEEDCTXT":   "64",
		"TLSBSS":     "256",
		"NOFRAME":    "512",
		"TOPFRAME":   "2048",
		"ABIWRAPPER": "4096",
	},
}

// ParseFile reads and parses the assembly file at path. Quoted includes are
// resolved relative to the file.
func ParseFile(path string) (*Program, error) {
	prog := &Program{
		Path:    path,
		Defines: make(map[string]string),
		Text:    make(map[string][]Instr),
	}

	if err := prog.parse(path, 0); err != nil {
		return nil, err
	}
	return prog, nil
}

// Const evaluates a #define.
func (prog *Program) Const(name string) (int64, error) {
	if _, ok := prog.Defines[name]; !ok {
		return 0, fmt.Errorf("%s: %s is not defined", prog.Path, name)
	}
	return evalExpr(name, prog.Defines)
}

func (prog *Program) parse(path string, depth int) error {
	if depth > 8 {
		return fmt.Errorf("%s: includes nested too deeply", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		text    string
		lineNum int
		scanner = bufio.NewScanner(f)
	)

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "//go:build ") {
			if depth == 0 {
				prog.Constraint = strings.TrimSpace(strings.TrimPrefix(line, "//go:build "))
			}
			continue
		}

		if idx := strings.Index(line, "//"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch {
		case fields[0] == "#include":
			if len(fields) != 2 {
				return fmt.Errorf("%s:%d: malformed #include", path, lineNum)
			}
			if err := prog.include(path, strings.Trim(fields[1], `"<>`), depth); err != nil {
				return fmt.Errorf("%s:%d: %w", path, lineNum, err)
			}
		case fields[0] == "#define":
			if len(fields) < 2 {
				return fmt.Errorf("%s:%d: malformed #define", path, lineNum)
			}
			prog.Defines[fields[1]] = strings.Join(fields[2:], " ")
		case strings.HasPrefix(fields[0], "#"):
			return fmt.Errorf("%s:%d: unsupported directive %s", path, lineNum, fields[0])
		case fields[0] == "TEXT":
			if text, err = textSymbol(line); err != nil {
				return fmt.Errorf("%s:%d: %w", path, lineNum, err)
			}
			if _, dup := prog.Text[text]; dup {
				return fmt.Errorf("%s:%d: duplicate TEXT symbol %s", path, lineNum, text)
			}
			prog.Text[text] = nil
		case strings.HasSuffix(fields[0], ":") && len(fields) == 1:
			// Labels are accepted but the vector never branches.
		default:
			if text == "" {
				return fmt.Errorf("%s:%d: instruction outside of a TEXT block", path, lineNum)
			}

			instr, err := prog.parseInstr(line)
			if err != nil {
				return fmt.Errorf("%s:%d: %w", path, lineNum, err)
			}
			instr.Line = lineNum
			prog.Text[text] = append(prog.Text[text], instr)
		}
	}

	return scanner.Err()
}

func (prog *Program) include(from, name string, depth int) error {
	if defs, ok := builtinIncludes[name]; ok {
		for k, v := range defs {
			prog.Defines[k] = v
		}
		return nil
	}

	return prog.parse(filepath.Join(filepath.Dir(from), name), depth+1)
}

// textSymbol extracts the symbol name from a TEXT directive such as
// "TEXT ·trapVector(SB), NOSPLIT|NOFRAME, $0-0".
func textSymbol(line string) (string, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "TEXT"))
	end := strings.Index(rest, "(SB)")
	if end < 0 {
		return "", fmt.Errorf("malformed TEXT directive %q", line)
	}

	name := rest[:end]
	if idx := strings.LastIndex(name, "·"); idx >= 0 {
		name = name[idx+len("·"):]
	}
	if name == "" {
		return "", fmt.Errorf("malformed TEXT directive %q", line)
	}
	return name, nil
}

func (prog *Program) parseInstr(line string) (Instr, error) {
	var instr Instr

	op, rest, _ := strings.Cut(line, "\t")
	if strings.ContainsRune(op, ' ') {
		op, rest, _ = strings.Cut(line, " ")
	}
	instr.Op = strings.TrimSpace(op)

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return instr, nil
	}

	for _, arg := range splitOperands(rest) {
		operand, err := prog.parseOperand(arg)
		if err != nil {
			return instr, fmt.Errorf("%s: %w", instr.Op, err)
		}
		instr.Args = append(instr.Args, operand)
	}
	return instr, nil
}

// splitOperands splits on commas that are not inside parentheses.
func splitOperands(s string) []string {
	var (
		out   []string
		depth int
		start int
	)

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}

func (prog *Program) parseOperand(arg string) (Operand, error) {
	if strings.HasSuffix(arg, "(SB)") {
		name := strings.TrimSuffix(strings.TrimPrefix(arg, "$"), "(SB)")
		if idx := strings.LastIndex(name, "·"); idx >= 0 {
			name = name[idx+len("·"):]
		}
		return Operand{Kind: Sym, Name: name}, nil
	}

	if strings.HasPrefix(arg, "$") {
		v, err := evalExpr(arg[1:], prog.Defines)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: Imm, Value: v}, nil
	}

	if kind, num, ok := parseRegister(arg); ok {
		return Operand{Kind: kind, Reg: num}, nil
	}

	if strings.HasSuffix(arg, ")") {
		open := strings.LastIndexByte(arg, '(')
		kind, base, ok := parseRegister(arg[open+1 : len(arg)-1])
		if open < 0 || !ok || kind != Reg {
			return Operand{}, fmt.Errorf("bad memory operand %q", arg)
		}

		var disp int64
		if dispExpr := strings.TrimSpace(arg[:open]); dispExpr != "" {
			v, err := evalExpr(dispExpr, prog.Defines)
			if err != nil {
				return Operand{}, err
			}
			disp = v
		}
		return Operand{Kind: Mem, Reg: base, Value: disp}, nil
	}

	return Operand{}, fmt.Errorf("unsupported operand %q", arg)
}

// parseRegister decodes X0..X31, F0..F31, ZERO, TP and g. Like cmd/asm it
// rejects X4 and X27, which must be spelled TP and g.
func parseRegister(s string) (OperandKind, int, bool) {
	switch s {
	case "g":
		return Reg, 27, true
	case "TP":
		return Reg, 4, true
	case "ZERO":
		return Reg, 0, true
	case "X4", "X27":
		return 0, 0, false
	}

	if len(s) < 2 || (s[0] != 'X' && s[0] != 'F') {
		return 0, 0, false
	}

	num, err := strconv.Atoi(s[1:])
	if err != nil || num < 0 || num > 31 {
		return 0, 0, false
	}

	if s[0] == 'F' {
		return FReg, num, true
	}
	return Reg, num, true
}
