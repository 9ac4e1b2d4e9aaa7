package vecsim

import (
	"fmt"
	"strings"
)

// VectorSymbol is the TEXT symbol executed on trap entry.
const VectorSymbol = "trapVector"

// DispatchPC is the program counter reported while the dispatcher runs, so
// that an interrupt nested inside the dispatcher has a recognisable mepc.
const DispatchPC = 0x23f00000

// returnAddr is the value CALL leaves in ra.
const returnAddr = 0x23f00ff0

// clobberPattern fills the registers the dispatcher is free to change.
const clobberPattern = 0xdead_0000_0000_0000

// Variants of the vector.
const (
	VariantInt = "int"
	VariantFPU = "fpu"
)

// Vector is a loaded trap vector together with the layout constants it was
// assembled against.
type Vector struct {
	Path    string
	Variant string
	Body    []Instr

	// Align is the operand of the leading PCALIGN or 0 if there is none.
	Align int64

	FrameArgs  int64
	FrameSize  int64
	StackUsage int64

	// Layout maps slot names (RA, MEPC, F0, ...) to frame offsets.
	Layout map[string]int64
}

// Dispatcher stands in for the Go dispatcher. It may read and change the
// frame and the hart, including taking nested traps.
type Dispatcher func(h *Hart, frame *Frame) error

// Load parses the vector source at path. The variant is derived from the
// build constraint of the file.
func Load(path string) (*Vector, error) {
	prog, err := ParseFile(path)
	if err != nil {
		return nil, err
	}

	body, ok := prog.Text[VectorSymbol]
	if !ok {
		return nil, fmt.Errorf("%s: no TEXT symbol %s", path, VectorSymbol)
	}

	v := &Vector{Path: path, Body: body, Layout: make(map[string]int64)}

	suffix := "INT"
	switch prog.Constraint {
	case "fpu":
		v.Variant, suffix = VariantFPU, "FPU"
	case "!fpu":
		v.Variant = VariantInt
	default:
		return nil, fmt.Errorf("%s: cannot derive variant from build constraint %q", path, prog.Constraint)
	}

	if v.FrameArgs, err = prog.Const("FRAME_ARGS"); err != nil {
		return nil, err
	}
	if v.FrameSize, err = prog.Const("FRAME_SIZE_" + suffix); err != nil {
		return nil, err
	}
	if v.StackUsage, err = prog.Const("STACK_USAGE_" + suffix); err != nil {
		return nil, err
	}

	for name := range prog.Defines {
		slot, ok := strings.CutPrefix(name, "F_")
		if !ok {
			continue
		}
		if v.Variant == VariantInt && isFloatSlot(slot) {
			continue
		}
		if v.Layout[slot], err = prog.Const(name); err != nil {
			return nil, err
		}
	}

	if len(body) > 0 && body[0].Op == "PCALIGN" && len(body[0].Args) == 1 {
		v.Align = body[0].Args[0].Value
	}

	return v, nil
}

func isFloatSlot(slot string) bool {
	return slot == "FCSR" || (len(slot) > 1 && slot[0] == 'F' && slot[1] >= '0' && slot[1] <= '9')
}

// Trap takes a trap with the given mcause at the current PC and runs the
// vector until mret. A nil dispatcher returns immediately.
func (h *Hart) Trap(v *Vector, cause uint64, dispatch Dispatcher) error {
	h.enterTrap(cause)

	h.depth++
	defer func() { h.depth-- }()

	for _, instr := range v.Body {
		done, err := h.exec(v, instr, dispatch)
		if err != nil {
			return fmt.Errorf("%s:%d: %s: %w", v.Path, instr.Line, instr.Op, err)
		}
		if done {
			return nil
		}
	}

	return fmt.Errorf("%s: %s ends without mret", v.Path, VectorSymbol)
}

func (h *Hart) exec(v *Vector, instr Instr, dispatch Dispatcher) (bool, error) {
	args := instr.Args

	switch instr.Op {
	case "PCALIGN":
		return false, nil
	case "MOV":
		return false, h.execMove(args, Reg)
	case "MOVD":
		return false, h.execMove(args, FReg)
	case "ADD":
		return false, h.execAdd(args)
	case "CALL":
		return false, h.execCall(v, args, dispatch)
	case "WORD":
		if len(args) != 1 || args[0].Kind != Imm {
			return false, fmt.Errorf("expected a single immediate")
		}
		return h.execWord(uint32(args[0].Value))
	case "RET":
		return false, fmt.Errorf("a trap vector must return with mret")
	}

	return false, fmt.Errorf("unsupported instruction")
}

func (h *Hart) setX(reg int, v uint64) {
	if reg != 0 {
		h.X[reg] = v
	}
}

func (h *Hart) execMove(args []Operand, kind OperandKind) error {
	if len(args) != 2 {
		return fmt.Errorf("expected 2 operands, got %d", len(args))
	}
	src, dst := args[0], args[1]

	regs := &h.X
	if kind == FReg {
		regs = &h.F
	}

	switch {
	case src.Kind == kind && dst.Kind == Mem:
		return h.Store64(h.X[dst.Reg]+uint64(dst.Value), regs[src.Reg])
	case src.Kind == Mem && dst.Kind == kind:
		v, err := h.Load64(h.X[src.Reg] + uint64(src.Value))
		if err != nil {
			return err
		}
		if kind == Reg {
			h.setX(dst.Reg, v)
		} else {
			h.F[dst.Reg] = v
		}
		return nil
	case src.Kind == kind && dst.Kind == kind:
		if kind == Reg {
			h.setX(dst.Reg, h.X[src.Reg])
		} else {
			h.F[dst.Reg] = h.F[src.Reg]
		}
		return nil
	case kind == Reg && src.Kind == Imm && dst.Kind == Reg:
		h.setX(dst.Reg, uint64(src.Value))
		return nil
	}

	return fmt.Errorf("unsupported operand combination")
}

func (h *Hart) execAdd(args []Operand) error {
	var (
		addend uint64
		src    int
		dst    int
	)

	switch len(args) {
	case 2:
		src, dst = args[1].Reg, args[1].Reg
	case 3:
		src, dst = args[1].Reg, args[2].Reg
		if args[2].Kind != Reg {
			return fmt.Errorf("destination must be a register")
		}
	default:
		return fmt.Errorf("expected 2 or 3 operands, got %d", len(args))
	}
	if args[1].Kind != Reg {
		return fmt.Errorf("source must be a register")
	}

	switch args[0].Kind {
	case Imm:
		addend = uint64(args[0].Value)
	case Reg:
		addend = h.X[args[0].Reg]
	default:
		return fmt.Errorf("unsupported addend")
	}

	h.setX(dst, h.X[src]+addend)
	return nil
}

func (h *Hart) execCall(v *Vector, args []Operand, dispatch Dispatcher) error {
	if len(args) != 1 || args[0].Kind != Sym || args[0].Name != "dispatch" {
		return fmt.Errorf("the vector may only call dispatch")
	}

	// dispatch is reached through its ABI0 wrapper, which reads the
	// argument from 8(SP); a0 carries the same value.
	argSlot, err := h.Load64(h.X[2] + 8)
	if err != nil {
		return err
	}
	if argSlot != h.X[10] {
		return fmt.Errorf("argument slot holds %#x but a0 holds %#x", argSlot, h.X[10])
	}

	sp, resume := h.X[2], h.PC
	h.X[1] = returnAddr
	h.PC = DispatchPC
	h.frames = append(h.frames, argSlot)

	if dispatch != nil {
		if err := dispatch(h, &Frame{Base: argSlot, vector: v, hart: h}); err != nil {
			return err
		}
	}

	if h.X[2] != sp {
		return fmt.Errorf("dispatch returned with sp %#x, expected %#x", h.X[2], sp)
	}

	h.clobber(v)
	h.PC = resume
	return nil
}

// clobber overwrites every register a Go function may leave modified on
// return. The integer-only build assumes the dispatcher does not touch the
// floating-point state.
func (h *Hart) clobber(v *Vector) {
	for i := range h.X {
		if i != 0 && i != 2 {
			h.X[i] = clobberPattern | uint64(h.depth)<<32 | uint64(i)
		}
	}

	if v.Variant != VariantFPU {
		return
	}
	for i := range h.F {
		h.F[i] = clobberPattern | 0xf<<40 | uint64(h.depth)<<32 | uint64(i)
	}
	h.FCSR = 0xe0 | uint64(h.depth)&0x1f
}

// execWord executes the raw encodings the vector emits for instructions the
// Go assembler lacks: Zicsr accesses and mret.
func (h *Hart) execWord(enc uint32) (bool, error) {
	switch enc {
	case 0x30200073:
		h.mret()
		return true, nil
	case 0x10500073:
		return false, nil
	}

	if enc&0x7f != 0x73 {
		return false, fmt.Errorf("unsupported encoding %#08x", enc)
	}

	var (
		funct3 = (enc >> 12) & 0x7
		rd     = int((enc >> 7) & 0x1f)
		rs1    = (enc >> 15) & 0x1f
		num    = enc >> 20
	)

	if funct3 == 0 || funct3 == 4 {
		return false, fmt.Errorf("unsupported system instruction %#08x", enc)
	}

	csr, err := h.csr(num)
	if err != nil {
		return false, err
	}

	src := uint64(rs1)
	if funct3 < 4 {
		src = h.X[rs1]
	}

	old := *csr
	switch funct3 & 0x3 {
	case 1:
		*csr = src
	case 2:
		if rs1 != 0 {
			*csr = old | src
		}
	case 3:
		if rs1 != 0 {
			*csr &^= src
		}
	}
	if num == csrFcsr {
		*csr &= 0xff
	}

	h.setX(rd, old)
	return false, nil
}
