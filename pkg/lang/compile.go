package lang

import "strings"

// CompileError carries the structured diagnostics of a failed compile.
// A syntax failure yields exactly one diagnostic; validation reports
// every problem it finds.
type CompileError struct {
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	texts := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		texts[i] = d.Text
	}
	return strings.Join(texts, "\n")
}

// Program is a compiled, delabeled program bound to the hardware it was
// compiled against.
type Program struct {
	hw      HardwareSpec
	instrs  []instr
	listing []SourceElement
}

// Compile parses, validates and delabels source for the given hardware.
// When the source is at fault the returned error is a *CompileError.
func Compile(source string, hw HardwareSpec) (*Program, error) {
	if err := hw.Validate(); err != nil {
		return nil, err
	}
	stmts, syntaxErr := parseSource(source)
	if syntaxErr != nil {
		return nil, &CompileError{Diagnostics: []Diagnostic{*syntaxErr}}
	}
	if errs := validateProgram(source, stmts, hw); len(errs) > 0 {
		return nil, &CompileError{Diagnostics: errs}
	}
	p := &Program{hw: hw}
	p.instrs, p.listing = delabel(source, stmts)
	return p, nil
}

// Hardware returns the spec the program was compiled against.
func (p *Program) Hardware() HardwareSpec { return p.hw }

// Instructions returns the program listing: one source element per
// executable instruction, labels removed.
func (p *Program) Instructions() []SourceElement {
	out := make([]SourceElement, len(p.listing))
	copy(out, p.listing)
	return out
}

// Jump describes one branch in a compiled program: the index of the
// jump instruction and the index it targets. Conditional jumps fall
// through to From+1 when the condition fails.
type Jump struct {
	From        int
	To          int
	Conditional bool
}

// Jumps returns every jump instruction in program order. A To equal to
// the instruction count points one past the end, which terminates the
// machine.
func (p *Program) Jumps() []Jump {
	var jumps []Jump
	for i, in := range p.instrs {
		if !in.op.isJump() {
			continue
		}
		jumps = append(jumps, Jump{From: i, To: i + in.offset, Conditional: in.op.conditional()})
	}
	return jumps
}

// delabel strips label declarations and rewrites jump targets as
// displacements relative to the jump instruction. A displacement of zero
// is a self loop; a label that trails the last instruction resolves one
// past the end, which terminates the machine.
func delabel(src string, stmts []statement) ([]instr, []SourceElement) {
	indexes := make(map[string]int)
	count := 0
	for _, st := range stmts {
		if st.kind == stmtLabel {
			indexes[st.label.name] = count
			continue
		}
		count++
	}

	instrs := make([]instr, 0, count)
	listing := make([]SourceElement, 0, count)
	for _, st := range stmts {
		if st.kind == stmtLabel {
			continue
		}
		el := SourceElement{Text: st.sp.text(src), Span: st.sp.Span}
		in := instr{
			op:      st.op,
			reg:     st.reg.ref,
			val:     st.val.src,
			val2:    st.val2.src,
			stack:   st.stack.idx,
			element: el,
		}
		if st.op == opPush || st.op == opPop {
			in.stackEl = SourceElement{Text: st.stack.sp.text(src), Span: st.stack.sp.Span}
		}
		if st.kind == stmtJump {
			in.offset = indexes[st.label.name] - len(instrs)
		}
		instrs = append(instrs, in)
		listing = append(listing, el)
	}
	return instrs, listing
}
