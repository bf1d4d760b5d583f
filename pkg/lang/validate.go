package lang

import "fmt"

// validateProgram runs the whole-program checks parsing cannot do alone:
// register and stack indexes against the hardware, write targets against
// read-only registers, jump targets against declared labels. Unlike
// parsing, every problem found is reported.
func validateProgram(src string, stmts []statement, hw HardwareSpec) []Diagnostic {
	v := &validator{src: src, hw: hw, labels: make(map[string]labelNode)}
	v.collectLabels(stmts)
	for _, st := range stmts {
		v.statement(st)
	}
	return v.errs
}

type validator struct {
	src    string
	hw     HardwareSpec
	labels map[string]labelNode
	errs   []Diagnostic
}

func (v *validator) collectLabels(stmts []statement) {
	for _, st := range stmts {
		if st.kind != stmtLabel {
			continue
		}
		if prev, ok := v.labels[st.label.name]; ok {
			v.fail(st.label.sp, fmt.Sprintf("Duplicate declaration of label `%s`, originally defined on line %d",
				st.label.name, prev.sp.StartLine))
			continue
		}
		v.labels[st.label.name] = st.label
	}
}

func (v *validator) statement(st statement) {
	switch st.kind {
	case stmtLabel:
		// Declarations were checked in collectLabels.
	case stmtJump:
		if st.op.conditional() {
			v.value(st.val)
		}
		if _, ok := v.labels[st.label.name]; !ok {
			v.fail(st.label.sp, fmt.Sprintf("Invalid reference to label `%s`", st.label.name))
		}
	case stmtOperator:
		switch st.op {
		case opRead:
			v.dest(st.reg)
		case opWrite:
			v.value(st.val)
		case opSet, opAdd, opSub, opMul, opDiv:
			v.dest(st.reg)
			v.value(st.val)
		case opCmp:
			v.dest(st.reg)
			v.value(st.val)
			v.value(st.val2)
		case opPush:
			v.value(st.val)
			v.stack(st.stack)
		case opPop:
			v.stack(st.stack)
			v.dest(st.reg)
		}
	}
}

// register checks that a reference exists on the hardware.
func (v *validator) register(r regNode) bool {
	switch r.ref.kind {
	case regUser:
		if r.ref.idx >= v.hw.NumRegisters {
			v.failRef(r.sp, "register")
			return false
		}
	case regStackLen:
		if r.ref.idx >= v.hw.NumStacks {
			v.failRef(r.sp, "register")
			return false
		}
	}
	return true
}

// dest checks a write target: it must exist and be writable.
func (v *validator) dest(r regNode) {
	if !v.register(r) {
		return
	}
	if !r.ref.writable() {
		v.fail(r.sp, fmt.Sprintf("Cannot write to read-only register `%s`", r.sp.text(v.src)))
	}
}

func (v *validator) value(val valueNode) {
	if val.src.isConst {
		return
	}
	v.register(regNode{ref: val.src.reg, sp: val.sp})
}

func (v *validator) stack(s stackNode) {
	if s.idx >= v.hw.NumStacks {
		v.failRef(s.sp, "stack")
	}
}

func (v *validator) failRef(sp span, kind string) {
	v.fail(sp, fmt.Sprintf("Invalid reference to %s `%s`", kind, sp.text(v.src)))
}

func (v *validator) fail(sp span, msg string) {
	v.errs = append(v.errs, diag(sp.Span, "Validation", msg))
}
