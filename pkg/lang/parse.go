package lang

import (
	"strconv"
	"strings"
)

// The grammar is line oriented: one label declaration or instruction per
// line, ';' starts a comment, keywords and register names are
// case-insensitive, labels are case-sensitive. Parsing stops at the first
// problem and produces a single syntax diagnostic covering the rest of
// the offending line.

var keywords = map[string]opcode{
	"READ": opRead, "WRITE": opWrite, "SET": opSet, "ADD": opAdd,
	"SUB": opSub, "MUL": opMul, "DIV": opDiv, "CMP": opCmp,
	"PUSH": opPush, "POP": opPop, "JMP": opJmp, "JEZ": opJez,
	"JNZ": opJnz, "JLZ": opJlz, "JGZ": opJgz,
}

type parser struct {
	src        string
	lines      []string
	lineStarts []int
}

type token struct {
	text string
	sp   span
}

// parseError marks where parsing failed and what the grammar wanted
// there. It becomes a "Expected <context>" diagnostic.
type parseError struct {
	context string
	line    int
	col     int
}

func parseSource(src string) ([]statement, *Diagnostic) {
	p := &parser{src: src, lines: strings.Split(src, "\n")}
	p.lineStarts = make([]int, len(p.lines))
	offset := 0
	for i, line := range p.lines {
		p.lineStarts[i] = offset
		offset += len(line) + 1
	}

	var stmts []statement
	for i, line := range p.lines {
		toks := p.scanLine(i, line)
		if len(toks) == 0 {
			continue
		}
		stmt, perr := p.parseStatement(toks)
		if perr != nil {
			d := p.diagnose(*perr)
			return nil, &d
		}
		stmts = append(stmts, stmt)
	}
	if len(stmts) == 0 {
		d := diag(Span{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 1}, "Syntax", "Expected program")
		return nil, &d
	}
	return stmts, nil
}

// scanLine splits one line into whitespace-separated tokens, dropping any
// trailing comment.
func (p *parser) scanLine(lineIdx int, line string) []token {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	var toks []token
	start := -1
	for i := 0; i <= len(line); i++ {
		atSpace := i == len(line) || line[i] == ' ' || line[i] == '\t' || line[i] == '\r'
		switch {
		case atSpace && start >= 0:
			toks = append(toks, p.token(lineIdx, start, line[start:i]))
			start = -1
		case !atSpace && start < 0:
			start = i
		}
	}
	return toks
}

func (p *parser) token(lineIdx, col0 int, text string) token {
	line, col := lineIdx+1, col0+1
	return token{text: text, sp: span{
		Offset: p.lineStarts[lineIdx] + col0,
		Length: len(text),
		Span: Span{
			StartLine: line, StartCol: col,
			EndLine: line, EndCol: col + len(text),
		},
	}}
}

// diagnose turns a parse failure into a diagnostic spanning from the
// failure position through the end of the line's code portion.
func (p *parser) diagnose(e parseError) Diagnostic {
	code := p.lines[e.line-1]
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	code = strings.TrimRight(code, " \t\r")
	endCol := len(code) + 1
	if endCol < e.col {
		endCol = e.col
	}
	sp := Span{StartLine: e.line, StartCol: e.col, EndLine: e.line, EndCol: endCol}
	return diag(sp, "Syntax", "Expected "+e.context)
}

func (p *parser) parseStatement(toks []token) (statement, *parseError) {
	head := toks[0]
	if name, ok := labelDecl(head.text); ok {
		nameSp := head.sp
		nameSp.Length = len(name)
		nameSp.EndCol = nameSp.StartCol + len(name)
		st := statement{
			kind:  stmtLabel,
			sp:    head.sp,
			label: labelNode{name: name, sp: nameSp},
		}
		return st, expectEnd(toks, 1)
	}

	op, ok := keywords[strings.ToUpper(head.text)]
	if !ok {
		return statement{}, errAt(head, "statement")
	}
	st := statement{kind: stmtOperator, op: op, sp: head.sp}
	if op.isJump() {
		st.kind = stmtJump
	}

	n := 1
	var err *parseError
	switch op {
	case opRead:
		st.reg, err = p.expectReg(toks, &n)
	case opWrite:
		st.val, err = p.expectVal(toks, &n)
	case opSet, opAdd, opSub, opMul, opDiv:
		if st.reg, err = p.expectReg(toks, &n); err == nil {
			st.val, err = p.expectVal(toks, &n)
		}
	case opCmp:
		if st.reg, err = p.expectReg(toks, &n); err == nil {
			if st.val, err = p.expectVal(toks, &n); err == nil {
				st.val2, err = p.expectVal(toks, &n)
			}
		}
	case opPush:
		if st.val, err = p.expectVal(toks, &n); err == nil {
			st.stack, err = p.expectStack(toks, &n)
		}
	case opPop:
		if st.stack, err = p.expectStack(toks, &n); err == nil {
			st.reg, err = p.expectReg(toks, &n)
		}
	case opJmp:
		st.label, err = p.expectLabel(toks, &n)
	case opJez, opJnz, opJlz, opJgz:
		if st.val, err = p.expectVal(toks, &n); err == nil {
			st.label, err = p.expectLabel(toks, &n)
		}
	}
	if err != nil {
		return statement{}, err
	}
	if err := expectEnd(toks, n); err != nil {
		return statement{}, err
	}
	st.sp = spanBetween(toks[0].sp, toks[n-1].sp)
	return st, nil
}

func (p *parser) expectReg(toks []token, n *int) (regNode, *parseError) {
	tok, err := next(toks, n, "register reference")
	if err != nil {
		return regNode{}, err
	}
	ref, ok := parseRegRef(tok.text)
	if !ok {
		return regNode{}, errAt(tok, "register reference")
	}
	return regNode{ref: ref, sp: tok.sp}, nil
}

func (p *parser) expectStack(toks []token, n *int) (stackNode, *parseError) {
	tok, err := next(toks, n, "stack reference")
	if err != nil {
		return stackNode{}, err
	}
	idx, ok := tagIndex(strings.ToUpper(tok.text), stackTag)
	if !ok {
		return stackNode{}, errAt(tok, "stack reference")
	}
	return stackNode{idx: idx, sp: tok.sp}, nil
}

func (p *parser) expectVal(toks []token, n *int) (valueNode, *parseError) {
	tok, err := next(toks, n, "value")
	if err != nil {
		return valueNode{}, err
	}
	if v, ok := parseLiteral(tok.text); ok {
		return valueNode{src: valueSrc{isConst: true, lit: v}, sp: tok.sp}, nil
	}
	if ref, ok := parseRegRef(tok.text); ok {
		return valueNode{src: valueSrc{reg: ref}, sp: tok.sp}, nil
	}
	return valueNode{}, errAt(tok, "value")
}

func (p *parser) expectLabel(toks []token, n *int) (labelNode, *parseError) {
	tok, err := next(toks, n, "label")
	if err != nil {
		return labelNode{}, err
	}
	if !isLabel(tok.text) {
		return labelNode{}, errAt(tok, "label")
	}
	return labelNode{name: tok.text, sp: tok.sp}, nil
}

func next(toks []token, n *int, context string) (token, *parseError) {
	if *n >= len(toks) {
		last := toks[len(toks)-1].sp
		return token{}, &parseError{context: context, line: last.EndLine, col: last.EndCol}
	}
	t := toks[*n]
	*n++
	return t, nil
}

func expectEnd(toks []token, n int) *parseError {
	if n < len(toks) {
		return errAt(toks[n], "end of statement")
	}
	return nil
}

func errAt(t token, context string) *parseError {
	return &parseError{context: context, line: t.sp.StartLine, col: t.sp.StartCol}
}

// parseRegRef recognizes RZR, RLI, RS<n> and RX<n>, case-insensitively.
func parseRegRef(s string) (regRef, bool) {
	u := strings.ToUpper(s)
	switch u {
	case nullRegisterName:
		return regRef{kind: regNull}, true
	case inputLengthRegisterName:
		return regRef{kind: regInputLen}, true
	}
	if idx, ok := tagIndex(u, stackLengthRegisterTag); ok {
		return regRef{kind: regStackLen, idx: idx}, true
	}
	if idx, ok := tagIndex(u, userRegisterTag); ok {
		return regRef{kind: regUser, idx: idx}, true
	}
	return regRef{}, false
}

// tagIndex parses "<tag><digits>". Indexes reject leading zeros so every
// reference has exactly one spelling.
func tagIndex(s, tag string) (int, bool) {
	rest, ok := strings.CutPrefix(s, tag)
	if !ok || rest == "" {
		return 0, false
	}
	if len(rest) > 1 && rest[0] == '0' {
		return 0, false
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] < '0' || rest[i] > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// parseLiteral accepts an optionally negated run of digits that fits in
// an int32.
func parseLiteral(s string) (int32, bool) {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(v), true
}

func isLabel(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		ok := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
		if !ok {
			return false
		}
	}
	return true
}

func labelDecl(s string) (string, bool) {
	name, ok := strings.CutSuffix(s, ":")
	if !ok || !isLabel(name) {
		return "", false
	}
	return name, true
}
