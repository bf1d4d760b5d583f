package lang_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cogvm/cog/pkg/lang"
)

func mustCompile(t *testing.T, source string, hw lang.HardwareSpec) *lang.Program {
	t.Helper()
	p, err := lang.Compile(source, hw)
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v", source, err)
	}
	return p
}

func compileDiagnostics(t *testing.T, source string, hw lang.HardwareSpec) []lang.Diagnostic {
	t.Helper()
	_, err := lang.Compile(source, hw)
	if err == nil {
		t.Fatalf("Compile(%q) unexpectedly succeeded", source)
	}
	var ce *lang.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("Compile(%q) returned %T, want *lang.CompileError", source, err)
	}
	return ce.Diagnostics
}

func TestCompileListing(t *testing.T) {
	p := mustCompile(t, "READ RX0\nWRITE RX0", lang.DefaultHardwareSpec())

	instrs := p.Instructions()
	if len(instrs) != 2 {
		t.Fatalf("got %d instructions, want 2", len(instrs))
	}
	if instrs[0].Text != "READ RX0" || instrs[1].Text != "WRITE RX0" {
		t.Errorf("unexpected listing: %q, %q", instrs[0].Text, instrs[1].Text)
	}
	want := lang.Span{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 9}
	if instrs[0].Span != want {
		t.Errorf("first instruction span = %v, want %v", instrs[0].Span, want)
	}
	want = lang.Span{StartLine: 2, StartCol: 1, EndLine: 2, EndCol: 10}
	if instrs[1].Span != want {
		t.Errorf("second instruction span = %v, want %v", instrs[1].Span, want)
	}
}

func TestCompileListingSkipsLabelsAndComments(t *testing.T) {
	src := "; header comment\n\nSTART: ; entry\nREAD RX0  ; pull one value\nJMP START"
	p := mustCompile(t, src, lang.DefaultHardwareSpec())

	instrs := p.Instructions()
	if len(instrs) != 2 {
		t.Fatalf("got %d instructions, want 2", len(instrs))
	}
	if instrs[0].Text != "READ RX0" {
		t.Errorf("listing[0] = %q, want %q", instrs[0].Text, "READ RX0")
	}
	if instrs[0].Span.StartLine != 4 {
		t.Errorf("listing[0] starts on line %d, want 4", instrs[0].Span.StartLine)
	}
}

func TestCompileSyntaxErrors(t *testing.T) {
	cases := []struct {
		name   string
		source string
		text   string
		span   lang.Span
	}{
		{
			name:   "unknown statement",
			source: "FOO BAR",
			text:   "Syntax error at 1:1: Expected statement",
			span:   lang.Span{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 8},
		},
		{
			name:   "empty program",
			source: "",
			text:   "Syntax error at 1:1: Expected program",
			span:   lang.Span{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 1},
		},
		{
			name:   "comments only",
			source: "; nothing here\n  ; still nothing",
			text:   "Syntax error at 1:1: Expected program",
			span:   lang.Span{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 1},
		},
		{
			name:   "missing register",
			source: "READ",
			text:   "Syntax error at 1:5: Expected register reference",
			span:   lang.Span{StartLine: 1, StartCol: 5, EndLine: 1, EndCol: 5},
		},
		{
			name:   "bad register",
			source: "READ R7",
			text:   "Syntax error at 1:6: Expected register reference",
			span:   lang.Span{StartLine: 1, StartCol: 6, EndLine: 1, EndCol: 8},
		},
		{
			name:   "leading zero register index",
			source: "READ RX01",
			text:   "Syntax error at 1:6: Expected register reference",
			span:   lang.Span{StartLine: 1, StartCol: 6, EndLine: 1, EndCol: 10},
		},
		{
			name:   "missing value",
			source: "SET RX0",
			text:   "Syntax error at 1:8: Expected value",
			span:   lang.Span{StartLine: 1, StartCol: 8, EndLine: 1, EndCol: 8},
		},
		{
			name:   "value out of range",
			source: "WRITE 2147483648",
			text:   "Syntax error at 1:7: Expected value",
			span:   lang.Span{StartLine: 1, StartCol: 7, EndLine: 1, EndCol: 17},
		},
		{
			name:   "bad stack",
			source: "PUSH 1 RX0",
			text:   "Syntax error at 1:8: Expected stack reference",
			span:   lang.Span{StartLine: 1, StartCol: 8, EndLine: 1, EndCol: 11},
		},
		{
			name:   "missing label",
			source: "JMP",
			text:   "Syntax error at 1:4: Expected label",
			span:   lang.Span{StartLine: 1, StartCol: 4, EndLine: 1, EndCol: 4},
		},
		{
			name:   "bad label",
			source: "JMP TO-HERE",
			text:   "Syntax error at 1:5: Expected label",
			span:   lang.Span{StartLine: 1, StartCol: 5, EndLine: 1, EndCol: 12},
		},
		{
			name:   "trailing garbage",
			source: "READ RX0 RX0",
			text:   "Syntax error at 1:10: Expected end of statement",
			span:   lang.Span{StartLine: 1, StartCol: 10, EndLine: 1, EndCol: 13},
		},
		{
			name:   "error on later line",
			source: "READ RX0\nWRITE RX0 extra",
			text:   "Syntax error at 2:11: Expected end of statement",
			span:   lang.Span{StartLine: 2, StartCol: 11, EndLine: 2, EndCol: 16},
		},
	}
	hw := lang.HardwareSpec{NumRegisters: 1, NumStacks: 1, MaxStackLength: 4}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			diags := compileDiagnostics(t, tc.source, hw)
			if len(diags) != 1 {
				t.Fatalf("got %d diagnostics, want exactly 1: %v", len(diags), diags)
			}
			if diags[0].Text != tc.text {
				t.Errorf("text = %q, want %q", diags[0].Text, tc.text)
			}
			if diags[0].Span != tc.span {
				t.Errorf("span = %v, want %v", diags[0].Span, tc.span)
			}
		})
	}
}

func TestCompileValidationErrors(t *testing.T) {
	hw := lang.HardwareSpec{NumRegisters: 2, NumStacks: 1, MaxStackLength: 4}
	cases := []struct {
		name   string
		source string
		texts  []string
	}{
		{
			name:   "register out of range",
			source: "READ RX2",
			texts:  []string{"Validation error at 1:6: Invalid reference to register `RX2`"},
		},
		{
			name:   "stack length register out of range",
			source: "WRITE RS1",
			texts:  []string{"Validation error at 1:7: Invalid reference to register `RS1`"},
		},
		{
			name:   "stack out of range",
			source: "PUSH 1 S1",
			texts:  []string{"Validation error at 1:8: Invalid reference to stack `S1`"},
		},
		{
			name:   "read-only write target",
			source: "SET RLI 1",
			texts:  []string{"Validation error at 1:5: Cannot write to read-only register `RLI`"},
		},
		{
			name:   "unknown jump target",
			source: "JMP NOWHERE",
			texts:  []string{"Validation error at 1:5: Invalid reference to label `NOWHERE`"},
		},
		{
			name:   "labels are case sensitive",
			source: "loop:\nJMP LOOP",
			texts:  []string{"Validation error at 2:5: Invalid reference to label `LOOP`"},
		},
		{
			name:   "duplicate label",
			source: "X:\nREAD RX0\nX:\nJMP X",
			texts:  []string{"Validation error at 3:1: Duplicate declaration of label `X`, originally defined on line 1"},
		},
		{
			name:   "all errors reported",
			source: "SET RLI 1\nWRITE RX9",
			texts: []string{
				"Validation error at 1:5: Cannot write to read-only register `RLI`",
				"Validation error at 2:7: Invalid reference to register `RX9`",
			},
		},
		{
			name:   "parse failure preempts validation",
			source: "CMP RX9 RS4 S0",
			texts: []string{
				"Syntax error at 1:13: Expected value",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			diags := compileDiagnostics(t, tc.source, hw)
			if len(diags) != len(tc.texts) {
				t.Fatalf("got %d diagnostics, want %d: %v", len(diags), len(tc.texts), diags)
			}
			for i, want := range tc.texts {
				if diags[i].Text != want {
					t.Errorf("diagnostic %d = %q, want %q", i, diags[i].Text, want)
				}
			}
		})
	}
}

func TestProgramJumps(t *testing.T) {
	src := "LOOP:\nJEZ RLI DONE\nREAD RX0\nWRITE RX0\nJMP LOOP\nDONE:"
	p := mustCompile(t, src, lang.DefaultHardwareSpec())

	want := []lang.Jump{
		{From: 0, To: 4, Conditional: true},
		{From: 3, To: 0},
	}
	got := p.Jumps()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Jumps() = %v, want %v", got, want)
	}
}

func TestProgramJumpsEmptyForLinearCode(t *testing.T) {
	p := mustCompile(t, "READ RX0\nWRITE RX0", lang.DefaultHardwareSpec())
	if jumps := p.Jumps(); len(jumps) != 0 {
		t.Errorf("Jumps() = %v, want none", jumps)
	}
}

func TestCompileCaseInsensitiveKeywords(t *testing.T) {
	hw := lang.HardwareSpec{NumRegisters: 1, NumStacks: 1, MaxStackLength: 4}
	p := mustCompile(t, "push 1 s0\npop S0 rx0\nwrite RX0", hw)
	if got := len(p.Instructions()); got != 3 {
		t.Fatalf("got %d instructions, want 3", got)
	}
}

func TestCompileRejectsBadHardware(t *testing.T) {
	_, err := lang.Compile("READ RX0", lang.HardwareSpec{NumRegisters: 0})
	if err == nil {
		t.Fatal("expected an error for hardware without registers")
	}
	var ce *lang.CompileError
	if errors.As(err, &ce) {
		t.Fatalf("hardware error should not be a CompileError, got %v", ce)
	}
}

func TestCompileErrorMessage(t *testing.T) {
	_, err := lang.Compile("SET RLI 1\nWRITE RX9", lang.DefaultHardwareSpec())
	if err == nil {
		t.Fatal("expected compile to fail")
	}
	want := "Validation error at 1:5: Cannot write to read-only register `RLI`\n" +
		"Validation error at 2:7: Invalid reference to register `RX9`"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
