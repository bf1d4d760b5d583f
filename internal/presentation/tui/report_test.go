package tui

import (
	"regexp"
	"strings"
	"testing"

	"github.com/cogvm/cog/pkg/lang"
	"github.com/cogvm/cog/pkg/protocol"
)

var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

// plain strips color sequences so layout asserts hold with or without a
// TTY.
func plain(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func TestDiagnosticMarksSpan(t *testing.T) {
	source := "READ RX0\nFOO BAR"
	d := lang.Diagnostic{
		Text: "Syntax error at 2:1: Expected statement",
		Span: lang.Span{StartLine: 2, StartCol: 1, EndLine: 2, EndCol: 8},
	}

	out := plain(Diagnostic(source, d))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), out)
	}
	if lines[0] != "Syntax error at 2:1: Expected statement" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "   2 | FOO BAR" {
		t.Errorf("unexpected source line %q", lines[1])
	}
	if lines[2] != "     | ^^^^^^^" {
		t.Errorf("marker misaligned: %q", lines[2])
	}
}

func TestDiagnosticMarkerOffset(t *testing.T) {
	source := "SET RX0 99999999999"
	d := lang.Diagnostic{
		Text: "Validation error at 1:9: invalid value",
		Span: lang.Span{StartLine: 1, StartCol: 9, EndLine: 1, EndCol: 20},
	}

	out := plain(Diagnostic(source, d))
	if !strings.Contains(out, "     |         ^^^^^^^^^^^") {
		t.Errorf("marker not under the span:\n%s", out)
	}
}

func TestSnapshotLayout(t *testing.T) {
	snap := protocol.MachineSnapshot{
		ProgramCounter: 2,
		CycleCount:     7,
		Input:          []int32{3},
		Output:         []int32{1, 2},
		Registers: protocol.RegisterValues{
			{Name: "RLI", Value: 1},
			{Name: "RX0", Value: 42},
		},
		Stacks: protocol.StackValues{
			{Name: "S0", Values: []int32{5, 6}},
		},
	}

	out := Snapshot(snap)
	for _, want := range []string{"cycle 7", "pc 2", "in [3]", "out [1 2]", "RLI=1  RX0=42", "S0=[5 6]"} {
		if !strings.Contains(out, want) {
			t.Errorf("snapshot missing %q:\n%s", want, out)
		}
	}
}

func TestListingShowsSourceLines(t *testing.T) {
	out := Listing([]lang.SourceElement{
		{Text: "READ RX0", Span: lang.Span{StartLine: 2, StartCol: 1, EndLine: 2, EndCol: 9}},
		{Text: "WRITE RX0", Span: lang.Span{StartLine: 3, StartCol: 1, EndLine: 3, EndCol: 10}},
	})
	if !strings.Contains(out, "0  READ RX0") || !strings.Contains(out, "; line 2") {
		t.Errorf("unexpected listing:\n%s", out)
	}
}

func TestVerdict(t *testing.T) {
	if got := plain(Verdict(true)); got != "SUCCESS" {
		t.Errorf("verdict = %q", got)
	}
	if got := plain(Verdict(false)); got != "FAILURE" {
		t.Errorf("verdict = %q", got)
	}
}
