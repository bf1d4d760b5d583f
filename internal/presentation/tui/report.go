// Package tui renders compiler diagnostics, machine state and puzzle
// text for the terminal.
package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"

	"github.com/cogvm/cog/pkg/lang"
	"github.com/cogvm/cog/pkg/protocol"
)

// Verdict renders the outcome of a finished run.
func Verdict(successful bool) string {
	p := termenv.ColorProfile()
	if successful {
		return termenv.String("SUCCESS").Foreground(p.Color("#4ade80")).Bold().String()
	}
	return termenv.String("FAILURE").Foreground(p.Color("#f87171")).Bold().String()
}

// Diagnostic renders one diagnostic followed by the offending source
// lines with a marker under the span.
func Diagnostic(source string, d lang.Diagnostic) string {
	p := termenv.ColorProfile()
	var b strings.Builder
	b.WriteString(termenv.String(d.Text).Foreground(p.Color("#f87171")).String())
	b.WriteByte('\n')

	lines := strings.Split(source, "\n")
	for ln := d.Span.StartLine; ln <= d.Span.EndLine && ln-1 < len(lines); ln++ {
		line := lines[ln-1]
		fmt.Fprintf(&b, " %3d | %s\n", ln, line)

		// Span columns are 1-based and end-exclusive.
		start := 1
		if ln == d.Span.StartLine {
			start = d.Span.StartCol
		}
		end := len(line) + 1
		if ln == d.Span.EndLine {
			end = d.Span.EndCol
		}
		if end <= start {
			end = start + 1
		}
		marker := strings.Repeat(" ", start-1) + strings.Repeat("^", end-start)
		b.WriteString("     | " + termenv.String(marker).Foreground(p.Color("#fbbf24")).String() + "\n")
	}
	return b.String()
}

// Diagnostics renders a batch of diagnostics against the same source.
func Diagnostics(source string, ds []lang.Diagnostic) string {
	var b strings.Builder
	for _, d := range ds {
		b.WriteString(Diagnostic(source, d))
	}
	return b.String()
}

// Listing renders the instruction listing of a compiled program.
func Listing(instructions []lang.SourceElement) string {
	var b strings.Builder
	for i, in := range instructions {
		fmt.Fprintf(&b, " %3d  %-24s ; line %d\n", i, in.Text, in.Span.StartLine)
	}
	return b.String()
}

// Snapshot renders the machine state between steps: cycle and program
// position, the io buffers, then registers and stacks.
func Snapshot(snap protocol.MachineSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "cycle %-4d pc %-3d in %v out %v\n", snap.CycleCount, snap.ProgramCounter, snap.Input, snap.Output)

	regs := make([]string, 0, len(snap.Registers))
	for _, r := range snap.Registers {
		regs = append(regs, fmt.Sprintf("%s=%d", r.Name, r.Value))
	}
	fmt.Fprintf(&b, "  %s\n", strings.Join(regs, "  "))

	for _, st := range snap.Stacks {
		fmt.Fprintf(&b, "  %s=%v\n", st.Name, st.Values)
	}
	return b.String()
}
