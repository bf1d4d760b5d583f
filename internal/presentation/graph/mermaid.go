// Package graph renders compiled programs as Mermaid flowcharts so
// editors and chat frontends can show the jump structure of a solution.
package graph

import (
	"fmt"
	"strings"

	"github.com/cogvm/cog/pkg/lang"
)

// Flowchart produces Mermaid flowchart syntax for a compiled program.
// Instructions chain in execution order and jumps add dashed edges, so
// loops show up as cycles in the chart. Semantic styling:
//   - start and the terminal state: ((Circle))
//   - READ/WRITE: [/Parallelogram/] (the program touching input or output)
//   - everything else: [Rectangle]
//
// Conditional jumps keep their fallthrough edge and mark the branch
// with a "taken" label; JMP has only the dashed edge.
func Flowchart(program *lang.Program) string {
	instructions := program.Instructions()

	jumps := make(map[int]lang.Jump)
	for _, j := range program.Jumps() {
		jumps[j.From] = j
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    start((\"start\"))\n")

	for i, el := range instructions {
		// Node shape based on the mnemonic
		opener, closer := "[", "]"
		switch mnemonic(el.Text) {
		case "READ", "WRITE":
			opener, closer = "[/", "/]"
		}

		// Escape double quotes for Mermaid labels
		label := strings.ReplaceAll(el.Text, `"`, "'")
		sb.WriteString(fmt.Sprintf("    i%d%s\"%s\"%s\n", i, opener, label, closer))
	}
	sb.WriteString("    done((\"end\"))\n")

	if len(instructions) == 0 {
		sb.WriteString("    start --> done\n")
		return sb.String()
	}
	sb.WriteString("    start --> i0\n")

	for i := range instructions {
		if j, ok := jumps[i]; ok {
			target := nodeID(j.To, len(instructions))
			if !j.Conditional {
				sb.WriteString(fmt.Sprintf("    i%d -.-> %s\n", i, target))
				continue
			}
			sb.WriteString(fmt.Sprintf("    i%d -. \"taken\" .-> %s\n", i, target))
		}
		sb.WriteString(fmt.Sprintf("    i%d --> %s\n", i, nodeID(i+1, len(instructions))))
	}

	return sb.String()
}

// nodeID maps an instruction index to its Mermaid node. One past the
// last instruction is where the machine terminates, drawn as "done".
func nodeID(index, count int) string {
	if index >= count {
		return "done"
	}
	return fmt.Sprintf("i%d", index)
}

// Keywords are case-insensitive in source, so the mnemonic is
// normalized before shape selection.
func mnemonic(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
