package lang

import "fmt"

// diag builds a diagnostic whose text leads with its class and the
// 1-based start position of the offending source.
func diag(sp Span, class, msg string) Diagnostic {
	return Diagnostic{
		Text: fmt.Sprintf("%s error at %d:%d: %s", class, sp.StartLine, sp.StartCol, msg),
		Span: sp,
	}
}
