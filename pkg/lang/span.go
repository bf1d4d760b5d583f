package lang

import "fmt"

// Span locates a region of source text. Lines and columns are 1-based and
// counted in bytes; the end position is one past the final character of
// the region.
type Span struct {
	StartLine int `json:"startLine"`
	StartCol  int `json:"startCol"`
	EndLine   int `json:"endLine"`
	EndCol    int `json:"endCol"`
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

// SourceElement is a chunk of source text plus its location. Compiled
// programs expose one per instruction; Diagnostic reuses the shape with
// Text carrying the error message.
type SourceElement struct {
	Text string `json:"text"`
	Span Span   `json:"span"`
}

// Diagnostic is a compile-time or runtime error bound to the source region
// that caused it.
type Diagnostic = SourceElement

// span is the parser-internal location: a byte offset range for slicing
// the original source plus the public line/column region.
type span struct {
	Offset int
	Length int
	Span
}

func (s span) text(src string) string {
	return src[s.Offset : s.Offset+s.Length]
}

// spanBetween covers everything from the start of first to the end of
// last. Both must come from the same parse.
func spanBetween(first, last span) span {
	return span{
		Offset: first.Offset,
		Length: last.Offset + last.Length - first.Offset,
		Span: Span{
			StartLine: first.StartLine,
			StartCol:  first.StartCol,
			EndLine:   last.EndLine,
			EndCol:    last.EndCol,
		},
	}
}
