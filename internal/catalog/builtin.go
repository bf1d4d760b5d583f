package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/cogvm/cog/pkg/lang"
)

// Builtin returns the embedded puzzle set. The slice is freshly built
// on every call, so callers may modify it.
func Builtin() []Hardware {
	return []Hardware{
		{
			Slug: "scrapyard-one",
			Name: "Scrapyard Mk I",
			Spec: lang.HardwareSpec{NumRegisters: 1},
			Programs: []Program{
				{
					Slug:           "pass-through",
					Name:           "Pass Through",
					Description:    "Read every value from the input and write it to the output unchanged.",
					Input:          []int32{1, 2, 3},
					ExpectedOutput: []int32{1, 2, 3},
				},
				{
					Slug:           "doubler",
					Name:           "Doubler",
					Description:    "Write twice every input value.",
					Input:          []int32{1, 2, 3, 50},
					ExpectedOutput: []int32{2, 4, 6, 100},
				},
			},
		},
		{
			Slug: "workbench-two",
			Name: "Workbench Mk II",
			Spec: lang.HardwareSpec{NumRegisters: 2, NumStacks: 1, MaxStackLength: 16},
			Programs: []Program{
				{
					Slug:           "summation",
					Name:           "Summation",
					Description:    "Write the sum of all input values, then stop.",
					Input:          []int32{3, 8, 21, 10},
					ExpectedOutput: []int32{42},
				},
				{
					Slug:           "reverser",
					Name:           "Reverser",
					Description:    "Write the input values in reverse order. The stack remembers so you don't have to.",
					Input:          []int32{5, 4, 3, 2, 1},
					ExpectedOutput: []int32{1, 2, 3, 4, 5},
				},
			},
		},
		{
			Slug: "foundry-four",
			Name: "Foundry Mk IV",
			Spec: lang.HardwareSpec{NumRegisters: 4, NumStacks: 2, MaxStackLength: 32},
			Programs: []Program{
				{
					Slug:           "pairwise-sum",
					Name:           "Pairwise Sum",
					Description:    "Read the input two values at a time and write each pair's sum.",
					Input:          []int32{1, 2, 10, 20, -4, 4},
					ExpectedOutput: []int32{3, 30, 0},
				},
				{
					Slug:           "high-water",
					Name:           "High Water",
					Description:    "Write the running maximum after each input value.",
					Input:          []int32{3, 1, 4, 1, 5},
					ExpectedOutput: []int32{3, 3, 4, 4, 5},
				},
			},
		},
	}
}

// BuiltinSource serves the embedded puzzle set.
type BuiltinSource struct {
	hardware []Hardware
}

// NewBuiltinSource returns a Source over Builtin().
func NewBuiltinSource() *BuiltinSource {
	hw := Builtin()
	sort.Slice(hw, func(i, j int) bool { return hw[i].Slug < hw[j].Slug })
	return &BuiltinSource{hardware: hw}
}

// Hardware implements Source.
func (s *BuiltinSource) Hardware(_ context.Context, slug string) (Hardware, error) {
	for _, hw := range s.hardware {
		if hw.Slug == slug {
			return hw, nil
		}
	}
	return Hardware{}, fmt.Errorf("hardware %q: %w", slug, ErrHardwareNotFound)
}

// List implements Source.
func (s *BuiltinSource) List(_ context.Context) ([]Hardware, error) {
	out := make([]Hardware, len(s.hardware))
	copy(out, s.hardware)
	return out, nil
}
