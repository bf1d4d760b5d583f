package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/cogvm/cog/pkg/lang"
)

func TestBuiltinSetIsValid(t *testing.T) {
	boards := Builtin()
	if len(boards) == 0 {
		t.Fatal("builtin set is empty")
	}
	for _, hw := range boards {
		if err := hw.Validate(); err != nil {
			t.Errorf("builtin hardware %q invalid: %v", hw.Slug, err)
		}
		if len(hw.Programs) == 0 {
			t.Errorf("builtin hardware %q has no programs", hw.Slug)
		}
	}
}

func TestBuiltinPuzzlesAreSolvable(t *testing.T) {
	// One known solution per builtin board proves the specs are
	// consistent with the engine.
	solutions := map[string]map[string]string{
		"scrapyard-one": {
			"pass-through": "LOOP:\nJEZ RLI DONE\nREAD RX0\nWRITE RX0\nJMP LOOP\nDONE:",
		},
		"workbench-two": {
			"reverser": "FILL:\nJEZ RLI DRAIN\nREAD RX0\nPUSH RX0 S0\nJMP FILL\nDRAIN:\nJEZ RS0 DONE\nPOP S0 RX0\nWRITE RX0\nJMP DRAIN\nDONE:",
		},
		"foundry-four": {
			"pairwise-sum": "LOOP:\nJEZ RLI DONE\nREAD RX0\nREAD RX1\nADD RX0 RX1\nWRITE RX0\nJMP LOOP\nDONE:",
		},
	}

	src := NewBuiltinSource()
	for hwSlug, programs := range solutions {
		for progSlug, source := range programs {
			hw, prog, err := FindProgram(context.Background(), src, hwSlug, progSlug)
			if err != nil {
				t.Fatalf("FindProgram(%s, %s) error: %v", hwSlug, progSlug, err)
			}
			program, err := lang.Compile(source, hw.Spec)
			if err != nil {
				t.Fatalf("solution for %s/%s does not compile: %v", hwSlug, progSlug, err)
			}
			machine := program.NewMachine(prog.ProgramSpec())
			if !machine.ExecuteAll() {
				t.Errorf("solution for %s/%s failed: output %v, error %v", hwSlug, progSlug, machine.Output(), machine.Err())
			}
		}
	}
}

func TestHardwareValidation(t *testing.T) {
	valid := Hardware{
		Slug: "test-board",
		Name: "Test Board",
		Spec: lang.HardwareSpec{NumRegisters: 2, NumStacks: 1, MaxStackLength: 8},
		Programs: []Program{
			{Slug: "first", Name: "First", Input: []int32{1}, ExpectedOutput: []int32{1}},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid hardware rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Hardware)
	}{
		{"bad slug", func(h *Hardware) { h.Slug = "Test Board" }},
		{"empty name", func(h *Hardware) { h.Name = "" }},
		{"no registers", func(h *Hardware) { h.Spec.NumRegisters = 0 }},
		{"too many registers", func(h *Hardware) { h.Spec.NumRegisters = MaxRegisters + 1 }},
		{"too many stacks", func(h *Hardware) { h.Spec.NumStacks = MaxStacks + 1 }},
		{"stack too deep", func(h *Hardware) { h.Spec.MaxStackLength = MaxStackLength + 1 }},
		{"bad program slug", func(h *Hardware) { h.Programs[0].Slug = "First!" }},
		{"duplicate program slug", func(h *Hardware) {
			h.Programs = append(h.Programs, h.Programs[0])
		}},
	}
	for _, tt := range tests {
		hw := valid
		hw.Programs = append([]Program(nil), valid.Programs...)
		tt.mutate(&hw)
		if err := hw.Validate(); err == nil {
			t.Errorf("%s: Validate() accepted invalid hardware", tt.name)
		}
	}
}

func TestBuiltinSourceLookups(t *testing.T) {
	src := NewBuiltinSource()
	ctx := context.Background()

	boards, err := src.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	for i := 1; i < len(boards); i++ {
		if boards[i-1].Slug >= boards[i].Slug {
			t.Fatalf("List() not ordered by slug: %q before %q", boards[i-1].Slug, boards[i].Slug)
		}
	}

	hw, err := src.Hardware(ctx, "scrapyard-one")
	if err != nil {
		t.Fatalf("Hardware() error: %v", err)
	}
	if hw.Spec.NumRegisters != 1 {
		t.Fatalf("scrapyard-one registers = %d, want 1", hw.Spec.NumRegisters)
	}

	if _, err := src.Hardware(ctx, "missing"); !errors.Is(err, ErrHardwareNotFound) {
		t.Fatalf("Hardware(missing) error = %v, want ErrHardwareNotFound", err)
	}
	if _, _, err := FindProgram(ctx, src, "scrapyard-one", "missing"); !errors.Is(err, ErrProgramNotFound) {
		t.Fatalf("FindProgram error = %v, want ErrProgramNotFound", err)
	}
	if _, _, err := FindProgram(ctx, src, "missing", "missing"); !errors.Is(err, ErrHardwareNotFound) {
		t.Fatalf("FindProgram error = %v, want ErrHardwareNotFound", err)
	}
}
