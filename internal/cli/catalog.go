package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	loamadapter "github.com/cogvm/cog/internal/adapters/loam"
	"github.com/cogvm/cog/internal/catalog"
	"github.com/cogvm/cog/pkg/lang"
)

// OpenSource selects the puzzle catalog: the embedded set by default, a
// Loam-managed board directory when one is given.
func OpenSource(dir string, logger *slog.Logger) (catalog.Source, error) {
	if dir == "" {
		return catalog.NewBuiltinSource(), nil
	}
	src, err := loamadapter.Open(dir, loamadapter.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open board directory %s: %w", dir, err)
	}
	return src, nil
}

// ResolveTarget picks what the solution runs against: a catalog program
// when slugs are given, otherwise ad-hoc hardware assembled from the
// numeric flags. The returned label names the target for reports.
func ResolveTarget(ctx context.Context, opts RunOptions) (lang.HardwareSpec, lang.ProgramSpec, string, error) {
	if opts.HardwareSlug != "" || opts.ProgramSlug != "" {
		if opts.HardwareSlug == "" || opts.ProgramSlug == "" {
			return lang.HardwareSpec{}, lang.ProgramSpec{}, "", fmt.Errorf("a catalog target needs both hardware and program slugs")
		}
		src, err := OpenSource(opts.PuzzlesDir, createLogger(opts.Debug))
		if err != nil {
			return lang.HardwareSpec{}, lang.ProgramSpec{}, "", err
		}
		hw, prog, err := catalog.FindProgram(ctx, src, opts.HardwareSlug, opts.ProgramSlug)
		if err != nil {
			return lang.HardwareSpec{}, lang.ProgramSpec{}, "", err
		}
		return hw.Spec, prog.ProgramSpec(), hw.Slug + "/" + prog.Slug, nil
	}

	hw := lang.HardwareSpec{
		NumRegisters:   opts.Registers,
		NumStacks:      opts.Stacks,
		MaxStackLength: opts.StackSize,
	}
	if err := hw.Validate(); err != nil {
		return lang.HardwareSpec{}, lang.ProgramSpec{}, "", err
	}

	input, err := parseValues(opts.Input)
	if err != nil {
		return lang.HardwareSpec{}, lang.ProgramSpec{}, "", fmt.Errorf("--input: %w", err)
	}
	expected, err := parseValues(opts.Expected)
	if err != nil {
		return lang.HardwareSpec{}, lang.ProgramSpec{}, "", fmt.Errorf("--expected: %w", err)
	}

	spec := lang.ProgramSpec{Input: input, ExpectedOutput: expected}
	return hw, spec, "custom hardware", nil
}

// parseValues parses a comma-separated list of 32-bit integers.
func parseValues(s string) ([]int32, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int32, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		v, err := strconv.ParseInt(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a 32-bit integer", part)
		}
		out = append(out, int32(v))
	}
	return out, nil
}
