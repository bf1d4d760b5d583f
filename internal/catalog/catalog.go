// Package catalog defines the puzzle model: hardware boards, the
// programs players solve on them, and stored solutions. Definitions
// come from a Source (builtin set or a markdown directory) and
// solutions go through a SolutionStore.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/cogvm/cog/pkg/lang"
)

// ErrHardwareNotFound is returned when a hardware slug is unknown.
var ErrHardwareNotFound = errors.New("hardware not found")

// ErrProgramNotFound is returned when a program slug is unknown on the
// requested hardware.
var ErrProgramNotFound = errors.New("program not found")

// ErrSolutionNotFound is returned when no solution is stored for a
// program.
var ErrSolutionNotFound = errors.New("solution not found")

// Bounds on puzzle definitions. The engine itself accepts any spec;
// these keep catalog-provided hardware within what the editors and the
// wire format are built for.
const (
	MaxRegisters   = 16
	MaxStacks      = 16
	MaxStackLength = 256
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Hardware is one puzzle board: a named hardware spec plus the programs
// that run on it.
type Hardware struct {
	Slug     string            `json:"slug" yaml:"slug" mapstructure:"slug"`
	Name     string            `json:"name" yaml:"name" mapstructure:"name"`
	Spec     lang.HardwareSpec `json:"spec" yaml:"spec" mapstructure:"spec"`
	Programs []Program         `json:"programs" yaml:"programs" mapstructure:"programs"`
	// Notes is long-form commentary for listings, typically the body of
	// a puzzle file.
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty" mapstructure:"notes"`
}

// Program is one puzzle: fixed input and the output a solution must
// produce.
type Program struct {
	Slug           string  `json:"slug" yaml:"slug" mapstructure:"slug"`
	Name           string  `json:"name" yaml:"name" mapstructure:"name"`
	Description    string  `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Input          []int32 `json:"input" yaml:"input" mapstructure:"input"`
	ExpectedOutput []int32 `json:"expectedOutput" yaml:"expectedOutput" mapstructure:"expectedOutput"`
}

// ProgramSpec returns the program's input and expected output as an
// engine spec.
func (p Program) ProgramSpec() lang.ProgramSpec {
	return lang.ProgramSpec{Input: p.Input, ExpectedOutput: p.ExpectedOutput}
}

// Solution is a player's source for one program.
type Solution struct {
	HardwareSlug string    `json:"hardwareSlug"`
	ProgramSlug  string    `json:"programSlug"`
	SourceCode   string    `json:"sourceCode"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SolutionKey identifies a stored solution.
type SolutionKey struct {
	HardwareSlug string `json:"hardwareSlug"`
	ProgramSlug  string `json:"programSlug"`
}

// Validate checks the hardware definition against the catalog bounds.
func (h Hardware) Validate() error {
	if !slugPattern.MatchString(h.Slug) {
		return fmt.Errorf("invalid hardware slug %q", h.Slug)
	}
	if h.Name == "" {
		return fmt.Errorf("hardware %q has no name", h.Slug)
	}
	if err := h.Spec.Validate(); err != nil {
		return fmt.Errorf("hardware %q: %w", h.Slug, err)
	}
	if h.Spec.NumRegisters > MaxRegisters {
		return fmt.Errorf("hardware %q: %d registers exceeds the maximum of %d", h.Slug, h.Spec.NumRegisters, MaxRegisters)
	}
	if h.Spec.NumStacks > MaxStacks {
		return fmt.Errorf("hardware %q: %d stacks exceeds the maximum of %d", h.Slug, h.Spec.NumStacks, MaxStacks)
	}
	if h.Spec.MaxStackLength > MaxStackLength {
		return fmt.Errorf("hardware %q: stack length %d exceeds the maximum of %d", h.Slug, h.Spec.MaxStackLength, MaxStackLength)
	}
	seen := make(map[string]bool, len(h.Programs))
	for _, p := range h.Programs {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("hardware %q: %w", h.Slug, err)
		}
		if seen[p.Slug] {
			return fmt.Errorf("hardware %q: duplicate program slug %q", h.Slug, p.Slug)
		}
		seen[p.Slug] = true
	}
	return nil
}

// Validate checks the program definition.
func (p Program) Validate() error {
	if !slugPattern.MatchString(p.Slug) {
		return fmt.Errorf("invalid program slug %q", p.Slug)
	}
	if p.Name == "" {
		return fmt.Errorf("program %q has no name", p.Slug)
	}
	return nil
}

// Source provides puzzle definitions.
type Source interface {
	// Hardware returns the board with the given slug, or
	// ErrHardwareNotFound.
	Hardware(ctx context.Context, slug string) (Hardware, error)
	// List returns every board, ordered by slug.
	List(ctx context.Context) ([]Hardware, error)
}

// FindProgram resolves one program on one board.
func FindProgram(ctx context.Context, src Source, hardwareSlug, programSlug string) (Hardware, Program, error) {
	hw, err := src.Hardware(ctx, hardwareSlug)
	if err != nil {
		return Hardware{}, Program{}, err
	}
	for _, p := range hw.Programs {
		if p.Slug == programSlug {
			return hw, p, nil
		}
	}
	return Hardware{}, Program{}, fmt.Errorf("program %q on hardware %q: %w", programSlug, hardwareSlug, ErrProgramNotFound)
}

// SolutionStore persists player solutions keyed by hardware and program
// slug.
type SolutionStore interface {
	// Get returns the stored solution, or ErrSolutionNotFound.
	Get(ctx context.Context, hardwareSlug, programSlug string) (Solution, error)
	// Put stores a solution, replacing any previous one.
	Put(ctx context.Context, solution Solution) error
	// List returns the keys of every stored solution.
	List(ctx context.Context) ([]SolutionKey, error)
}
