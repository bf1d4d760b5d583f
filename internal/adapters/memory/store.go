// Package memory keeps player solutions in process memory. It backs
// tests and single-process deployments that run without Redis.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cogvm/cog/internal/catalog"
)

// Store implements catalog.SolutionStore with a map.
type Store struct {
	mu        sync.RWMutex
	solutions map[catalog.SolutionKey]catalog.Solution
}

// New creates an empty store.
func New() *Store {
	return &Store{solutions: make(map[catalog.SolutionKey]catalog.Solution)}
}

// Put stores a solution, replacing any previous one.
func (s *Store) Put(_ context.Context, solution catalog.Solution) error {
	key := catalog.SolutionKey{
		HardwareSlug: solution.HardwareSlug,
		ProgramSlug:  solution.ProgramSlug,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solutions[key] = solution
	return nil
}

// Get retrieves a solution.
func (s *Store) Get(_ context.Context, hardwareSlug, programSlug string) (catalog.Solution, error) {
	key := catalog.SolutionKey{HardwareSlug: hardwareSlug, ProgramSlug: programSlug}
	s.mu.RLock()
	defer s.mu.RUnlock()
	solution, ok := s.solutions[key]
	if !ok {
		return catalog.Solution{}, catalog.ErrSolutionNotFound
	}
	return solution, nil
}

// List returns the keys of every stored solution, ordered by hardware
// then program slug.
func (s *Store) List(_ context.Context) ([]catalog.SolutionKey, error) {
	s.mu.RLock()
	keys := make([]catalog.SolutionKey, 0, len(s.solutions))
	for key := range s.solutions {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].HardwareSlug != keys[j].HardwareSlug {
			return keys[i].HardwareSlug < keys[j].HardwareSlug
		}
		return keys[i].ProgramSlug < keys[j].ProgramSlug
	})
	return keys, nil
}
