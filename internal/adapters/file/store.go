// Package file keeps player solutions as JSON files on disk. It is the
// persistence backend for single-machine deployments that want
// solutions to survive restarts without running Redis.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cogvm/cog/internal/catalog"
)

// Store implements catalog.SolutionStore on the local filesystem. Each
// solution lives at <BasePath>/<hardware>/<program>.json.
type Store struct {
	BasePath string
}

// New creates a store rooted at basePath. If basePath is empty, it
// defaults to ".cog/solutions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".cog", "solutions")
	}
	return &Store{BasePath: basePath}
}

// Slugs become path segments, so anything path-like is rejected before
// it touches the filesystem.
func checkSlug(kind, slug string) error {
	if slug == "" {
		return fmt.Errorf("%s slug cannot be empty", kind)
	}
	if strings.ContainsAny(slug, `/\`) || strings.Contains(slug, "..") {
		return fmt.Errorf("%s slug %q is not a valid path segment", kind, slug)
	}
	return nil
}

func (s *Store) solutionPath(hardwareSlug, programSlug string) string {
	return filepath.Join(s.BasePath, hardwareSlug, programSlug+".json")
}

// Put persists the solution to a JSON file atomically. It writes to a
// temporary file first, syncs via fsync, and then renames it into
// place.
func (s *Store) Put(ctx context.Context, solution catalog.Solution) error {
	if err := checkSlug("hardware", solution.HardwareSlug); err != nil {
		return err
	}
	if err := checkSlug("program", solution.ProgramSlug); err != nil {
		return err
	}

	dir := filepath.Join(s.BasePath, solution.HardwareSlug)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure solution directory: %w", err)
	}

	destPath := s.solutionPath(solution.HardwareSlug, solution.ProgramSlug)

	data, err := json.MarshalIndent(solution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal solution: %w", err)
	}

	// The temp file shares the destination directory so the rename
	// stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-"+solution.ProgramSlug+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // still exists only if the rename never happened
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows os.Rename fails when the destination exists, so clear
	// it first. The delete+rename window is acceptable for CLI usage;
	// what matters is never leaving a partially written file behind.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing solution for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}

// Get retrieves the stored solution, or catalog.ErrSolutionNotFound.
func (s *Store) Get(ctx context.Context, hardwareSlug, programSlug string) (catalog.Solution, error) {
	if err := checkSlug("hardware", hardwareSlug); err != nil {
		return catalog.Solution{}, err
	}
	if err := checkSlug("program", programSlug); err != nil {
		return catalog.Solution{}, err
	}

	data, err := os.ReadFile(s.solutionPath(hardwareSlug, programSlug))
	if err != nil {
		if os.IsNotExist(err) {
			return catalog.Solution{}, catalog.ErrSolutionNotFound
		}
		return catalog.Solution{}, fmt.Errorf("failed to read solution file: %w", err)
	}

	var solution catalog.Solution
	if err := json.Unmarshal(data, &solution); err != nil {
		return catalog.Solution{}, fmt.Errorf("failed to unmarshal solution: %w", err)
	}
	return solution, nil
}

// List returns the keys of every stored solution, ordered by hardware
// then program slug.
func (s *Store) List(ctx context.Context) ([]catalog.SolutionKey, error) {
	boards, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []catalog.SolutionKey{}, nil
		}
		return nil, fmt.Errorf("failed to list solutions: %w", err)
	}

	var keys []catalog.SolutionKey
	for _, board := range boards {
		if !board.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(s.BasePath, board.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to list solutions for %s: %w", board.Name(), err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
				continue
			}
			keys = append(keys, catalog.SolutionKey{
				HardwareSlug: board.Name(),
				ProgramSlug:  strings.TrimSuffix(name, ".json"),
			})
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].HardwareSlug != keys[j].HardwareSlug {
			return keys[i].HardwareSlug < keys[j].HardwareSlug
		}
		return keys[i].ProgramSlug < keys[j].ProgramSlug
	})
	return keys, nil
}
