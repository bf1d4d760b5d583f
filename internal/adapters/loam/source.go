// Package loam serves puzzle boards from a directory of markdown files
// managed by Loam. Each file holds one board: the hardware and program
// definitions live in the YAML frontmatter, the body is free-form notes
// shown alongside the puzzle.
package loam

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"

	"github.com/cogvm/cog/internal/catalog"
	"github.com/cogvm/cog/internal/logging"
)

// Source reads catalog.Hardware definitions out of a loam repository.
// It implements catalog.Source.
type Source struct {
	repo *loam.TypedRepository[Metadata]
	log  *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger used to report skipped board files.
func WithLogger(log *slog.Logger) Option {
	return func(s *Source) {
		s.log = log
	}
}

// New wraps an already-initialized typed repository.
func New(repo *loam.TypedRepository[Metadata], opts ...Option) *Source {
	s := &Source{
		repo: repo,
		log:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open initializes a read-only repository over dir and returns a Source
// backed by it. The directory is never written to or versioned.
func Open(dir string, opts ...Option) (*Source, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid puzzle directory %q: %w", dir, err)
	}

	repo, err := loam.Init(absPath, loam.WithReadOnly(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open puzzle directory %q: %w", dir, err)
	}

	return New(loam.NewTypedRepository[Metadata](repo), opts...), nil
}

// Hardware looks up a single board by slug. Loam resolves the slug to
// its backing file, so "scrapyard-one" finds scrapyard-one.md.
func (s *Source) Hardware(ctx context.Context, slug string) (catalog.Hardware, error) {
	doc, err := s.repo.Get(ctx, slug)
	if err != nil {
		s.log.Debug("board lookup failed", "slug", slug, "error", err)
		return catalog.Hardware{}, fmt.Errorf("hardware %q: %w", slug, catalog.ErrHardwareNotFound)
	}
	return toHardware(doc.ID, doc.Data, doc.Content)
}

// List returns every valid board in the repository, sorted by slug.
// A malformed file is skipped with a warning so one bad board cannot
// take down the whole catalog, but two files claiming the same slug
// fail the listing outright.
func (s *Source) List(ctx context.Context) ([]catalog.Hardware, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}

	seen := make(map[string]string, len(docs))
	boards := make([]catalog.Hardware, 0, len(docs))
	for _, doc := range docs {
		hw, err := toHardware(doc.ID, doc.Data, doc.Content)
		if err != nil {
			s.log.Warn("skipping invalid board file", "id", doc.ID, "error", err)
			continue
		}
		if prev, ok := seen[hw.Slug]; ok {
			return nil, fmt.Errorf("board slug collision: %q is defined by both %q and %q", hw.Slug, prev, doc.ID)
		}
		seen[hw.Slug] = doc.ID
		boards = append(boards, hw)
	}

	sort.Slice(boards, func(i, j int) bool { return boards[i].Slug < boards[j].Slug })
	return boards, nil
}

func toHardware(docID string, meta Metadata, content string) (catalog.Hardware, error) {
	slug := meta.Slug
	if slug == "" {
		slug = trimExtension(docID)
	}

	hw := catalog.Hardware{
		Slug:     slug,
		Name:     meta.Name,
		Spec:     meta.Spec,
		Programs: meta.Programs,
		Notes:    strings.TrimSpace(content),
	}
	if err := hw.Validate(); err != nil {
		return catalog.Hardware{}, fmt.Errorf("board file %s: %w", docID, err)
	}
	return hw, nil
}

// trimExtension converts a document ID like "boards/alpha.md" into the
// slug "boards/alpha".
func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
