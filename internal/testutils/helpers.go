// Package testutils holds helpers shared by adapter and server tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cogvm/cog/internal/catalog"
	"github.com/cogvm/cog/pkg/lang"
)

// SetupTestRepo creates a temporary directory and initializes a Loam
// repository in it. It returns the absolute path to the temp dir and
// the initialized repository, failing the test immediately on error.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	tmpDir := t.TempDir()

	// Loam sometimes prefers absolute paths, though t.TempDir usually
	// returns one. Ensuring it is absolute is safe.
	absPath, err := filepath.Abs(tmpDir)
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}

// boardFrontmatter is the YAML shape of a puzzle board file's header.
// Notes stay out of it; they are the markdown body.
type boardFrontmatter struct {
	Slug     string            `yaml:"slug"`
	Name     string            `yaml:"name"`
	Spec     lang.HardwareSpec `yaml:"spec"`
	Programs []catalog.Program `yaml:"programs"`
}

// WriteBoard writes a puzzle board file with YAML frontmatter into dir.
// The file name is slug + ".md" and the body becomes the board's notes.
func WriteBoard(t *testing.T, dir string, hw catalog.Hardware) {
	t.Helper()

	data, err := yaml.Marshal(boardFrontmatter{
		Slug:     hw.Slug,
		Name:     hw.Name,
		Spec:     hw.Spec,
		Programs: hw.Programs,
	})
	require.NoError(t, err, "Failed to marshal board frontmatter")

	content := "---\n" + string(data) + "---\n" + hw.Notes + "\n"
	path := filepath.Join(dir, hw.Slug+".md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644), "Failed to write board file")
}
