package loam

import (
	"github.com/cogvm/cog/internal/catalog"
	"github.com/cogvm/cog/pkg/lang"
)

// Metadata is the frontmatter of one board file. It mirrors
// catalog.Hardware so puzzle files read as plain YAML definitions; the
// markdown body becomes the board's notes.
type Metadata struct {
	Slug     string            `json:"slug" mapstructure:"slug"`
	Name     string            `json:"name" mapstructure:"name"`
	Spec     lang.HardwareSpec `json:"spec" mapstructure:"spec"`
	Programs []catalog.Program `json:"programs" mapstructure:"programs"`
}
