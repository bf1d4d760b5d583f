package cog

import _ "embed"

// Version is the release version of the module, read from version.txt.
// The file carries a trailing newline, so display code trims it.
//
//go:embed version.txt
var Version string
