package templates

import "embed"

//go:embed packs/*.json
var builtinFS embed.FS

// builtinPackFiles lists the embedded pack files loaded at process start,
// before any project overlay is consulted.
var builtinPackFiles = []string{
	"packs/core.json",
	"packs/release.json",
	"packs/planning.json",
}
