// Package ingest loads a data directory into the store. Two layouts are
// supported: flat YAML table files (contacts.yaml, snippets.yaml,
// projects.yaml, abbreviations.yaml) and Obsidian-style Markdown notes with
// front matter under people/, snippets/, projects/, abbreviations/.
//
// Loading is a full reload: the store is emptied first, entities inserted,
// then relationship edges rebuilt from linked metadata and wikilinks.
package ingest

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hurttlocker/ctxd/internal/store"
)

// Counts reports what one load inserted.
type Counts struct {
	Contacts      int
	Snippets      int
	Projects      int
	Abbreviations int
	Relationships int
}

// Load empties the store and reloads it from dir, auto-detecting the layout:
// a people/ subdirectory selects the Markdown loader, otherwise the YAML
// table files are read. Missing files and subdirectories warn and continue.
func Load(ctx context.Context, st store.Store, dir string) (*Counts, error) {
	if info, err := os.Stat(filepath.Join(dir, "people")); err == nil && info.IsDir() {
		return LoadMarkdown(ctx, st, dir)
	}
	return LoadYAML(ctx, st, dir)
}
