package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hurttlocker/ctxd/internal/store"
)

// wikilinkRe matches [[Target]] and [[Target|Display Text]].
var wikilinkRe = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`)

// headerRe matches the first markdown header line.
var headerRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// abbrHeaderRe matches an "# ABBR - Full Form" header.
var abbrHeaderRe = regexp.MustCompile(`(?m)^#\s+\w+\s*-\s*(.+)$`)

// pendingLink records a wikilink seen while loading, resolved after all
// entities exist.
type pendingLink struct {
	fromType store.EntityType
	fromID   int64
	target   string
}

// LoadMarkdown empties the store and reloads it from Obsidian-style notes in
// the people/, snippets/, projects/, and abbreviations/ subdirectories of
// dir. Wikilinks become relationship edges after all entities are inserted.
func LoadMarkdown(ctx context.Context, st store.Store, dir string) (*Counts, error) {
	if err := st.Reset(ctx); err != nil {
		return nil, fmt.Errorf("resetting store: %w", err)
	}

	counts := &Counts{}
	var links []pendingLink

	if err := loadPeople(ctx, st, filepath.Join(dir, "people"), counts, &links); err != nil {
		return nil, err
	}
	if err := loadSnippetNotes(ctx, st, filepath.Join(dir, "snippets"), counts, &links); err != nil {
		return nil, err
	}
	if err := loadProjectNotes(ctx, st, filepath.Join(dir, "projects"), counts, &links); err != nil {
		return nil, err
	}
	if err := loadAbbreviationNotes(ctx, st, filepath.Join(dir, "abbreviations"), counts, &links); err != nil {
		return nil, err
	}

	rels, err := resolveWikilinks(ctx, st, links)
	if err != nil {
		return nil, fmt.Errorf("resolving wikilinks: %w", err)
	}
	counts.Relationships = rels

	return counts, nil
}

// parseNote splits a note into front matter and body. Files without a
// leading --- block, or with unparseable front matter, keep their full
// content as body and an empty front matter map.
func parseNote(content string) (map[string]any, string) {
	if !strings.HasPrefix(content, "---") {
		return map[string]any{}, content
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return map[string]any{}, content
	}

	fm := map[string]any{}
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		fmt.Printf("Warning: could not parse front matter: %v\n", err)
		fm = map[string]any{}
	}
	return fm, strings.TrimSpace(parts[2])
}

// extractWikilinks returns the trimmed targets of every wikilink in text.
func extractWikilinks(text string) []string {
	var targets []string
	for _, m := range wikilinkRe.FindAllStringSubmatch(text, -1) {
		targets = append(targets, strings.TrimSpace(m[1]))
	}
	return targets
}

// noteFiles lists the .md files under dir (recursively when recurse is set).
// A missing directory warns and returns nothing.
func noteFiles(dir string, recurse bool) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Printf("Warning: %s not found, skipping\n", dir)
		return nil, nil
	}

	var files []string
	if recurse {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".md") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", dir, err)
		}
		return files, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func loadPeople(ctx context.Context, st store.Store, dir string, counts *Counts, links *[]pendingLink) error {
	files, err := noteFiles(dir, false)
	if err != nil {
		return err
	}

	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		fm, body := parseNote(string(raw))

		// Name priority: front matter, first header, then filename.
		name := fmString(fm, "name")
		if name == "" {
			if m := headerRe.FindStringSubmatch(body); m != nil {
				name = strings.TrimSpace(m[1])
			} else {
				name = titleFromFilename(path)
			}
		}

		metadata := fmRest(fm, "type", "name", "email", "role", "last_contact", "next_event", "tags")
		metadata["body"] = body

		contact := &store.Contact{
			Name:        name,
			Email:       fmString(fm, "email"),
			Role:        fmString(fm, "role"),
			Context:     firstN(body, 200),
			LastContact: fmString(fm, "last_contact"),
			NextEvent:   fmString(fm, "next_event"),
			Tags:        fmStrings(fm, "tags"),
			Metadata:    metadata,
		}
		id, err := st.AddContact(ctx, contact)
		if err != nil {
			return fmt.Errorf("loading person %q: %w", name, err)
		}
		counts.Contacts++
		collectLinks(links, store.EntityContact, id, body, fm)
	}
	return nil
}

func loadSnippetNotes(ctx context.Context, st store.Store, dir string, counts *Counts, links *[]pendingLink) error {
	files, err := noteFiles(dir, false)
	if err != nil {
		return err
	}

	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		fm, body := parseNote(string(raw))

		savedDate := fmString(fm, "date")
		if savedDate == "" {
			savedDate = fmString(fm, "created")
		}

		title := titleFromFilename(path)
		if m := headerRe.FindStringSubmatch(body); m != nil {
			title = strings.TrimSpace(m[1])
		}

		metadata := fmRest(fm, "type", "date", "created", "source", "tags", "text")
		metadata["body"] = body
		metadata["title"] = title

		snippet := &store.Snippet{
			Text:      body,
			SavedDate: savedDate,
			Tags:      fmStrings(fm, "tags"),
			Source:    fmString(fm, "source"),
			Metadata:  metadata,
		}
		id, err := st.AddSnippet(ctx, snippet)
		if err != nil {
			return fmt.Errorf("loading snippet %s: %w", path, err)
		}
		counts.Snippets++
		collectLinks(links, store.EntitySnippet, id, body, fm)
	}
	return nil
}

func loadProjectNotes(ctx context.Context, st store.Store, dir string, counts *Counts, links *[]pendingLink) error {
	files, err := noteFiles(dir, false)
	if err != nil {
		return err
	}

	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		fm, body := parseNote(string(raw))

		name := fmString(fm, "name")
		if name == "" {
			name = titleFromFilename(path)
		}

		description := body
		if len(description) > 200 {
			description = description[:197] + "..."
		}

		metadata := fmRest(fm, "type", "name", "status", "description", "tags")
		metadata["body"] = body

		project := &store.Project{
			Name:        name,
			Status:      fmString(fm, "status"),
			Description: description,
			Tags:        fmStrings(fm, "tags"),
			Metadata:    metadata,
		}
		id, err := st.AddProject(ctx, project)
		if err != nil {
			return fmt.Errorf("loading project %q: %w", name, err)
		}
		counts.Projects++
		collectLinks(links, store.EntityProject, id, body, fm)
	}
	return nil
}

func loadAbbreviationNotes(ctx context.Context, st store.Store, dir string, counts *Counts, links *[]pendingLink) error {
	files, err := noteFiles(dir, true)
	if err != nil {
		return err
	}

	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		fm, body := parseNote(string(raw))

		abbr := fmString(fm, "abbr")
		if abbr == "" {
			abbr = strings.ToUpper(strings.TrimSuffix(filepath.Base(path), ".md"))
		}

		full := fmString(fm, "full")
		if full == "" {
			if m := abbrHeaderRe.FindStringSubmatch(body); m != nil {
				full = strings.TrimSpace(m[1])
			}
		}

		category := fmString(fm, "category")
		if category == "" {
			category = "General"
		}

		metadata := fmRest(fm, "type", "abbr", "full", "category", "examples", "related", "links", "definition")
		metadata["body"] = body

		entry := &store.Abbreviation{
			Abbr:       abbr,
			Full:       full,
			Definition: body,
			Category:   category,
			Examples:   fmStrings(fm, "examples"),
			Related:    fmStrings(fm, "related"),
			Links:      fmStrings(fm, "links"),
			Metadata:   metadata,
		}
		id, err := st.AddAbbreviation(ctx, entry)
		if err != nil {
			return fmt.Errorf("loading abbreviation %q: %w", abbr, err)
		}
		counts.Abbreviations++
		collectLinks(links, store.EntityAbbreviation, id, body, fm)
	}
	return nil
}

// collectLinks gathers wikilinks from the note body and from front-matter
// string values.
func collectLinks(links *[]pendingLink, fromType store.EntityType, fromID int64, body string, fm map[string]any) {
	targets := extractWikilinks(body)
	for _, v := range fm {
		if s, ok := v.(string); ok {
			targets = append(targets, extractWikilinks(s)...)
		}
		for _, s := range metadataStrings(v) {
			targets = append(targets, extractWikilinks(s)...)
		}
	}
	for _, t := range targets {
		*links = append(*links, pendingLink{fromType, fromID, t})
	}
}

// resolveWikilinks turns pending links into relationship edges. Targets are
// matched by whitespace-stripped, case-folded name across contacts, then
// projects, then abbreviations (by short form or expansion); unresolvable
// targets are skipped.
func resolveWikilinks(ctx context.Context, st store.Store, links []pendingLink) (int, error) {
	contacts, err := st.ListContacts(ctx)
	if err != nil {
		return 0, err
	}
	projects, err := st.ListProjects(ctx)
	if err != nil {
		return 0, err
	}
	abbrs, err := st.ListAbbreviations(ctx)
	if err != nil {
		return 0, err
	}

	type target struct {
		entityType store.EntityType
		id         int64
	}
	index := make(map[string]target)
	// First registration wins, so lookup priority follows registration
	// order: contacts beat projects beat abbreviations.
	register := func(key string, t store.EntityType, id int64) {
		if key == "" {
			return
		}
		if _, ok := index[key]; !ok {
			index[key] = target{t, id}
		}
	}
	for _, c := range contacts {
		register(normalizeName(c.Name), store.EntityContact, c.ID)
	}
	for _, p := range projects {
		register(normalizeName(p.Name), store.EntityProject, p.ID)
	}
	for _, a := range abbrs {
		register(normalizeName(a.Full), store.EntityAbbreviation, a.ID)
		register(strings.ToUpper(a.Abbr), store.EntityAbbreviation, a.ID)
	}

	count := 0
	for _, link := range links {
		t, ok := index[normalizeName(link.target)]
		if !ok {
			t, ok = index[strings.ToUpper(link.target)]
		}
		if !ok {
			continue
		}
		_, err := st.AddRelationship(ctx, &store.Relationship{
			FromType: link.fromType, FromID: link.fromID,
			ToType: t.entityType, ToID: t.id,
			Type: "wikilink", Strength: 1.0,
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// normalizeName lowercases and strips all whitespace for link matching.
func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

// titleFromFilename turns "sarah-mitchell.md" into "Sarah Mitchell".
func titleFromFilename(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), ".md")
	words := strings.Split(strings.ReplaceAll(stem, "-", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// fmString reads a front-matter value as a string, stringifying scalars.
func fmString(fm map[string]any, key string) string {
	v, ok := fm[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// fmStrings reads a front-matter value as a string list.
func fmStrings(fm map[string]any, key string) []string {
	return metadataStrings(fm[key])
}

// fmRest copies every front-matter key not in the known set.
func fmRest(fm map[string]any, known ...string) map[string]any {
	skip := make(map[string]bool, len(known))
	for _, k := range known {
		skip[k] = true
	}
	rest := map[string]any{}
	for k, v := range fm {
		if !skip[k] {
			rest[k] = v
		}
	}
	return rest
}
