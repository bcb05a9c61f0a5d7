package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hurttlocker/ctxd/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestLoadYAML(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "contacts.yaml"), `
contacts:
  - name: Sarah Mitchell
    email: sarah@example.com
    role: Engineer
    tags: [platform]
    timezone: CET
  - name: Bob Wilson
`)
	writeFile(t, filepath.Join(dir, "snippets.yaml"), `
snippets:
  - text: Rollout notes for the billing migration
    saved_date: "2026-08-20"
    tags: [ops]
    linked_contacts: [Sarah Mitchell]
    linked_projects: [Atlas]
`)
	writeFile(t, filepath.Join(dir, "projects.yaml"), `
projects:
  - name: Atlas
    status: active
    team_lead: Sarah Mitchell
`)
	writeFile(t, filepath.Join(dir, "abbreviations.yaml"), `
abbreviations:
  - abbr: LLM
    full: Large Language Model
    category: AI
`)

	counts, err := LoadYAML(ctx, st, dir)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if counts.Contacts != 2 || counts.Snippets != 1 || counts.Projects != 1 || counts.Abbreviations != 1 {
		t.Errorf("counts = %+v", counts)
	}
	// mentions + related_to + led_by
	if counts.Relationships != 3 {
		t.Errorf("relationships = %d, want 3", counts.Relationships)
	}

	contacts, err := st.ListContacts(ctx)
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	if contacts[0].Metadata["timezone"] != "CET" {
		t.Errorf("extra front matter not kept as metadata: %+v", contacts[0].Metadata)
	}

	snippets, _ := st.ListSnippets(ctx)
	from, err := st.RelationshipsFrom(ctx, store.EntitySnippet, snippets[0].ID)
	if err != nil {
		t.Fatalf("RelationshipsFrom: %v", err)
	}
	types := map[string]bool{}
	for _, r := range from {
		types[r.Type] = true
	}
	if !types["mentions"] || !types["related_to"] {
		t.Errorf("snippet edges = %+v", from)
	}

	projects, _ := st.ListProjects(ctx)
	lead, err := st.RelationshipsFrom(ctx, store.EntityProject, projects[0].ID)
	if err != nil {
		t.Fatalf("RelationshipsFrom: %v", err)
	}
	if len(lead) != 1 || lead[0].Type != "led_by" {
		t.Errorf("project edges = %+v", lead)
	}
}

func TestLoadYAMLSkipsMissingFiles(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "contacts.yaml"), `
contacts:
  - name: Sarah Mitchell
`)

	counts, err := LoadYAML(ctx, st, dir)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if counts.Contacts != 1 || counts.Snippets != 0 || counts.Projects != 0 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestLoadYAMLUnresolvedLinksSkipped(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "snippets.yaml"), `
snippets:
  - text: orphan note
    linked_contacts: [Nobody Known]
`)

	counts, err := LoadYAML(ctx, st, dir)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if counts.Relationships != 0 {
		t.Errorf("relationships = %d, want 0", counts.Relationships)
	}
}

func TestLoadYAMLReplacesExistingData(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	dir := t.TempDir()

	if _, err := st.AddContact(ctx, &store.Contact{Name: "Stale Contact"}); err != nil {
		t.Fatalf("AddContact: %v", err)
	}

	writeFile(t, filepath.Join(dir, "contacts.yaml"), `
contacts:
  - name: Sarah Mitchell
`)

	if _, err := LoadYAML(ctx, st, dir); err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}

	contacts, err := st.ListContacts(ctx)
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	if len(contacts) != 1 || contacts[0].Name != "Sarah Mitchell" {
		t.Errorf("reload did not replace data: %+v", contacts)
	}
}

func TestLoadAutoDetectsFormat(t *testing.T) {
	ctx := context.Background()

	yamlDir := t.TempDir()
	writeFile(t, filepath.Join(yamlDir, "contacts.yaml"), `
contacts:
  - name: Sarah Mitchell
`)
	st := newTestStore(t)
	counts, err := Load(ctx, st, yamlDir)
	if err != nil {
		t.Fatalf("Load yaml dir: %v", err)
	}
	if counts.Contacts != 1 {
		t.Errorf("yaml counts = %+v", counts)
	}

	mdDir := t.TempDir()
	writeFile(t, filepath.Join(mdDir, "people", "bob-wilson.md"), "Bob's note")
	st2 := newTestStore(t)
	counts, err = Load(ctx, st2, mdDir)
	if err != nil {
		t.Fatalf("Load markdown dir: %v", err)
	}
	if counts.Contacts != 1 {
		t.Errorf("markdown counts = %+v", counts)
	}
	contacts, _ := st2.ListContacts(ctx)
	if len(contacts) != 1 || contacts[0].Name != "Bob Wilson" {
		t.Errorf("contacts = %+v", contacts)
	}
}
