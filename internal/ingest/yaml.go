package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hurttlocker/ctxd/internal/store"
)

type yamlContact struct {
	Name        string         `yaml:"name"`
	Email       string         `yaml:"email"`
	Role        string         `yaml:"role"`
	Context     string         `yaml:"context"`
	LastContact string         `yaml:"last_contact"`
	NextEvent   string         `yaml:"next_event"`
	Tags        []string       `yaml:"tags"`
	Extra       map[string]any `yaml:",inline"`
}

type yamlSnippet struct {
	Text      string         `yaml:"text"`
	SavedDate string         `yaml:"saved_date"`
	Tags      []string       `yaml:"tags"`
	Source    string         `yaml:"source"`
	Extra     map[string]any `yaml:",inline"`
}

type yamlProject struct {
	Name        string         `yaml:"name"`
	Status      string         `yaml:"status"`
	Description string         `yaml:"description"`
	Tags        []string       `yaml:"tags"`
	Extra       map[string]any `yaml:",inline"`
}

type yamlAbbreviation struct {
	Abbr       string         `yaml:"abbr"`
	Full       string         `yaml:"full"`
	Definition string         `yaml:"definition"`
	Category   string         `yaml:"category"`
	Examples   []string       `yaml:"examples"`
	Related    []string       `yaml:"related"`
	Links      []string       `yaml:"links"`
	Extra      map[string]any `yaml:",inline"`
}

// LoadYAML empties the store and reloads it from the four YAML table files
// in dir, then rebuilds relationship edges from linked metadata.
func LoadYAML(ctx context.Context, st store.Store, dir string) (*Counts, error) {
	if err := st.Reset(ctx); err != nil {
		return nil, fmt.Errorf("resetting store: %w", err)
	}

	counts := &Counts{}

	var contactDoc struct {
		Contacts []yamlContact `yaml:"contacts"`
	}
	if ok, err := readYAML(filepath.Join(dir, "contacts.yaml"), &contactDoc); err != nil {
		return nil, err
	} else if ok {
		for _, c := range contactDoc.Contacts {
			_, err := st.AddContact(ctx, &store.Contact{
				Name:        c.Name,
				Email:       c.Email,
				Role:        c.Role,
				Context:     c.Context,
				LastContact: c.LastContact,
				NextEvent:   c.NextEvent,
				Tags:        c.Tags,
				Metadata:    c.Extra,
			})
			if err != nil {
				return nil, fmt.Errorf("loading contact %q: %w", c.Name, err)
			}
			counts.Contacts++
		}
	}

	var snippetDoc struct {
		Snippets []yamlSnippet `yaml:"snippets"`
	}
	if ok, err := readYAML(filepath.Join(dir, "snippets.yaml"), &snippetDoc); err != nil {
		return nil, err
	} else if ok {
		for _, s := range snippetDoc.Snippets {
			_, err := st.AddSnippet(ctx, &store.Snippet{
				Text:      s.Text,
				SavedDate: s.SavedDate,
				Tags:      s.Tags,
				Source:    s.Source,
				Metadata:  s.Extra,
			})
			if err != nil {
				return nil, fmt.Errorf("loading snippet: %w", err)
			}
			counts.Snippets++
		}
	}

	var projectDoc struct {
		Projects []yamlProject `yaml:"projects"`
	}
	if ok, err := readYAML(filepath.Join(dir, "projects.yaml"), &projectDoc); err != nil {
		return nil, err
	} else if ok {
		for _, p := range projectDoc.Projects {
			_, err := st.AddProject(ctx, &store.Project{
				Name:        p.Name,
				Status:      p.Status,
				Description: p.Description,
				Tags:        p.Tags,
				Metadata:    p.Extra,
			})
			if err != nil {
				return nil, fmt.Errorf("loading project %q: %w", p.Name, err)
			}
			counts.Projects++
		}
	}

	var abbrDoc struct {
		Abbreviations []yamlAbbreviation `yaml:"abbreviations"`
	}
	if ok, err := readYAML(filepath.Join(dir, "abbreviations.yaml"), &abbrDoc); err != nil {
		return nil, err
	} else if ok {
		for _, a := range abbrDoc.Abbreviations {
			_, err := st.AddAbbreviation(ctx, &store.Abbreviation{
				Abbr:       a.Abbr,
				Full:       a.Full,
				Definition: a.Definition,
				Category:   a.Category,
				Examples:   a.Examples,
				Related:    a.Related,
				Links:      a.Links,
				Metadata:   a.Extra,
			})
			if err != nil {
				return nil, fmt.Errorf("loading abbreviation %q: %w", a.Abbr, err)
			}
			counts.Abbreviations++
		}
	}

	rels, err := buildMetadataRelationships(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("building relationships: %w", err)
	}
	counts.Relationships = rels

	return counts, nil
}

// readYAML decodes path into out. A missing file warns and reports ok=false
// so the caller can continue with the remaining tables.
func readYAML(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("Warning: %s not found, skipping\n", path)
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("parsing %s: %w", path, err)
	}
	return true, nil
}

// buildMetadataRelationships creates graph edges from linked metadata:
// snippet linked_contacts ("mentions"), snippet linked_projects
// ("related_to"), and project team_lead ("led_by"). Link targets that don't
// resolve by exact name are skipped.
func buildMetadataRelationships(ctx context.Context, st store.Store) (int, error) {
	contacts, err := st.ListContacts(ctx)
	if err != nil {
		return 0, err
	}
	contactByName := make(map[string]int64, len(contacts))
	for _, c := range contacts {
		contactByName[c.Name] = c.ID
	}

	projects, err := st.ListProjects(ctx)
	if err != nil {
		return 0, err
	}
	projectByName := make(map[string]int64, len(projects))
	for _, p := range projects {
		projectByName[p.Name] = p.ID
	}

	count := 0
	addEdge := func(fromType store.EntityType, fromID int64, toType store.EntityType, toID int64, relType string) error {
		_, err := st.AddRelationship(ctx, &store.Relationship{
			FromType: fromType, FromID: fromID,
			ToType: toType, ToID: toID,
			Type: relType, Strength: 1.0,
		})
		if err == nil {
			count++
		}
		return err
	}

	snippets, err := st.ListSnippets(ctx)
	if err != nil {
		return 0, err
	}
	for _, sn := range snippets {
		for _, name := range metadataStrings(sn.Metadata["linked_contacts"]) {
			if id, ok := contactByName[name]; ok {
				if err := addEdge(store.EntitySnippet, sn.ID, store.EntityContact, id, "mentions"); err != nil {
					return count, err
				}
			}
		}
		for _, name := range metadataStrings(sn.Metadata["linked_projects"]) {
			if id, ok := projectByName[name]; ok {
				if err := addEdge(store.EntitySnippet, sn.ID, store.EntityProject, id, "related_to"); err != nil {
					return count, err
				}
			}
		}
	}

	for _, p := range projects {
		if lead, ok := p.Metadata["team_lead"].(string); ok && lead != "" {
			if id, ok := contactByName[lead]; ok {
				if err := addEdge(store.EntityProject, p.ID, store.EntityContact, id, "led_by"); err != nil {
					return count, err
				}
			}
		}
	}

	return count, nil
}

// metadataStrings coerces a metadata value into a string slice, tolerating
// both []string and the []any shape that JSON round-trips produce.
func metadataStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		var out []string
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
