package analyze

import (
	"fmt"
	"strings"

	"github.com/hurttlocker/ctxd/internal/store"
)

// narrate builds the human-readable context summary. An abbreviation match
// short-circuits everything else; otherwise the narrative grows from the
// detected pattern type, the first contact match, the first project match,
// and up to three related contacts.
func narrate(primaryType string, exact []Match, related []RelatedItem, abbr *store.Abbreviation) string {
	var parts []string

	if abbr != nil {
		parts = append(parts, fmt.Sprintf("'%s' stands for %s.", abbr.Abbr, abbr.Full))
		if abbr.Category != "" {
			parts = append(parts, fmt.Sprintf("Category: %s", abbr.Category))
		}
		return strings.Join(parts, " ")
	}

	if primaryType != "" {
		parts = append(parts, fmt.Sprintf("This looks like a %s.", strings.ReplaceAll(primaryType, "_", " ")))
	}

	if contact := firstContact(exact); contact != nil {
		var details []string
		if contact.Role != "" {
			details = append(details, contact.Role)
		}
		if contact.LastContact != "" {
			details = append(details, fmt.Sprintf("Last contact: %s", contact.LastContact))
		}
		if contact.NextEvent != "" {
			details = append(details, fmt.Sprintf("Upcoming: %s", contact.NextEvent))
		}
		if len(details) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", contact.Name, strings.Join(details, ", ")))
		}
	}

	if project := firstProject(exact); project != nil {
		var details []string
		if project.Status != "" {
			details = append(details, fmt.Sprintf("Status: %s", project.Status))
		}
		if lead, ok := project.Metadata["team_lead"].(string); ok && lead != "" {
			details = append(details, fmt.Sprintf("Lead: %s", lead))
		}
		parts = append(parts, fmt.Sprintf("Project '%s': %s", project.Name, strings.Join(details, ", ")))
	}

	if names := relatedContactNames(related, 3); len(names) > 0 {
		parts = append(parts, fmt.Sprintf("Related to: %s", strings.Join(names, ", ")))
	}

	if len(parts) == 0 {
		return "No additional context found."
	}
	return strings.Join(parts, " ")
}

// insights derives actionable observations from the matches and neighbors.
func insights(exact []Match, related []RelatedItem) []string {
	out := []string{}

	for _, m := range exact {
		if contact, ok := m.Data.(*store.Contact); ok && contact.NextEvent != "" {
			out = append(out, fmt.Sprintf("Upcoming event with %s: %s", contact.Name, contact.NextEvent))
		}
	}

	for _, m := range exact {
		if snippet, ok := m.Data.(*store.Snippet); ok {
			if linked := stringList(snippet.Metadata["linked_projects"]); len(linked) > 0 {
				out = append(out, fmt.Sprintf("This is related to: %s", strings.Join(linked, ", ")))
			}
		}
	}

	if names := relatedContactNames(related, 3); len(names) > 0 {
		if count := relatedContactCount(related); count > 1 {
			out = append(out, fmt.Sprintf("Multiple people involved: %s", strings.Join(names, ", ")))
		}
	}

	return out
}

func firstContact(matches []Match) *store.Contact {
	for _, m := range matches {
		if c, ok := m.Data.(*store.Contact); ok {
			return c
		}
	}
	return nil
}

func firstProject(matches []Match) *store.Project {
	for _, m := range matches {
		if p, ok := m.Data.(*store.Project); ok {
			return p
		}
	}
	return nil
}

func relatedContactNames(related []RelatedItem, limit int) []string {
	var names []string
	for _, r := range related {
		if c, ok := r.Data.(*store.Contact); ok {
			names = append(names, c.Name)
			if len(names) == limit {
				break
			}
		}
	}
	return names
}

func relatedContactCount(related []RelatedItem) int {
	count := 0
	for _, r := range related {
		if _, ok := r.Data.(*store.Contact); ok {
			count++
		}
	}
	return count
}

// stringList coerces a metadata value (JSON array decoded as []any, or a
// plain []string) into a string slice. Anything else yields nil.
func stringList(v any) []string {
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
