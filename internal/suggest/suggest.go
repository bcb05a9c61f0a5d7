// Package suggest turns analysis results into follow-up actions: open a
// ticket in the tracker, mail a matched contact, save the selection, search
// the web. Pure rule table, no state.
package suggest

import (
	"fmt"
	"net/url"

	"github.com/hurttlocker/ctxd/internal/analyze"
	"github.com/hurttlocker/ctxd/internal/store"
)

// DefaultJiraBaseURL is where ticket-id actions link when no override is set.
const DefaultJiraBaseURL = "https://jira.company.com/browse/"

// Suggester implements the analyzer's action contract.
type Suggester struct {
	JiraBaseURL string
}

// NewSuggester returns a Suggester with default link targets.
func NewSuggester() *Suggester {
	return &Suggester{JiraBaseURL: DefaultJiraBaseURL}
}

// Suggest builds the action list for one analysis: type-specific actions for
// the primary detected pattern, an email action per matched contact with an
// address, then the universal save/search actions. Deduplicated by label,
// first occurrence kept.
func (s *Suggester) Suggest(text, detectedType string, patterns map[string][]string, matches []analyze.Match) []analyze.Action {
	var actions []analyze.Action

	switch detectedType {
	case "jira_ticket":
		id := firstPattern(patterns, "jira_ticket", text)
		actions = append(actions,
			analyze.Action{Label: "Open in Jira", Type: "url", Value: s.JiraBaseURL + id, Icon: "external-link"},
			analyze.Action{Label: "Copy ticket ID", Type: "copy", Value: id, Icon: "clipboard"},
		)
	case "email":
		email := firstPattern(patterns, "email", text)
		actions = append(actions,
			analyze.Action{Label: "Send email", Type: "url", Value: "mailto:" + email, Icon: "mail"},
			analyze.Action{Label: "Copy email", Type: "copy", Value: email, Icon: "clipboard"},
		)
	case "url":
		u := firstPattern(patterns, "url", text)
		actions = append(actions,
			analyze.Action{Label: "Open URL", Type: "url", Value: u, Icon: "external-link"},
			analyze.Action{Label: "Copy URL", Type: "copy", Value: u, Icon: "clipboard"},
		)
	case "phone":
		phone := firstPattern(patterns, "phone", text)
		actions = append(actions,
			analyze.Action{Label: "Call", Type: "url", Value: "tel:" + phone, Icon: "phone"},
			analyze.Action{Label: "Copy number", Type: "copy", Value: phone, Icon: "clipboard"},
		)
	}

	for _, m := range matches {
		if contact, ok := m.Data.(*store.Contact); ok && contact.Email != "" {
			actions = append(actions, analyze.Action{
				Label: fmt.Sprintf("Email %s", contact.Name),
				Type:  "url",
				Value: "mailto:" + contact.Email,
				Icon:  "mail",
			})
		}
	}

	actions = append(actions,
		analyze.Action{Label: "Save as snippet", Type: "action", Value: "save_snippet", Icon: "save"},
		analyze.Action{Label: "Search Google", Type: "url", Value: "https://www.google.com/search?q=" + url.QueryEscape(text), Icon: "search"},
	)

	seen := make(map[string]bool)
	unique := make([]analyze.Action, 0, len(actions))
	for _, a := range actions {
		if !seen[a.Label] {
			seen[a.Label] = true
			unique = append(unique, a)
		}
	}
	return unique
}

func firstPattern(patterns map[string][]string, name, fallback string) string {
	if hits := patterns[name]; len(hits) > 0 {
		return hits[0]
	}
	return fallback
}
