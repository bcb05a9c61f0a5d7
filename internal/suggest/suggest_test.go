package suggest

import (
	"testing"

	"github.com/hurttlocker/ctxd/internal/analyze"
	"github.com/hurttlocker/ctxd/internal/store"
)

func labels(actions []analyze.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Label
	}
	return out
}

func findAction(t *testing.T, actions []analyze.Action, label string) analyze.Action {
	t.Helper()
	for _, a := range actions {
		if a.Label == label {
			return a
		}
	}
	t.Fatalf("action %q not found in %v", label, labels(actions))
	return analyze.Action{}
}

func TestSuggestJiraTicket(t *testing.T) {
	s := NewSuggester()

	actions := s.Suggest("JT-123", "jira_ticket",
		map[string][]string{"jira_ticket": {"JT-123"}}, nil)

	open := findAction(t, actions, "Open in Jira")
	if open.Value != "https://jira.company.com/browse/JT-123" || open.Type != "url" {
		t.Errorf("open action = %+v", open)
	}
	cp := findAction(t, actions, "Copy ticket ID")
	if cp.Value != "JT-123" || cp.Type != "copy" {
		t.Errorf("copy action = %+v", cp)
	}
}

func TestSuggestJiraBaseOverride(t *testing.T) {
	s := &Suggester{JiraBaseURL: "https://tickets.internal/"}

	actions := s.Suggest("JT-9", "jira_ticket",
		map[string][]string{"jira_ticket": {"JT-9"}}, nil)

	open := findAction(t, actions, "Open in Jira")
	if open.Value != "https://tickets.internal/JT-9" {
		t.Errorf("open action = %+v", open)
	}
}

func TestSuggestEmailType(t *testing.T) {
	s := NewSuggester()

	actions := s.Suggest("test@example.com", "email",
		map[string][]string{"email": {"test@example.com"}}, nil)

	send := findAction(t, actions, "Send email")
	if send.Value != "mailto:test@example.com" {
		t.Errorf("send action = %+v", send)
	}
}

func TestSuggestContactEmails(t *testing.T) {
	s := NewSuggester()

	matches := []analyze.Match{
		{Type: store.EntityContact, Data: &store.Contact{ID: 1, Name: "Sarah Mitchell", Email: "sarah@example.com"}},
		{Type: store.EntityContact, Data: &store.Contact{ID: 2, Name: "Bob Wilson"}},
		{Type: store.EntityProject, Data: &store.Project{ID: 3, Name: "Atlas"}},
	}

	actions := s.Suggest("Sarah Mitchell", "", nil, matches)

	mail := findAction(t, actions, "Email Sarah Mitchell")
	if mail.Value != "mailto:sarah@example.com" {
		t.Errorf("mail action = %+v", mail)
	}
	for _, a := range actions {
		if a.Label == "Email Bob Wilson" {
			t.Errorf("contact without address produced action: %+v", a)
		}
	}
}

func TestSuggestUniversalActions(t *testing.T) {
	s := NewSuggester()

	actions := s.Suggest("some note & stuff", "", nil, nil)
	if len(actions) != 2 {
		t.Fatalf("actions = %v", labels(actions))
	}

	save := findAction(t, actions, "Save as snippet")
	if save.Type != "action" || save.Value != "save_snippet" {
		t.Errorf("save action = %+v", save)
	}
	search := findAction(t, actions, "Search Google")
	if search.Value != "https://www.google.com/search?q=some+note+%26+stuff" {
		t.Errorf("search action = %+v", search)
	}
}

func TestSuggestDedupesByLabel(t *testing.T) {
	s := NewSuggester()

	matches := []analyze.Match{
		{Type: store.EntityContact, Data: &store.Contact{ID: 1, Name: "Sarah Mitchell", Email: "sarah@example.com"}},
		{Type: store.EntityContact, Data: &store.Contact{ID: 1, Name: "Sarah Mitchell", Email: "sarah@example.com"}},
	}

	actions := s.Suggest("Sarah Mitchell", "", nil, matches)

	count := 0
	for _, a := range actions {
		if a.Label == "Email Sarah Mitchell" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate labels survived: %v", labels(actions))
	}
}

func TestSuggestFallsBackToText(t *testing.T) {
	// Classifier said jira_ticket but the pattern map is empty; the raw
	// selection is used instead.
	s := NewSuggester()

	actions := s.Suggest("JT-77", "jira_ticket", map[string][]string{}, nil)
	cp := findAction(t, actions, "Copy ticket ID")
	if cp.Value != "JT-77" {
		t.Errorf("copy action = %+v", cp)
	}
}
