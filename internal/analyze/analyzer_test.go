package analyze

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
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

func TestAnalyzeAbbreviationShortCircuit(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	if _, err := st.AddAbbreviation(ctx, &store.Abbreviation{
		Abbr: "LLM", Full: "Large Language Model", Category: "AI",
	}); err != nil {
		t.Fatalf("adding abbreviation: %v", err)
	}

	a := New(Config{Store: st})

	for _, text := range []string{"LLM", "llm", "  Llm  "} {
		res, err := a.Analyze(ctx, text)
		if err != nil {
			t.Fatalf("Analyze(%q): %v", text, err)
		}
		if res.Abbreviation == nil {
			t.Fatalf("Analyze(%q): abbreviation not resolved", text)
		}
		want := "'LLM' stands for Large Language Model. Category: AI"
		if res.SmartContext != want {
			t.Errorf("Analyze(%q) smart_context = %q, want %q", text, res.SmartContext, want)
		}
	}
}

func TestAnalyzeKnownPerson(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	if _, err := st.AddContact(ctx, &store.Contact{
		Name:      "Stefan Karlsson",
		Email:     "stefan@example.com",
		Role:      "Engineering Manager",
		NextEvent: "2026-09-02 platform sync",
	}); err != nil {
		t.Fatalf("adding contact: %v", err)
	}

	a := New(Config{Store: st})

	res, err := a.Analyze(ctx, "Meeting with Stefan Karlsson tomorrow")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(res.DetectedPeople) != 1 {
		t.Fatalf("detected_people = %+v, want 1 entry", res.DetectedPeople)
	}
	p := res.DetectedPeople[0]
	if !p.Exists || p.ContactID == nil || p.ContactName != "Stefan Karlsson" || p.Score != 10 {
		t.Errorf("detected person = %+v", p)
	}

	if len(res.ExactMatches) != 1 {
		t.Fatalf("exact_matches = %+v, want 1 entry", res.ExactMatches)
	}
	m := res.ExactMatches[0]
	if m.Type != store.EntityContact || m.MatchScore != 10 {
		t.Errorf("match = %+v", m)
	}
	if m.MatchReason != "fuzzy name match on 'Stefan Karlsson'" {
		t.Errorf("match_reason = %q", m.MatchReason)
	}

	if !strings.Contains(res.SmartContext, "Stefan Karlsson: Engineering Manager") {
		t.Errorf("smart_context = %q", res.SmartContext)
	}

	wantInsight := "Upcoming event with Stefan Karlsson: 2026-09-02 platform sync"
	found := false
	for _, ins := range res.Insights {
		if ins == wantInsight {
			found = true
		}
	}
	if !found {
		t.Errorf("insights = %v, missing %q", res.Insights, wantInsight)
	}
}

func TestAnalyzeRawTextFuzzyMatch(t *testing.T) {
	// A bare first name is never an extracted name, but the selection itself
	// is still fuzzy-scored against contacts.
	ctx := context.Background()
	st := newTestStore(t)

	if _, err := st.AddContact(ctx, &store.Contact{Name: "Stefan Krona"}); err != nil {
		t.Fatalf("adding contact: %v", err)
	}

	a := New(Config{Store: st})

	res, err := a.Analyze(ctx, "Stefan")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.ExactMatches) != 1 {
		t.Fatalf("exact_matches = %+v, want the contact", res.ExactMatches)
	}
	if len(res.DetectedPeople) != 0 {
		t.Errorf("single word reported as detected person: %+v", res.DetectedPeople)
	}

	// Token order scrambled: no substring hit, only the fuzzy path.
	res, err = a.Analyze(ctx, "Krona Stefan")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.ExactMatches) != 1 || res.ExactMatches[0].MatchScore != 2 {
		t.Errorf("scrambled-name matches = %+v", res.ExactMatches)
	}

	res, err = a.Analyze(ctx, "Magnus")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.ExactMatches) != 0 {
		t.Errorf("unrelated name matched: %+v", res.ExactMatches)
	}
}

func TestAnalyzeUnknownPerson(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	a := New(Config{Store: st})

	res, err := a.Analyze(ctx, "Lunch with Magnus Nilsson next week")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(res.DetectedPeople) != 1 {
		t.Fatalf("detected_people = %+v", res.DetectedPeople)
	}
	p := res.DetectedPeople[0]
	if p.Name != "Magnus Nilsson" || p.Exists || p.ContactID != nil {
		t.Errorf("detected person = %+v", p)
	}
	if len(res.ExactMatches) != 0 {
		t.Errorf("exact_matches = %+v, want none", res.ExactMatches)
	}
	if res.SmartContext != "No additional context found." {
		t.Errorf("smart_context = %q", res.SmartContext)
	}
}

func TestAnalyzeMixedKnownAndUnknownPeople(t *testing.T) {
	// One selection naming a known and an unknown person reports both.
	ctx := context.Background()
	st := newTestStore(t)

	if _, err := st.AddContact(ctx, &store.Contact{Name: "Sarah Mitchell"}); err != nil {
		t.Fatalf("adding contact: %v", err)
	}

	a := New(Config{Store: st})

	res, err := a.Analyze(ctx, "Met Sarah Mitchell and John Davis today")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(res.DetectedPeople) != 2 {
		t.Fatalf("detected_people = %+v, want 2 entries", res.DetectedPeople)
	}
	// Extracted names are sorted, so John Davis reports first.
	unknown, known := res.DetectedPeople[0], res.DetectedPeople[1]
	if unknown.Name != "John Davis" || unknown.Exists || unknown.ContactID != nil {
		t.Errorf("unknown person = %+v", unknown)
	}
	if known.Name != "Sarah Mitchell" || !known.Exists || known.Score != 10 {
		t.Errorf("known person = %+v", known)
	}

	if len(res.ExactMatches) != 1 || res.ExactMatches[0].MatchScore != 10 {
		t.Errorf("exact_matches = %+v, want the one contact at score 10", res.ExactMatches)
	}
}

func TestAnalyzeDetectedPeopleDedupedByContact(t *testing.T) {
	// Two name variants resolving to the same contact report it once; the
	// first variant wins, later ones only feed the scored matches.
	ctx := context.Background()
	st := newTestStore(t)

	if _, err := st.AddContact(ctx, &store.Contact{Name: "Sarah Mitchell"}); err != nil {
		t.Fatalf("adding contact: %v", err)
	}

	a := New(Config{Store: st})

	res, err := a.Analyze(ctx, "Sarah Mitchell and Sarah Mitchel")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(res.DetectedPeople) != 1 {
		t.Fatalf("detected_people = %+v, want the contact once", res.DetectedPeople)
	}
	p := res.DetectedPeople[0]
	if p.Name != "Sarah Mitchel" || !p.Exists || p.ContactName != "Sarah Mitchell" || p.Score != 8 {
		t.Errorf("detected person = %+v", p)
	}

	if len(res.ExactMatches) != 1 {
		t.Fatalf("exact_matches = %+v, want the contact once", res.ExactMatches)
	}
	if res.ExactMatches[0].MatchScore != 10 {
		t.Errorf("match should keep the best variant's score: %+v", res.ExactMatches[0])
	}
}

func TestAnalyzeDedupesExactAndFuzzy(t *testing.T) {
	// A contact whose name is itself the selected text matches through both
	// the substring search and the fuzzy name path; it must appear once.
	ctx := context.Background()
	st := newTestStore(t)

	if _, err := st.AddContact(ctx, &store.Contact{Name: "Sarah Mitchell"}); err != nil {
		t.Fatalf("adding contact: %v", err)
	}

	a := New(Config{Store: st})

	res, err := a.Analyze(ctx, "Sarah Mitchell")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.ExactMatches) != 1 {
		t.Fatalf("exact_matches = %+v, want exactly one", res.ExactMatches)
	}
	if res.ExactMatches[0].MatchScore != 0 {
		t.Errorf("substring match should win over the scored duplicate: %+v", res.ExactMatches[0])
	}
}

func TestAnalyzeRelatedExcludesExactMatches(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	contactID, err := st.AddContact(ctx, &store.Contact{Name: "Sarah Mitchell"})
	if err != nil {
		t.Fatalf("adding contact: %v", err)
	}
	projectID, err := st.AddProject(ctx, &store.Project{Name: "Atlas Migration", Status: "active"})
	if err != nil {
		t.Fatalf("adding project: %v", err)
	}
	if _, err := st.AddRelationship(ctx, &store.Relationship{
		FromType: store.EntityContact, FromID: contactID,
		ToType: store.EntityProject, ToID: projectID,
		Type: "works_on", Strength: 1.0,
	}); err != nil {
		t.Fatalf("adding relationship: %v", err)
	}

	a := New(Config{Store: st})

	// Only the contact matches; the project arrives as a neighbor.
	res, err := a.Analyze(ctx, "Sarah Mitchell")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.RelatedItems) != 1 {
		t.Fatalf("related_items = %+v, want the linked project", res.RelatedItems)
	}
	if res.RelatedItems[0].Relationship != "works_on" {
		t.Errorf("relationship = %q", res.RelatedItems[0].Relationship)
	}

	// When the neighbor is itself an exact match, traversal must not echo
	// it back as related.
	otherID, err := st.AddContact(ctx, &store.Contact{Name: "Mitchell Baker"})
	if err != nil {
		t.Fatalf("adding contact: %v", err)
	}
	if _, err := st.AddRelationship(ctx, &store.Relationship{
		FromType: store.EntityContact, FromID: contactID,
		ToType: store.EntityContact, ToID: otherID,
		Type: "knows", Strength: 1.0,
	}); err != nil {
		t.Fatalf("adding relationship: %v", err)
	}

	res, err = a.Analyze(ctx, "Mitchell")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.ExactMatches) != 2 {
		t.Fatalf("exact_matches = %+v, want both contacts", res.ExactMatches)
	}
	for _, r := range res.RelatedItems {
		if r.Type == store.EntityContact {
			t.Errorf("exact-matched contact echoed as related: %+v", r)
		}
	}
}

func TestAnalyzeInverseRelationships(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	contactID, err := st.AddContact(ctx, &store.Contact{Name: "Bob Wilson"})
	if err != nil {
		t.Fatalf("adding contact: %v", err)
	}
	snippetID, err := st.AddSnippet(ctx, &store.Snippet{Text: "Standup notes from the rollout"})
	if err != nil {
		t.Fatalf("adding snippet: %v", err)
	}
	if _, err := st.AddRelationship(ctx, &store.Relationship{
		FromType: store.EntitySnippet, FromID: snippetID,
		ToType: store.EntityContact, ToID: contactID,
		Type: "mentions", Strength: 1.0,
	}); err != nil {
		t.Fatalf("adding relationship: %v", err)
	}

	a := New(Config{Store: st})

	res, err := a.Analyze(ctx, "Bob Wilson")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.RelatedItems) != 1 {
		t.Fatalf("related_items = %+v", res.RelatedItems)
	}
	r := res.RelatedItems[0]
	if r.Type != store.EntitySnippet || r.Relationship != "inverse_mentions" {
		t.Errorf("related item = %+v", r)
	}
}

func TestAnalyzeMultiplePeopleInsight(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	projectID, err := st.AddProject(ctx, &store.Project{Name: "Atlas", Status: "active"})
	if err != nil {
		t.Fatalf("adding project: %v", err)
	}
	for _, name := range []string{"Sarah Mitchell", "Bob Wilson"} {
		id, err := st.AddContact(ctx, &store.Contact{Name: name})
		if err != nil {
			t.Fatalf("adding contact: %v", err)
		}
		if _, err := st.AddRelationship(ctx, &store.Relationship{
			FromType: store.EntityContact, FromID: id,
			ToType: store.EntityProject, ToID: projectID,
			Type: "works_on", Strength: 1.0,
		}); err != nil {
			t.Fatalf("adding relationship: %v", err)
		}
	}

	a := New(Config{Store: st})

	res, err := a.Analyze(ctx, "Atlas")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.RelatedItems) != 2 {
		t.Fatalf("related_items = %+v", res.RelatedItems)
	}
	if !strings.Contains(res.SmartContext, "Related to: Sarah Mitchell, Bob Wilson") {
		t.Errorf("smart_context = %q", res.SmartContext)
	}

	want := "Multiple people involved: Sarah Mitchell, Bob Wilson"
	found := false
	for _, ins := range res.Insights {
		if ins == want {
			found = true
		}
	}
	if !found {
		t.Errorf("insights = %v, missing %q", res.Insights, want)
	}
}

func TestAnalyzeSkipsDanglingEdges(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	contactID, err := st.AddContact(ctx, &store.Contact{Name: "Sarah Mitchell"})
	if err != nil {
		t.Fatalf("adding contact: %v", err)
	}
	if _, err := st.AddRelationship(ctx, &store.Relationship{
		FromType: store.EntityContact, FromID: contactID,
		ToType: store.EntityProject, ToID: 999,
		Type: "works_on", Strength: 1.0,
	}); err != nil {
		t.Fatalf("adding relationship: %v", err)
	}

	a := New(Config{Store: st})

	res, err := a.Analyze(ctx, "Sarah Mitchell")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.RelatedItems) != 0 {
		t.Errorf("dangling edge produced related items: %+v", res.RelatedItems)
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	if _, err := st.AddContact(ctx, &store.Contact{Name: "Sarah Mitchell", Role: "Engineer"}); err != nil {
		t.Fatalf("adding contact: %v", err)
	}

	a := New(Config{Store: st})

	first, err := a.Analyze(ctx, "Ping Sarah Mitchell about JT-123")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	second, err := a.Analyze(ctx, "Ping Sarah Mitchell about JT-123")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated analysis differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestAnalyzeDegradesWithoutCollaborators(t *testing.T) {
	// No suggester, no semantic searcher: the result still carries empty,
	// non-nil collections so JSON clients see [] rather than null.
	ctx := context.Background()
	st := newTestStore(t)

	a := New(Config{Store: st})

	res, err := a.Analyze(ctx, "completely unremarkable text")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Patterns == nil || res.ExactMatches == nil || res.SemanticMatches == nil ||
		res.RelatedItems == nil || res.Actions == nil || res.Insights == nil ||
		res.DetectedPeople == nil {
		t.Errorf("result has nil collections: %+v", res)
	}
	if res.DetectedType != nil {
		t.Errorf("detected_type = %q, want nil", *res.DetectedType)
	}

	// Unclassified text serializes detected_type as null, not "".
	body, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshaling result: %v", err)
	}
	if !strings.Contains(string(body), `"detected_type":null`) {
		t.Errorf("serialized result = %s, want detected_type null", body)
	}
}

func TestAnalyzePatternDetection(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	a := New(Config{Store: st})

	res, err := a.Analyze(ctx, "JT-123 is due 2026-09-15, ping ops@example.com")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.DetectedType == nil || *res.DetectedType != "jira_ticket" {
		t.Errorf("detected_type = %v", res.DetectedType)
	}
	if !reflect.DeepEqual(res.Patterns["jira_ticket"], []string{"JT-123"}) {
		t.Errorf("patterns = %v", res.Patterns)
	}
	if !strings.Contains(res.SmartContext, "This looks like a jira ticket.") {
		t.Errorf("smart_context = %q", res.SmartContext)
	}
}
