package analyze

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hurttlocker/ctxd/internal/store"
)

// semanticLimit caps how many similarity hits one analysis requests.
const semanticLimit = 5

// Config wires an Analyzer's collaborators. Store is required; a nil Matcher
// gets the built-in patterns; Suggester and Semantic are optional and degrade
// to empty actions / empty semantic matches.
type Config struct {
	Store     store.Store
	Matcher   *Matcher
	Suggester Suggester
	Semantic  SemanticSearcher
}

// Analyzer is the context resolution orchestrator. It is a pure reader of
// the store: one Analyze call runs the full pipeline and produces one result.
type Analyzer struct {
	store     store.Store
	matcher   *Matcher
	suggester Suggester
	semantic  SemanticSearcher
}

// New constructs an Analyzer from its collaborators.
func New(cfg Config) *Analyzer {
	if cfg.Matcher == nil {
		cfg.Matcher = NewMatcher()
	}
	return &Analyzer{
		store:     cfg.Store,
		matcher:   cfg.Matcher,
		suggester: cfg.Suggester,
		semantic:  cfg.Semantic,
	}
}

// Analyze resolves context for a piece of selected text. Data-quality
// problems (dangling edges, missing abbreviation, absent semantic searcher)
// degrade to empty fields; only store failures return an error.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*Result, error) {
	patterns := a.matcher.Detect(text)
	primaryType := a.matcher.Classify(text)

	exact, err := a.findExactMatches(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("finding exact matches: %w", err)
	}

	names := ExtractNames(text)
	personMatches, people, err := a.matchPeople(ctx, text, names)
	if err != nil {
		return nil, fmt.Errorf("matching people: %w", err)
	}

	// Exact matches go first so their plain shape wins over scored person
	// matches on duplicate keys.
	exact = dedupeMatches(append(exact, personMatches...))

	abbr, err := a.store.FindAbbreviation(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("looking up abbreviation: %w", err)
	}

	semanticMatches := []SemanticMatch{}
	if a.semantic != nil {
		hits, err := a.semantic.FindSimilar(ctx, text, semanticLimit)
		if err != nil {
			// The semantic collaborator is optional end to end; a failing
			// one must not take down the analysis.
			fmt.Fprintf(os.Stderr, "semantic search failed: %v\n", err)
		} else if hits != nil {
			semanticMatches = hits
		}
	}

	exclude := make(map[string]bool, len(exact))
	for _, m := range exact {
		exclude[canonicalKey(m.Type, m.Data)] = true
	}
	related, err := findRelated(ctx, a.store, exact, exclude)
	if err != nil {
		return nil, fmt.Errorf("traversing relationships: %w", err)
	}
	related = dedupeRelated(related)

	actions := []Action{}
	if a.suggester != nil {
		actions = a.suggester.Suggest(text, primaryType, patterns, exact)
	}

	var detected *string
	if primaryType != "" {
		detected = &primaryType
	}

	return &Result{
		SelectedText:    text,
		DetectedType:    detected,
		Patterns:        patterns,
		Abbreviation:    abbr,
		ExactMatches:    exact,
		SemanticMatches: semanticMatches,
		RelatedItems:    related,
		SmartContext:    narrate(primaryType, exact, related, abbr),
		Actions:         actions,
		Insights:        insights(exact, related),
		DetectedPeople:  people,
	}, nil
}

// findExactMatches runs the literal substring search in fixed table order:
// contacts, then snippets, then projects.
func (a *Analyzer) findExactMatches(ctx context.Context, text string) ([]Match, error) {
	matches := []Match{}

	contacts, err := a.store.SearchContacts(ctx, text)
	if err != nil {
		return nil, err
	}
	for _, c := range contacts {
		matches = append(matches, Match{Type: store.EntityContact, Data: c})
	}

	snippets, err := a.store.SearchSnippets(ctx, text)
	if err != nil {
		return nil, err
	}
	for _, s := range snippets {
		matches = append(matches, Match{Type: store.EntitySnippet, Data: s})
	}

	projects, err := a.store.SearchProjects(ctx, text)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		matches = append(matches, Match{Type: store.EntityProject, Data: p})
	}

	return matches, nil
}

// matchPeople runs every extracted name, plus the raw selection itself,
// through the fuzzy matcher. It returns scored contact matches (best score
// per contact, sorted descending) plus the detected_people report; only
// extracted names are reported as detected people, the raw selection just
// contributes scored matches (so "Stefan" finds contact "Stefan Krona" even
// though a single word is never an extracted name).
func (a *Analyzer) matchPeople(ctx context.Context, text string, names []string) ([]Match, []DetectedPerson, error) {
	people := []DetectedPerson{}

	queries := make([]string, 0, len(names)+1)
	report := make([]bool, 0, len(names)+1)
	for _, name := range names {
		queries = append(queries, name)
		report = append(report, true)
	}
	if raw := strings.TrimSpace(text); raw != "" {
		dup := false
		for _, name := range names {
			if name == raw {
				dup = true
				break
			}
		}
		if !dup {
			queries = append(queries, raw)
			report = append(report, false)
		}
	}
	if len(queries) == 0 {
		return nil, people, nil
	}

	contacts, err := a.store.ListContacts(ctx)
	if err != nil {
		return nil, nil, err
	}

	best := make(map[int64]Match)
	var order []int64
	reported := make(map[int64]bool)

	for i, query := range queries {
		scored := ScoreContacts(query, contacts)
		if len(scored) == 0 {
			if report[i] {
				people = append(people, DetectedPerson{Name: query, Exists: false})
			}
			continue
		}

		top := scored[0]
		if report[i] && !reported[top.Contact.ID] {
			reported[top.Contact.ID] = true
			id := top.Contact.ID
			people = append(people, DetectedPerson{
				Name:        query,
				Exists:      true,
				ContactID:   &id,
				ContactName: top.Contact.Name,
				Score:       top.Score,
			})
		}

		for _, cs := range scored {
			prev, ok := best[cs.Contact.ID]
			if !ok {
				order = append(order, cs.Contact.ID)
			}
			if !ok || cs.Score > prev.MatchScore {
				best[cs.Contact.ID] = Match{
					Type:        store.EntityContact,
					Data:        cs.Contact,
					MatchScore:  cs.Score,
					MatchReason: fmt.Sprintf("fuzzy name match on '%s'", query),
				}
			}
		}
	}

	matches := make([]Match, 0, len(best))
	for _, id := range order {
		matches = append(matches, best[id])
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})

	return matches, people, nil
}
