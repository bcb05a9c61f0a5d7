package analyze

import (
	"context"

	"github.com/hurttlocker/ctxd/internal/store"
)

// Match is an entity found by exact substring search or by the person-name
// fuzzy path. Score and reason are set only on fuzzy matches.
type Match struct {
	Type        store.EntityType `json:"type"`
	Data        store.Entity     `json:"data"`
	MatchScore  int              `json:"match_score,omitempty"`
	MatchReason string           `json:"match_reason,omitempty"`
}

// RelatedItem is an entity reached by one relationship hop from a match.
// Reverse-traversed edges carry an "inverse_" prefixed relationship label.
type RelatedItem struct {
	Type         store.EntityType `json:"type"`
	Data         store.Entity     `json:"data"`
	Relationship string           `json:"relationship"`
	Strength     float64          `json:"strength"`
}

// SemanticMatch is one similarity-search hit from the optional semantic
// collaborator.
type SemanticMatch struct {
	Type       store.EntityType `json:"type"`
	ID         int64            `json:"id"`
	Text       string           `json:"text"`
	Similarity float64          `json:"similarity"`
}

// SemanticSearcher is the optional similarity-search collaborator. A nil
// searcher degrades to empty semantic_matches.
type SemanticSearcher interface {
	FindSimilar(ctx context.Context, query string, limit int) ([]SemanticMatch, error)
}

// Action is one suggested follow-up for the analyzed text.
type Action struct {
	Label string `json:"label"`
	Type  string `json:"type"`
	Value string `json:"value"`
	Icon  string `json:"icon"`
}

// Suggester produces contextual actions from the analysis inputs.
type Suggester interface {
	Suggest(text, detectedType string, patterns map[string][]string, matches []Match) []Action
}

// DetectedPerson reports whether one extracted name resolved to a contact.
type DetectedPerson struct {
	Name        string `json:"name"`
	Exists      bool   `json:"exists"`
	ContactID   *int64 `json:"contact_id"`
	ContactName string `json:"contact_name,omitempty"`
	Score       int    `json:"score,omitempty"`
}

// Result is the complete output of one Analyze call. All list fields are
// non-nil so they serialize as [] rather than null. DetectedType is nil when
// no pattern classified the text, serializing as null rather than "".
type Result struct {
	SelectedText    string              `json:"selected_text"`
	DetectedType    *string             `json:"detected_type"`
	Patterns        map[string][]string `json:"patterns"`
	Abbreviation    *store.Abbreviation `json:"abbreviation"`
	ExactMatches    []Match             `json:"exact_matches"`
	SemanticMatches []SemanticMatch     `json:"semantic_matches"`
	RelatedItems    []RelatedItem       `json:"related_items"`
	SmartContext    string              `json:"smart_context"`
	Actions         []Action            `json:"actions"`
	Insights        []string            `json:"insights"`
	DetectedPeople  []DetectedPerson    `json:"detected_people"`
}
