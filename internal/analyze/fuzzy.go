package analyze

import (
	"sort"
	"strings"

	"github.com/hurttlocker/ctxd/internal/store"
)

// ContactScore pairs a contact with its fuzzy-match score for one query name.
type ContactScore struct {
	Contact *store.Contact
	Score   int
}

// ScoreContacts scores a query name against every contact, case-insensitively:
//
//	10  exact full-string equality
//	 8  one string is a strict substring of the other
//	+1  per query token (length >= 2) contained in the contact name
//
// Contacts scoring 0 are excluded. The result is sorted by score descending;
// ties keep the input (store) order, so results are stable across calls.
func ScoreContacts(name string, contacts []*store.Contact) []ContactScore {
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return nil
	}

	var scored []ContactScore
	for _, c := range contacts {
		target := strings.ToLower(c.Name)
		score := 0
		switch {
		case query == target:
			score = 10
		case strings.Contains(target, query) || strings.Contains(query, target):
			score = 8
		default:
			for _, token := range strings.Fields(query) {
				if len(token) >= 2 && strings.Contains(target, token) {
					score++
				}
			}
		}
		if score > 0 {
			scored = append(scored, ContactScore{Contact: c, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}
