package analyze

import (
	"regexp"
	"sort"
	"strings"
)

// nameRe matches maximal spans of two or more consecutive capitalized words.
// ASCII-only on purpose: all-caps tokens and accented names are not matched,
// which keeps acronyms out of the person path.
var nameRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)

// leadingStopwords are capitalized sentence-leading words that glue onto a
// following name ("Met Sarah Mitchell"). They are stripped from the front of
// a span; whatever remains must still be two words to count as a name.
var leadingStopwords = map[string]bool{
	"Met": true, "The": true, "This": true, "That": true, "With": true,
	"And": true, "But": true, "For": true, "From": true, "After": true,
	"Before": true, "When": true, "While": true, "Today": true, "Dear": true,
	"Hello": true, "Thanks": true,
}

// ExtractNames pulls candidate person names out of free text. Single
// capitalized words are never extracted. The result is deduplicated and
// sorted so repeated calls see the same order.
func ExtractNames(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range nameRe.FindAllString(text, -1) {
		words := strings.Fields(m)
		for len(words) > 2 && leadingStopwords[words[0]] {
			words = words[1:]
		}
		if len(words) < 2 {
			continue
		}
		name := strings.Join(words, " ")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
