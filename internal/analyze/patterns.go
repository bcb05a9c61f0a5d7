// Package analyze implements the context resolution engine: pattern
// detection, person-name extraction and fuzzy contact matching, exact and
// graph-neighbor lookups, and the orchestrator that merges them into one
// deduplicated result.
package analyze

import (
	"fmt"
	"regexp"
)

// pattern pairs a name with its compiled regex. Order is registration order,
// which doubles as the fallback classification order.
type pattern struct {
	name string
	re   *regexp.Regexp
}

// classifyPriority ranks the built-in patterns for Classify. Runtime-added
// patterns participate in Detect but not in this priority list.
var classifyPriority = []string{"jira_ticket", "email", "url", "phone", "date"}

// Matcher detects structured tokens (ticket IDs, emails, URLs, phone numbers,
// ISO dates) in free text. Stateless after construction; safe for concurrent
// use as long as Add is not called concurrently with Detect.
type Matcher struct {
	patterns []pattern
}

// NewMatcher returns a Matcher with the built-in patterns registered.
func NewMatcher() *Matcher {
	m := &Matcher{}
	builtins := []struct{ name, expr string }{
		{"jira_ticket", `\b(JT-?\d+)\b`},
		{"email", `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`},
		{"url", `https?://[^\s]+`},
		{"phone", `\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`},
		{"date", `\b\d{4}-\d{2}-\d{2}\b`},
	}
	for _, b := range builtins {
		m.patterns = append(m.patterns, pattern{b.name, regexp.MustCompile(`(?i)` + b.expr)})
	}
	return m
}

// Add registers a custom named pattern. A compilation failure rejects only
// that pattern; previously registered patterns keep working.
func (m *Matcher) Add(name, expr string) error {
	re, err := regexp.Compile(`(?i)` + expr)
	if err != nil {
		return fmt.Errorf("compiling pattern %q: %w", name, err)
	}
	m.patterns = append(m.patterns, pattern{name, re})
	return nil
}

// Detect returns every pattern that matches text, mapped to its ordered raw
// matches. Patterns with a capture group report the group, not the whole
// match (the ticket pattern uses this to strip surrounding context).
func (m *Matcher) Detect(text string) map[string][]string {
	results := make(map[string][]string)
	for _, p := range m.patterns {
		var matches []string
		if p.re.NumSubexp() > 0 {
			for _, sub := range p.re.FindAllStringSubmatch(text, -1) {
				matches = append(matches, sub[1])
			}
		} else {
			matches = p.re.FindAllString(text, -1)
		}
		if len(matches) > 0 {
			results[p.name] = matches
		}
	}
	return results
}

// Classify returns the highest-priority pattern present in text, or "" when
// none match. Built-in priority: ticket > email > url > phone > date;
// custom patterns fall back to registration order.
func (m *Matcher) Classify(text string) string {
	detected := m.Detect(text)
	if len(detected) == 0 {
		return ""
	}
	for _, name := range classifyPriority {
		if _, ok := detected[name]; ok {
			return name
		}
	}
	for _, p := range m.patterns {
		if _, ok := detected[p.name]; ok {
			return p.name
		}
	}
	return ""
}
