package analyze

import (
	"encoding/json"
	"fmt"

	"github.com/hurttlocker/ctxd/internal/store"
)

// canonicalKey identifies an entity across match sources. Prefers the
// (type, id) pair; rows without a usable id fall back to a stable JSON
// serialization, and unserializable data to Go-syntax formatting. Bare ids
// collide across types, so the type is always part of the key.
func canonicalKey(t store.EntityType, data store.Entity) string {
	if data != nil && data.EntityID() > 0 {
		return fmt.Sprintf("%s:%d", t, data.EntityID())
	}
	if b, err := json.Marshal(data); err == nil {
		return string(t) + ":" + string(b)
	}
	return fmt.Sprintf("%s:%#v", t, data)
}

// dedupeMatches drops items repeating an earlier canonical key, keeping the
// first occurrence. Callers order inputs so the richer variant comes first.
func dedupeMatches(items []Match) []Match {
	seen := make(map[string]bool)
	deduped := make([]Match, 0, len(items))
	for _, item := range items {
		key := canonicalKey(item.Type, item.Data)
		if !seen[key] {
			seen[key] = true
			deduped = append(deduped, item)
		}
	}
	return deduped
}

// dedupeRelated is dedupeMatches for graph neighbors.
func dedupeRelated(items []RelatedItem) []RelatedItem {
	seen := make(map[string]bool)
	deduped := make([]RelatedItem, 0, len(items))
	for _, item := range items {
		key := canonicalKey(item.Type, item.Data)
		if !seen[key] {
			seen[key] = true
			deduped = append(deduped, item)
		}
	}
	return deduped
}
