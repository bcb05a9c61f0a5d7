package analyze

import (
	"context"
	"fmt"

	"github.com/hurttlocker/ctxd/internal/store"
)

// findRelated performs a one-hop bidirectional graph traversal from the given
// matches. Output is grouped by originating match in input order; within a
// group, outgoing edges come before incoming ones, each in store order.
// Neighbors whose key is in exclude are skipped, as are dangling edges whose
// endpoint no longer resolves to a row. Only store failures return an error.
func findRelated(ctx context.Context, st store.Store, matches []Match, exclude map[string]bool) ([]RelatedItem, error) {
	var related []RelatedItem

	for _, match := range matches {
		if match.Data == nil {
			continue
		}
		id := match.Data.EntityID()

		outgoing, err := st.RelationshipsFrom(ctx, match.Type, id)
		if err != nil {
			return nil, fmt.Errorf("traversing outgoing edges: %w", err)
		}
		for _, rel := range outgoing {
			entity, err := st.GetEntity(ctx, rel.ToType, rel.ToID)
			if err != nil {
				return nil, fmt.Errorf("resolving edge target: %w", err)
			}
			if entity == nil || exclude[canonicalKey(rel.ToType, entity)] {
				continue
			}
			related = append(related, RelatedItem{
				Type:         rel.ToType,
				Data:         entity,
				Relationship: rel.Type,
				Strength:     rel.Strength,
			})
		}

		incoming, err := st.RelationshipsTo(ctx, match.Type, id)
		if err != nil {
			return nil, fmt.Errorf("traversing incoming edges: %w", err)
		}
		for _, rel := range incoming {
			entity, err := st.GetEntity(ctx, rel.FromType, rel.FromID)
			if err != nil {
				return nil, fmt.Errorf("resolving edge source: %w", err)
			}
			if entity == nil || exclude[canonicalKey(rel.FromType, entity)] {
				continue
			}
			related = append(related, RelatedItem{
				Type:         rel.FromType,
				Data:         entity,
				Relationship: "inverse_" + rel.Type,
				Strength:     rel.Strength,
			})
		}
	}

	return related, nil
}
