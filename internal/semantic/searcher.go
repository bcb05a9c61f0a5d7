package semantic

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hurttlocker/ctxd/internal/analyze"
	"github.com/hurttlocker/ctxd/internal/store"
)

// DefaultThreshold is the minimum cosine similarity for a hit to surface.
const DefaultThreshold = 0.5

// embedBatchSize caps how many texts one indexing request carries.
const embedBatchSize = 32

// Searcher implements the analyzer's similarity contract with brute-force
// cosine search over vectors in the embeddings table. Vector counts are
// small (one row per entity), so a linear scan beats index maintenance.
type Searcher struct {
	store     store.Store
	embedder  Embedder
	threshold float64
}

// NewSearcher creates a Searcher. A zero threshold uses DefaultThreshold.
func NewSearcher(st store.Store, embedder Embedder, threshold float64) *Searcher {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Searcher{store: st, embedder: embedder, threshold: threshold}
}

// IndexAll re-embeds every contact, snippet, and project and replaces the
// stored vectors. Called after ingestion reloads the store.
func (s *Searcher) IndexAll(ctx context.Context) (int, error) {
	if err := s.store.ClearEmbeddings(ctx); err != nil {
		return 0, fmt.Errorf("clearing old vectors: %w", err)
	}

	type item struct {
		entityType store.EntityType
		entityID   int64
		text       string
	}
	var items []item

	contacts, err := s.store.ListContacts(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing contacts: %w", err)
	}
	for _, c := range contacts {
		items = append(items, item{store.EntityContact, c.ID, contactText(c)})
	}

	snippets, err := s.store.ListSnippets(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing snippets: %w", err)
	}
	for _, sn := range snippets {
		items = append(items, item{store.EntitySnippet, sn.ID, sn.Text})
	}

	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing projects: %w", err)
	}
	for _, p := range projects {
		items = append(items, item{store.EntityProject, p.ID, projectText(p)})
	}

	indexed := 0
	for start := 0; start < len(items); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		texts := make([]string, len(batch))
		for i, it := range batch {
			texts[i] = it.text
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return indexed, fmt.Errorf("embedding batch: %w", err)
		}

		for i, it := range batch {
			if len(vectors[i]) == 0 {
				continue
			}
			err := s.store.PutEmbedding(ctx, &store.Embedding{
				EntityType: it.entityType,
				EntityID:   it.entityID,
				Vector:     vectors[i],
				Text:       it.text,
			})
			if err != nil {
				return indexed, fmt.Errorf("storing vector: %w", err)
			}
			indexed++
		}
	}

	return indexed, nil
}

// FindSimilar embeds the query and returns the top hits above the similarity
// threshold, best first.
func (s *Searcher) FindSimilar(ctx context.Context, query string, limit int) ([]analyze.SemanticMatch, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	embeddings, err := s.store.ListEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading vectors: %w", err)
	}

	var hits []analyze.SemanticMatch
	for _, e := range embeddings {
		sim := cosineSimilarity(queryVec, e.Vector)
		if sim < s.threshold {
			continue
		}
		hits = append(hits, analyze.SemanticMatch{
			Type:       e.EntityType,
			ID:         e.EntityID,
			Text:       e.Text,
			Similarity: sim,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func contactText(c *store.Contact) string {
	parts := []string{c.Name}
	if c.Role != "" {
		parts = append(parts, c.Role)
	}
	if c.Context != "" {
		parts = append(parts, c.Context)
	}
	return strings.Join(parts, " ")
}

func projectText(p *store.Project) string {
	if p.Description != "" {
		return p.Name + " " + p.Description
	}
	return p.Name
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched dimensions or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
