package retriever

import (
	"context"
	"sort"
	"strings"
)

// Passage is one retrievable unit of context: a prior session note, a file
// summary, a past PR resolution, anything worth recalling across iterations.
type Passage struct {
	Text string
	Tags []string
}

// InMemoryRetriever is a keyword-scored stand-in for a real vector-backed
// store (the kind of thing a Qdrant- or Chroma-backed memory manager would
// serve in production). It has no external dependency, so it is always
// available even when no vector database is configured.
type InMemoryRetriever struct {
	passages []Passage
}

// NewInMemoryRetriever builds a retriever over a fixed set of passages.
func NewInMemoryRetriever(passages []Passage) *InMemoryRetriever {
	return &InMemoryRetriever{passages: passages}
}

// Add appends a passage to the index.
func (r *InMemoryRetriever) Add(p Passage) {
	r.passages = append(r.passages, p)
}

// Retrieve implements ContextRetriever using term-overlap scoring. It is
// deliberately simple: good enough to surface relevant prior context in
// tests and small deployments, not a substitute for a real embedding index.
func (r *InMemoryRetriever) Retrieve(ctx context.Context, query string, k int) (string, error) {
	if k <= 0 {
		k = 4
	}
	terms := tokenize(query)
	if len(terms) == 0 || len(r.passages) == 0 {
		return "", nil
	}

	type scored struct {
		passage Passage
		score   int
	}
	candidates := make([]scored, 0, len(r.passages))
	for _, p := range r.passages {
		score := overlap(terms, tokenize(p.Text))
		for _, tag := range p.Tags {
			score += overlap(terms, tokenize(tag)) * 2
		}
		if score > 0 {
			candidates = append(candidates, scored{passage: p, score: score})
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	lines := make([]string, len(candidates))
	for i, c := range candidates {
		lines[i] = c.passage.Text
	}
	return strings.Join(lines, "\n\n"), nil
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func overlap(a, b []string) int {
	set := make(map[string]struct{}, len(b))
	for _, t := range b {
		set[t] = struct{}{}
	}
	n := 0
	for _, t := range a {
		if _, ok := set[t]; ok {
			n++
		}
	}
	return n
}
