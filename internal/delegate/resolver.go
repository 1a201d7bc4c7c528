// Package delegate selects exactly one worker for a task given its
// required capability tags.
package delegate

import (
	"sort"

	"github.com/kalani-ai/kalani/internal/catalog"
	"github.com/kalani-ai/kalani/pkg/models"
)

// Resolver scores catalog workers against required capability tags.
// Pure computation over the read-only catalog; safe for concurrent use.
type Resolver struct {
	catalog *catalog.Catalog
}

// NewResolver creates a Resolver over the given catalog.
func NewResolver(c *catalog.Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Resolve picks the single best worker for the required tags.
//
// Ranking: match score (worker capabilities ∩ tags) descending, then
// worker priority weight ascending, then worker id ascending as the
// final deterministic tie-break. Workers matching none of the required
// tags are excluded.
//
// An empty tag set means no routing rule matched the task. We escalate
// rather than pick an arbitrary worker: the unmatched task is reported
// as NoEligibleWorkerError so the caller moves it to blocked for human
// review. NoEligibleWorkerError is recoverable; retry after the catalog
// or rule set changes.
func (r *Resolver) Resolve(taskID string, tags []string) (*models.WorkerDefinition, error) {
	if len(tags) == 0 {
		return nil, &models.NoEligibleWorkerError{TaskID: taskID}
	}

	type scored struct {
		worker *models.WorkerDefinition
		score  int
	}

	var eligible []scored
	for _, w := range r.catalog.All() {
		score := w.MatchScore(tags)
		if score == 0 {
			continue
		}
		eligible = append(eligible, scored{worker: w, score: score})
	}

	if len(eligible) == 0 {
		return nil, &models.NoEligibleWorkerError{TaskID: taskID, Tags: tags}
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].score != eligible[j].score {
			return eligible[i].score > eligible[j].score
		}
		if eligible[i].worker.Priority != eligible[j].worker.Priority {
			return eligible[i].worker.Priority < eligible[j].worker.Priority
		}
		return eligible[i].worker.ID < eligible[j].worker.ID
	})

	return eligible[0].worker, nil
}
