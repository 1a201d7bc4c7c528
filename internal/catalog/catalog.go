// Package catalog exposes an immutable, indexed view of the worker
// definitions loaded at process start.
package catalog

import (
	"sort"

	"github.com/kalani-ai/kalani/pkg/models"
)

// Catalog indexes worker definitions by id and capability tag. It is
// constructed once at startup and read-only afterwards, so lookups need
// no locking.
type Catalog struct {
	workers      map[string]*models.WorkerDefinition
	byCapability map[string][]*models.WorkerDefinition
	ordered      []*models.WorkerDefinition
}

// New validates and indexes the given definitions. Returns
// ConfigurationError on duplicate worker ids, a worker with no id, or a
// malformed capability set (empty or duplicate tags). A catalog that
// fails validation must abort startup.
func New(defs []models.WorkerDefinition) (*Catalog, error) {
	c := &Catalog{
		workers:      make(map[string]*models.WorkerDefinition, len(defs)),
		byCapability: make(map[string][]*models.WorkerDefinition),
	}

	for i := range defs {
		w := defs[i]
		if w.ID == "" {
			return nil, &models.ConfigurationError{Source: "workers", Reason: "worker with empty id"}
		}
		if _, dup := c.workers[w.ID]; dup {
			return nil, &models.ConfigurationError{
				Source: "workers",
				Reason: "duplicate worker id " + w.ID,
			}
		}
		seen := make(map[string]bool, len(w.Capabilities))
		for _, tag := range w.Capabilities {
			if tag == "" {
				return nil, &models.ConfigurationError{
					Source: "workers",
					Reason: "worker " + w.ID + " has an empty capability tag",
				}
			}
			if seen[tag] {
				return nil, &models.ConfigurationError{
					Source: "workers",
					Reason: "worker " + w.ID + " lists capability " + tag + " twice",
				}
			}
			seen[tag] = true
		}

		stored := &w
		c.workers[w.ID] = stored
		c.ordered = append(c.ordered, stored)
		for _, tag := range w.Capabilities {
			c.byCapability[tag] = append(c.byCapability[tag], stored)
		}
	}

	// Stable iteration order for All() regardless of input order.
	sort.Slice(c.ordered, func(i, j int) bool {
		return c.ordered[i].ID < c.ordered[j].ID
	})

	return c, nil
}

// Get returns the worker with the given id, or NotFoundError.
func (c *Catalog) Get(id string) (*models.WorkerDefinition, error) {
	w, ok := c.workers[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "worker", ID: id}
	}
	return w, nil
}

// FindByCapability returns the workers offering the given tag.
// Empty slice if none.
func (c *Catalog) FindByCapability(tag string) []*models.WorkerDefinition {
	return c.byCapability[tag]
}

// All returns every worker, ordered by id.
func (c *Catalog) All() []*models.WorkerDefinition {
	return c.ordered
}

// Size returns the number of workers in the catalog.
func (c *Catalog) Size() int {
	return len(c.workers)
}
