package models

// WorkerDefinition describes one worker identity available for delegation.
// Definitions are loaded once at process start and treated as read-only
// for the lifetime of the orchestration process.
type WorkerDefinition struct {
	// ID is the unique worker identifier.
	ID string `json:"id" yaml:"id"`
	// Capabilities is the set of capability tags this worker offers.
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	// ToolPermissions restricts what the worker may do (e.g. read-only
	// vs read-write). Used for validation only, never for scheduling.
	ToolPermissions []string `json:"tool_permissions,omitempty" yaml:"tool_permissions"`
	// Priority is the preference weight used for tie-breaking among
	// equally-scored workers. Lower is preferred.
	Priority int `json:"priority" yaml:"priority"`
}

// HasCapability returns true if the worker offers the given tag.
func (w *WorkerDefinition) HasCapability(tag string) bool {
	for _, c := range w.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// MatchScore counts how many of the required tags this worker offers.
func (w *WorkerDefinition) MatchScore(tags []string) int {
	score := 0
	for _, tag := range tags {
		if w.HasCapability(tag) {
			score++
		}
	}
	return score
}
