package models

import "testing"

func TestWorkerDefinition_HasCapability(t *testing.T) {
	w := &WorkerDefinition{
		ID:           "sec-bot",
		Capabilities: []string{"security-audit", "code-review"},
	}

	if !w.HasCapability("security-audit") {
		t.Error("expected sec-bot to have security-audit")
	}
	if w.HasCapability("testing") {
		t.Error("expected sec-bot to lack testing")
	}
	if w.HasCapability("") {
		t.Error("empty tag should never match")
	}
}

func TestWorkerDefinition_MatchScore(t *testing.T) {
	w := &WorkerDefinition{
		ID:           "reviewer",
		Capabilities: []string{"code-review", "testing", "security-audit"},
	}

	tests := []struct {
		name string
		tags []string
		want int
	}{
		{"no tags", nil, 0},
		{"one overlap", []string{"testing"}, 1},
		{"full overlap", []string{"testing", "code-review"}, 2},
		{"partial overlap", []string{"testing", "deployment"}, 1},
		{"no overlap", []string{"deployment", "docs"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.MatchScore(tt.tags); got != tt.want {
				t.Errorf("MatchScore(%v) = %d, want %d", tt.tags, got, tt.want)
			}
		})
	}
}
