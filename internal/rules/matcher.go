// Package rules evaluates routing rules against free-text task
// descriptions to infer the capability tags a task requires.
package rules

import (
	"regexp"
	"sort"

	"github.com/kalani-ai/kalani/pkg/models"
)

// UnmatchedPriority is the sentinel priority for tasks no rule matched.
// It sorts after every configured rule priority, so unmatched tasks are
// treated as the lowest urgency.
const UnmatchedPriority = 1<<31 - 1

// Result is the outcome of matching a description against the rule set.
type Result struct {
	// Tags is the ordered union of capability tags from all matching
	// rules. Order follows rule evaluation order; duplicates collapse
	// to their first occurrence.
	Tags []string
	// Priority is the minimum priority among matching rules, or
	// UnmatchedPriority if nothing matched.
	Priority int
	// Matched reports whether at least one rule matched.
	Matched bool
}

// compiledRule pairs a routing rule with its compiled pattern.
type compiledRule struct {
	rule models.RoutingRule
	re   *regexp.Regexp
}

// Matcher evaluates a fixed rule set. It is immutable after construction
// and safe for concurrent use.
type Matcher struct {
	rules []compiledRule
}

// NewMatcher compiles the rule set. Patterns are compiled
// case-insensitively. Returns ConfigurationError on invalid pattern
// syntax or a rule with no capabilities.
func NewMatcher(ruleSet []models.RoutingRule) (*Matcher, error) {
	compiled := make([]compiledRule, 0, len(ruleSet))
	for _, r := range ruleSet {
		if r.Pattern == "" {
			return nil, &models.ConfigurationError{Source: "rules", Reason: "rule with empty pattern"}
		}
		if len(r.Capabilities) == 0 {
			return nil, &models.ConfigurationError{
				Source: "rules",
				Reason: "rule " + r.Pattern + " has no capabilities",
			}
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, &models.ConfigurationError{
				Source: "rules",
				Reason: "invalid pattern " + r.Pattern + ": " + err.Error(),
			}
		}
		compiled = append(compiled, compiledRule{rule: r, re: re})
	}

	// Ascending priority; the stable sort keeps configuration load
	// order for equal priorities, so first-defined wins ties.
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].rule.Priority < compiled[j].rule.Priority
	})

	return &Matcher{rules: compiled}, nil
}

// Match evaluates every rule against the description and returns the
// union of implied capability tags plus the best (lowest) priority seen.
// Pure function of the rule set and input: no side effects, same result
// for the same input regardless of call order or concurrency.
func (m *Matcher) Match(description string) Result {
	res := Result{Priority: UnmatchedPriority}
	seen := make(map[string]bool)

	for _, cr := range m.rules {
		if !cr.re.MatchString(description) {
			continue
		}
		res.Matched = true
		if cr.rule.Priority < res.Priority {
			res.Priority = cr.rule.Priority
		}
		for _, tag := range cr.rule.Capabilities {
			if !seen[tag] {
				seen[tag] = true
				res.Tags = append(res.Tags, tag)
			}
		}
	}

	return res
}

// Size returns the number of rules in the set.
func (m *Matcher) Size() int {
	return len(m.rules)
}
