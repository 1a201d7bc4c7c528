package models

// RoutingRule maps a textual pattern to the capability tags a matching
// task requires. Rules are evaluated in ascending priority order; ties
// keep configuration load order.
type RoutingRule struct {
	// Pattern is a regular expression evaluated case-insensitively
	// against task descriptions.
	Pattern string `json:"pattern" yaml:"pattern"`
	// Capabilities are the tags this rule implies when it matches.
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	// Priority orders rule evaluation; lower is evaluated and
	// preferred first.
	Priority int `json:"priority" yaml:"priority"`
}
