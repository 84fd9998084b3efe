package overlay

import (
	"fmt"
	"strings"
)

// PathSeparator joins target path segments in the textual rule form.
const PathSeparator = "."

// GoogleAnalyticsEnv is the variable carrying the site's analytics tracking id.
const GoogleAnalyticsEnv = "GOOGLE_ANALYTICS_TRACKING_ID"

// Rule maps one environment variable onto a target path.
type Rule struct {
	Env  string
	Path []string
}

// NewRule builds a rule writing env to path.
func NewRule(env string, path ...string) Rule {
	return Rule{Env: env, Path: append([]string(nil), path...)}
}

// DefaultRules returns the rule set used when nothing else is configured:
// the analytics tracking id written to analytics.google.tracking_id.
func DefaultRules() []Rule {
	return []Rule{NewRule(GoogleAnalyticsEnv, "analytics", "google", "tracking_id")}
}

// Validate checks that the rule names a variable and a non-empty path.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Env) == "" {
		return &InvalidRuleError{Rule: r, Reason: "environment variable name is empty"}
	}
	if len(r.Path) == 0 {
		return &InvalidRuleError{Rule: r, Reason: "target path is empty"}
	}
	for i, segment := range r.Path {
		if segment == "" {
			return &InvalidRuleError{Rule: r, Reason: fmt.Sprintf("path segment %d is empty", i)}
		}
	}
	return nil
}

// String renders the rule as NAME=seg1.seg2.
func (r Rule) String() string {
	return r.Env + "=" + strings.Join(r.Path, PathSeparator)
}

// ParseRule parses the NAME=seg1.seg2 form. Surrounding whitespace is ignored.
func ParseRule(raw string) (Rule, error) {
	env, path, found := strings.Cut(raw, "=")
	if !found {
		return Rule{}, &InvalidRuleError{Rule: Rule{Env: strings.TrimSpace(raw)}, Reason: "expected NAME=path"}
	}

	rule := Rule{Env: strings.TrimSpace(env)}
	if path = strings.TrimSpace(path); path != "" {
		rule.Path = SplitPath(path)
	}
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// ParseRules parses every entry with ParseRule, skipping blank entries.
func ParseRules(raw []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(raw))
	for _, entry := range raw {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		rule, err := ParseRule(entry)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// SplitPath splits a dotted path. Empty segments are kept so Validate can
// reject them.
func SplitPath(path string) []string {
	parts := strings.Split(path, PathSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
