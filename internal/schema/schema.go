// Package schema holds the compiled, immutable rule set a scan runs against:
// forbidden content patterns, required files, required imports, and package
// manifest constraints. Rules are pure data; evaluation lives in internal/scan.
package schema

import (
	"regexp"

	"github.com/codewithboateng/archlint/internal/ir"
)

// Rule is one compiled forbidden-pattern check. A rule with a nil AppliesTo is
// global; a file matching any entry in Exceptions never contributes a finding
// for this rule regardless of content.
type Rule struct {
	ID         string
	Summary    string
	Severity   ir.Severity
	Pattern    *regexp.Regexp
	AppliesTo  *Glob   // nil = every scanned file
	Exceptions []*Glob // ordered, first match wins
	Index      int     // declaration order; stable sort key for findings
}

// Applies reports whether rel is in scope for the rule (path scoping only;
// content matching is the caller's job).
func (r *Rule) Applies(rel string) bool {
	if r.AppliesTo != nil && !r.AppliesTo.Match(rel) {
		return false
	}
	for _, ex := range r.Exceptions {
		if ex.Match(rel) {
			return false
		}
	}
	return true
}

// ImportRule requires every file matched by AppliesTo to contain all entries
// of Require (logical AND). Entries are plain substrings.
type ImportRule struct {
	AppliesTo *Glob
	Require   []string
	Severity  ir.Severity
	Index     int
}

// ManifestRules constrain the package manifest document at Path.
type ManifestRules struct {
	Path                    string // relative to scan root; "" disables the check
	RequiredScripts         []string
	RequiredDependencies    []string
	RequiredDevDependencies []string
}

// RuleSet is the loaded schema for one validation run. Constructed once by
// Load; immutable thereafter.
type RuleSet struct {
	RequiredFiles []string
	Rules         []Rule
	Imports       []ImportRule
	Manifest      ManifestRules
}
