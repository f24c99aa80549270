package schema

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codewithboateng/archlint/internal/ir"
)

type doc struct {
	RequiredFiles     []docPattern `yaml:"required_files"`
	ForbiddenPatterns []docRule    `yaml:"forbidden_patterns"`
	RequiredImports   []docImport  `yaml:"required_imports"`
	Manifest          docManifest  `yaml:"manifest"`
}

// required_files entries are either plain strings or {path: ...} mappings.
type docPattern struct {
	Path string `yaml:"path"`
}

func (p *docPattern) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		p.Path = n.Value
		return nil
	}
	type alias docPattern
	return n.Decode((*alias)(p))
}

type docRule struct {
	ID         string   `yaml:"id"`
	Summary    string   `yaml:"summary"`
	Pattern    string   `yaml:"pattern"`
	Severity   string   `yaml:"severity"` // warning|error|critical
	AppliesTo  string   `yaml:"applies_to"`
	Exceptions []string `yaml:"exceptions"`
}

type docImport struct {
	AppliesTo string   `yaml:"applies_to"`
	Require   []string `yaml:"require"`
	Severity  string   `yaml:"severity"`
}

type docManifest struct {
	Path            string   `yaml:"path"`
	RequiredScripts []string `yaml:"required_scripts"`
	RequiredDeps    []string `yaml:"required_dependencies"`
	RequiredDevDeps []string `yaml:"required_dev_dependencies"`
}

// Load reads and compiles a rule schema document. Any compile failure is fatal
// for the whole run: a half-loaded schema would silently skip checks.
func Load(path string) (*RuleSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Parse(b)
}

// Parse compiles a schema document from raw YAML (JSON is a YAML subset).
func Parse(b []byte) (*RuleSet, error) {
	var d doc
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse schema yaml: %w", err)
	}

	rs := &RuleSet{}
	for _, rf := range d.RequiredFiles {
		if p := strings.TrimSpace(rf.Path); p != "" {
			rs.RequiredFiles = append(rs.RequiredFiles, p)
		}
	}

	for i, r := range d.ForbiddenPatterns {
		cr, err := compileRule(r, i)
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.ID, err)
		}
		rs.Rules = append(rs.Rules, *cr)
	}

	for i, im := range d.RequiredImports {
		if im.AppliesTo == "" {
			return nil, fmt.Errorf("required_imports[%d]: applies_to is required", i)
		}
		if len(im.Require) == 0 {
			return nil, fmt.Errorf("required_imports[%d]: require list is empty", i)
		}
		g, err := CompileGlob(im.AppliesTo)
		if err != nil {
			return nil, fmt.Errorf("required_imports[%d]: applies_to glob: %w", i, err)
		}
		rs.Imports = append(rs.Imports, ImportRule{
			AppliesTo: g,
			Require:   im.Require,
			Severity:  parseSeverity(im.Severity, ir.SevError),
			Index:     i,
		})
	}

	rs.Manifest = ManifestRules{
		Path:                    d.Manifest.Path,
		RequiredScripts:         d.Manifest.RequiredScripts,
		RequiredDependencies:    d.Manifest.RequiredDeps,
		RequiredDevDependencies: d.Manifest.RequiredDevDeps,
	}
	return rs, nil
}

func compileRule(r docRule, idx int) (*Rule, error) {
	if r.ID == "" || r.Pattern == "" {
		return nil, fmt.Errorf("missing required fields (id/pattern)")
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern regex: %w", err)
	}
	cr := &Rule{
		ID:       strings.TrimSpace(r.ID),
		Summary:  r.Summary,
		Severity: parseSeverity(r.Severity, ir.SevError),
		Pattern:  re,
		Index:    idx,
	}
	if r.AppliesTo != "" {
		g, err := CompileGlob(r.AppliesTo)
		if err != nil {
			return nil, fmt.Errorf("applies_to glob: %w", err)
		}
		cr.AppliesTo = g
	}
	for _, ex := range r.Exceptions {
		g, err := CompileGlob(ex)
		if err != nil {
			return nil, fmt.Errorf("exception glob %q: %w", ex, err)
		}
		cr.Exceptions = append(cr.Exceptions, g)
	}
	return cr, nil
}

func parseSeverity(s string, def ir.Severity) ir.Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WARNING", "WARN":
		return ir.SevWarning
	case "ERROR":
		return ir.SevError
	case "CRITICAL":
		return ir.SevCritical
	case "":
		return def
	default:
		return def
	}
}
