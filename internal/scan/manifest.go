package scan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codewithboateng/archlint/internal/ir"
	"github.com/codewithboateng/archlint/internal/schema"
)

// manifestDoc is the subset of a package manifest the rules constrain. The
// manifest itself is produced by external tooling; we only read it.
type manifestDoc struct {
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func checkManifest(root string, mr schema.ManifestRules) []ir.Finding {
	if mr.Path == "" {
		return nil
	}
	p := filepath.Join(root, filepath.FromSlash(mr.Path))
	b, err := os.ReadFile(p)
	if err != nil {
		return []ir.Finding{{
			ID:       makeID("MANIFEST", mr.Path, 0, "missing"),
			RuleID:   "MANIFEST",
			Kind:     ir.KindManifest,
			Severity: ir.SevError,
			File:     mr.Path,
			Message:  fmt.Sprintf("package manifest %s is unreadable: %v", mr.Path, err),
		}}
	}
	var m manifestDoc
	if err := json.Unmarshal(b, &m); err != nil {
		return []ir.Finding{{
			ID:       makeID("MANIFEST", mr.Path, 0, "malformed"),
			RuleID:   "MANIFEST",
			Kind:     ir.KindManifest,
			Severity: ir.SevError,
			File:     mr.Path,
			Message:  fmt.Sprintf("package manifest %s is not valid JSON: %v", mr.Path, err),
		}}
	}

	var out []ir.Finding
	miss := func(section, key string) {
		out = append(out, ir.Finding{
			ID:       makeID("MANIFEST", mr.Path, 0, section+":"+key),
			RuleID:   "MANIFEST",
			Kind:     ir.KindManifest,
			Severity: ir.SevError,
			File:     mr.Path,
			Message:  fmt.Sprintf("manifest is missing required %s %q", section, key),
			Evidence: key,
		})
	}
	for _, s := range mr.RequiredScripts {
		if _, ok := m.Scripts[s]; !ok {
			miss("script", s)
		}
	}
	for _, d := range mr.RequiredDependencies {
		if _, ok := m.Dependencies[d]; !ok {
			miss("dependency", d)
		}
	}
	for _, d := range mr.RequiredDevDependencies {
		if _, ok := m.DevDependencies[d]; !ok {
			miss("devDependency", d)
		}
	}
	return out
}
