package registry

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// contractDoc is the on-disk module contract. The contract.json /
// dependencies.json pairing comes from the collaborator scaffolding tool;
// flat *.yaml module documents are accepted too.
type contractDoc struct {
	Name         string            `json:"name" yaml:"name"`
	Owner        string            `json:"owner" yaml:"owner"`
	Status       string            `json:"status" yaml:"status"`
	Interface    map[string]string `json:"interface" yaml:"interface"`
	Dependencies []string          `json:"dependencies" yaml:"dependencies"`
}

type depsDoc struct {
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
}

// LoadDir registers every module document under dir. A failure to read or
// parse any document is fatal: the registry is the ground truth the contract
// pipeline resolves against, and a partial registry would turn real modules
// into dangling references.
func LoadDir(dir string) (*Registry, error) {
	r := New()
	var docs []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch {
		case d.Name() == "contract.json",
			strings.HasSuffix(d.Name(), ".module.yaml"),
			strings.HasSuffix(d.Name(), ".module.yml"):
			docs = append(docs, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk modules dir: %w", err)
	}
	sort.Strings(docs)

	for _, p := range docs {
		m, err := loadModule(p)
		if err != nil {
			return nil, fmt.Errorf("module doc %s: %w", p, err)
		}
		if err := r.Register(m); err != nil {
			return nil, fmt.Errorf("module doc %s: %w", p, err)
		}
	}
	return r, nil
}

func loadModule(path string) (Module, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Module{}, err
	}
	var doc contractDoc
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(b, &doc); err != nil {
			return Module{}, fmt.Errorf("parse json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return Module{}, fmt.Errorf("parse yaml: %w", err)
		}
	}
	m := Module{
		Name:         strings.TrimSpace(doc.Name),
		Owner:        strings.TrimSpace(doc.Owner),
		Status:       strings.ToLower(strings.TrimSpace(doc.Status)),
		Interface:    doc.Interface,
		Dependencies: doc.Dependencies,
	}
	if m.Name == "" {
		return Module{}, fmt.Errorf("missing name")
	}
	// Sibling dependencies.json supplements a contract.json.
	if filepath.Base(path) == "contract.json" {
		if db, err := os.ReadFile(filepath.Join(filepath.Dir(path), "dependencies.json")); err == nil {
			var dd depsDoc
			if err := json.Unmarshal(db, &dd); err != nil {
				return Module{}, fmt.Errorf("parse dependencies.json: %w", err)
			}
			if len(dd.Dependencies) > 0 {
				m.Dependencies = dd.Dependencies
			}
		}
	}
	return m, nil
}
