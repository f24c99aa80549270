// Package contracts parses declared connection documents into a directed
// module graph, validates them against the registry, and detects dependency
// cycles. Validation is exhaustive: every document is processed even after one
// produces errors, so a single run surfaces the complete defect list.
package contracts

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

// Connection is one declared directed relationship between two modules.
// Interface is an opaque payload; the engine validates presence, not shape.
type Connection struct {
	ID              string   `json:"id" yaml:"id"`
	From            string   `json:"from" yaml:"from"`
	To              string   `json:"to" yaml:"to"`
	Kind            string   `json:"kind" yaml:"kind"` // function-call|event|data-flow
	Interface       any      `json:"interface" yaml:"interface"`
	Version         string   `json:"version" yaml:"version"`
	BreakingChanges []string `json:"breaking_changes" yaml:"breaking_changes"`

	// HasBreakingChanges distinguishes an absent ledger from an empty one.
	HasBreakingChanges bool `json:"-" yaml:"-"`
}

// connDoc mirrors Connection with pointer fields so absence is observable.
type connDoc struct {
	ID              string    `json:"id" yaml:"id"`
	From            string    `json:"from" yaml:"from"`
	To              string    `json:"to" yaml:"to"`
	Kind            string    `json:"kind" yaml:"kind"`
	Interface       any       `json:"interface" yaml:"interface"`
	Version         string    `json:"version" yaml:"version"`
	BreakingChanges *[]string `json:"breaking_changes" yaml:"breaking_changes"`
}

// LoadDir reads every connection document (*.json, *.yaml, *.yml) under dir.
// A document that fails to parse at all is fatal; field-level defects are the
// builder's job so they land in the report instead.
func LoadDir(dir string) ([]Connection, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".json", ".yaml", ".yml":
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk connections dir: %w", err)
	}
	sort.Strings(paths)

	var out []Connection
	for _, p := range paths {
		c, err := loadConnection(p)
		if err != nil {
			return nil, fmt.Errorf("connection doc %s: %w", p, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func loadConnection(path string) (Connection, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Connection{}, err
	}
	var doc connDoc
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := json.Unmarshal(b, &doc); err != nil {
			return Connection{}, fmt.Errorf("parse json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return Connection{}, fmt.Errorf("parse yaml: %w", err)
		}
	}
	c := Connection{
		ID:        strings.TrimSpace(doc.ID),
		From:      strings.TrimSpace(doc.From),
		To:        strings.TrimSpace(doc.To),
		Kind:      strings.ToLower(strings.TrimSpace(doc.Kind)),
		Interface: doc.Interface,
		Version:   strings.TrimSpace(doc.Version),
	}
	if doc.BreakingChanges != nil {
		c.BreakingChanges = *doc.BreakingChanges
		c.HasBreakingChanges = true
	}
	if c.ID == "" {
		// Fall back to the file name so every defect is addressable.
		c.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return c, nil
}
