package contracts

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/codewithboateng/archlint/internal/ir"
	"github.com/codewithboateng/archlint/internal/registry"
)

// Edge is one validated directed dependency.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	ID   string `json:"id"` // connection id
	Kind string `json:"kind,omitempty"`
}

// Graph is the declared dependency graph, rebuilt on every validation run.
type Graph struct {
	Edges []Edge
	adj   map[string][]string
	// edgeIDs maps from|to to the connection ids declaring that edge.
	edgeIDs map[string][]string
}

var (
	// Loose semver: MAJOR.MINOR.PATCH with optional pre-release/build tail.
	semverRe = regexp.MustCompile(`^v?\d+\.\d+\.\d+([-+][0-9A-Za-z.-]+)?$`)

	validKinds = map[string]bool{"function-call": true, "event": true, "data-flow": true}
)

// Build validates every connection document against the registry and returns
// the resulting graph alongside the complete defect list. A document with a
// malformed or dangling endpoint never contributes an edge; all other defects
// are recorded and the edge is kept.
func Build(conns []Connection, reg *registry.Registry) (*Graph, []ir.ContractError) {
	g := &Graph{adj: map[string][]string{}, edgeIDs: map[string][]string{}}
	var errs []ir.ContractError

	for _, c := range conns {
		errs = append(errs, validateFields(c)...)

		if c.From == "" || c.To == "" {
			continue // already reported as MalformedContract
		}
		ok := true
		for _, end := range []struct{ field, name string }{{"from", c.From}, {"to", c.To}} {
			if _, found := reg.Resolve(end.name); !found {
				errs = append(errs, ir.ContractError{
					ConnectionID: c.ID,
					Module:       end.name,
					Kind:         ir.ErrDanglingReference,
					Severity:     ir.SevError,
					Field:        end.field,
					Message:      fmt.Sprintf("connection %s: %s endpoint %q is not a registered module", c.ID, end.field, end.name),
				})
				ok = false
			}
		}
		if !ok {
			continue
		}

		if c.From == c.To {
			// A self-loop is flagged, not treated as a cycle.
			errs = append(errs, ir.ContractError{
				ConnectionID: c.ID,
				Module:       c.From,
				Kind:         ir.ErrSelfLoop,
				Severity:     ir.SevWarning,
				Message:      fmt.Sprintf("connection %s: module %q depends on itself", c.ID, c.From),
			})
			continue
		}

		g.Edges = append(g.Edges, Edge{From: c.From, To: c.To, ID: c.ID, Kind: c.Kind})
		g.adj[c.From] = append(g.adj[c.From], c.To)
		g.edgeIDs[c.From+"|"+c.To] = append(g.edgeIDs[c.From+"|"+c.To], c.ID)
	}

	for _, tos := range g.adj {
		sort.Strings(tos)
	}
	return g, errs
}

func validateFields(c Connection) []ir.ContractError {
	var errs []ir.ContractError
	malformed := func(field string) {
		errs = append(errs, ir.ContractError{
			ConnectionID: c.ID,
			Kind:         ir.ErrMalformedContract,
			Severity:     ir.SevError,
			Field:        field,
			Message:      fmt.Sprintf("connection %s: required field %q is missing", c.ID, field),
		})
	}
	incomplete := func(field, msg string) {
		errs = append(errs, ir.ContractError{
			ConnectionID: c.ID,
			Kind:         ir.ErrIncompleteContract,
			Severity:     ir.SevWarning,
			Field:        field,
			Message:      fmt.Sprintf("connection %s: %s", c.ID, msg),
		})
	}

	if c.From == "" {
		malformed("from")
	}
	if c.To == "" {
		malformed("to")
	}
	if c.Interface == nil {
		incomplete("interface", "interface description is missing")
	}
	switch {
	case c.Version == "":
		incomplete("version", "version is missing")
	case !semverRe.MatchString(c.Version):
		incomplete("version", fmt.Sprintf("version %q is not semver", c.Version))
	}
	if !c.HasBreakingChanges {
		incomplete("breaking_changes", "breaking-change ledger is missing")
	}
	if c.Kind != "" && !validKinds[c.Kind] {
		incomplete("kind", fmt.Sprintf("unknown connection kind %q", c.Kind))
	}
	return errs
}

// Nodes returns every module name that appears in the graph, sorted.
func (g *Graph) Nodes() []string {
	seen := map[string]bool{}
	for _, e := range g.Edges {
		seen[e.From] = true
		seen[e.To] = true
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// connectionIDs returns the declared ids along a cycle walk.
func (g *Graph) connectionIDs(cycle []string) []string {
	var ids []string
	for i, from := range cycle {
		to := cycle[(i+1)%len(cycle)]
		if got := g.edgeIDs[from+"|"+to]; len(got) > 0 {
			ids = append(ids, got[0])
		}
	}
	return ids
}
