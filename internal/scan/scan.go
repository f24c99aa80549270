// Package scan walks a file tree and evaluates a compiled rule set against it.
// Scanning is best-effort: a single unreadable or oversized file degrades to a
// scan-error finding and never aborts the run.
package scan

import (
	"context"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codewithboateng/archlint/internal/ir"
	"github.com/codewithboateng/archlint/internal/schema"
)

type Options struct {
	Root        string
	Ignore      []string // path globs excluded from traversal entirely
	MaxFileSize int64    // bytes; files above this degrade to scan-error
	Workers     int      // 0 = GOMAXPROCS
}

// Scan evaluates the rule set over every regular file under opts.Root.
// The returned findings are ordered by (file, rule order, offset) so repeated
// runs over unchanged inputs produce identical sequences regardless of worker
// scheduling. Only a failure to traverse the root itself is returned as an
// error; per-file failures surface as findings.
func Scan(ctx context.Context, opts Options, rs *schema.RuleSet) ([]ir.Finding, error) {
	root := filepath.Clean(opts.Root)
	if fi, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("scan root %s: not a directory", root)
	}

	ignore, err := compileIgnore(opts.Ignore)
	if err != nil {
		return nil, err
	}

	files, walkFindings := collectFiles(root, ignore)

	var findings []ir.Finding
	findings = append(findings, requiredFiles(root, rs)...)
	findings = append(findings, checkManifest(root, rs.Manifest)...)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var (
		mu      sync.Mutex
		matched []ir.Finding
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out := scanFile(root, f, opts.MaxFileSize, rs)
			if len(out) == 0 {
				return nil
			}
			mu.Lock()
			matched = append(matched, out...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matched = append(matched, walkFindings...)
	sortFindings(matched)
	return append(findings, matched...), nil
}

func collectFiles(root string, ignore []*schema.Glob) ([]string, []ir.Finding) {
	var files []string
	var findings []ir.Finding
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			rel := relOf(root, p)
			findings = append(findings, scanError(rel, fmt.Sprintf("cannot traverse: %v", err)))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel := relOf(root, p)
		if rel == "." {
			return nil
		}
		for _, g := range ignore {
			if g.Match(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if d.Type().IsRegular() {
			files = append(files, rel)
		}
		return nil
	})
	sort.Strings(files)
	return files, findings
}

func scanFile(root, rel string, maxSize int64, rs *schema.RuleSet) []ir.Finding {
	// Decide scope before touching the file: a file no rule applies to is never read.
	var rules []*schema.Rule
	for i := range rs.Rules {
		if rs.Rules[i].Applies(rel) {
			rules = append(rules, &rs.Rules[i])
		}
	}
	var imports []*schema.ImportRule
	for i := range rs.Imports {
		if rs.Imports[i].AppliesTo.Match(rel) {
			imports = append(imports, &rs.Imports[i])
		}
	}
	if len(rules) == 0 && len(imports) == 0 {
		return nil
	}

	abs := filepath.Join(root, filepath.FromSlash(rel))
	if maxSize > 0 {
		if fi, err := os.Stat(abs); err == nil && fi.Size() > maxSize {
			return []ir.Finding{scanError(rel, fmt.Sprintf("file exceeds size cap (%d bytes)", fi.Size()))}
		}
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return []ir.Finding{scanError(rel, fmt.Sprintf("unreadable: %v", err))}
	}
	content := string(b)

	var out []ir.Finding
	for _, r := range rules {
		for _, loc := range r.Pattern.FindAllStringIndex(content, -1) {
			line := 1 + strings.Count(content[:loc[0]], "\n")
			ev := content[loc[0]:loc[1]]
			if len(ev) > 120 {
				ev = ev[:120] + "..."
			}
			msg := r.Summary
			if msg == "" {
				msg = "forbidden pattern matched"
			}
			out = append(out, ir.Finding{
				// Offset, not line: two identical matches on one line must not collide.
				ID:       makeID(r.ID, rel, loc[0], ev),
				RuleID:   r.ID,
				Kind:     ir.KindPattern,
				Severity: r.Severity,
				File:     rel,
				Line:     line,
				Message:  msg,
				Evidence: ev,
			})
		}
	}
	for _, im := range imports {
		for _, want := range im.Require {
			if !strings.Contains(content, want) {
				out = append(out, ir.Finding{
					ID:       makeID("REQUIRED-IMPORT", rel, 0, want),
					RuleID:   "REQUIRED-IMPORT",
					Kind:     ir.KindRequiredImport,
					Severity: im.Severity,
					File:     rel,
					Message:  fmt.Sprintf("files matching %s must contain %q", im.AppliesTo, want),
					Evidence: want,
				})
			}
		}
	}
	return out
}

func requiredFiles(root string, rs *schema.RuleSet) []ir.Finding {
	var out []ir.Finding
	for _, rf := range rs.RequiredFiles {
		p := filepath.Join(root, filepath.FromSlash(rf))
		if _, err := os.Stat(p); err != nil {
			out = append(out, ir.Finding{
				ID:       makeID("REQUIRED-FILE", rf, 0, ""),
				RuleID:   "REQUIRED-FILE",
				Kind:     ir.KindRequiredFile,
				Severity: ir.SevError,
				File:     rf,
				Message:  fmt.Sprintf("required file %s is missing", rf),
			})
		}
	}
	return out
}

func scanError(rel, msg string) ir.Finding {
	return ir.Finding{
		ID:       makeID("SCAN-ERROR", rel, 0, msg),
		RuleID:   "SCAN-ERROR",
		Kind:     ir.KindScanError,
		Severity: ir.SevWarning,
		File:     rel,
		Message:  msg,
	}
}

func sortFindings(fs []ir.Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].File != fs[j].File {
			return fs[i].File < fs[j].File
		}
		if fs[i].RuleID != fs[j].RuleID {
			return fs[i].RuleID < fs[j].RuleID
		}
		if fs[i].Line != fs[j].Line {
			return fs[i].Line < fs[j].Line
		}
		return fs[i].ID < fs[j].ID
	})
}

func compileIgnore(globs []string) ([]*schema.Glob, error) {
	var out []*schema.Glob
	for _, g := range globs {
		cg, err := schema.CompileGlob(g)
		if err != nil {
			return nil, fmt.Errorf("ignore glob %q: %w", g, err)
		}
		out = append(out, cg)
	}
	return out, nil
}

func relOf(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

func makeID(ruleID, file string, line int, evidence string) string {
	data := fmt.Sprintf("%s|%s|%d|%s", ruleID, file, line, evidence)
	sum := crc32.ChecksumIEEE([]byte(data))
	return fmt.Sprintf("%s-%08x", ruleID, sum)
}
