package golden

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/codewithboateng/archlint/internal/contracts"
	"github.com/codewithboateng/archlint/internal/ir"
	"github.com/codewithboateng/archlint/internal/registry"
	"github.com/codewithboateng/archlint/internal/rules"
	"github.com/codewithboateng/archlint/internal/scan"
	"github.com/codewithboateng/archlint/internal/schema"
)

const sampleSchema = `
forbidden_patterns:
  - id: NO-HARDCODED-PASSWORD
    summary: hardcoded credentials are forbidden
    pattern: 'password\s*=\s*[''"][^''"]+[''"]'
    severity: error
    exceptions:
      - .env.example
  - id: NO-CONSOLE-LOG
    summary: console logging left in
    pattern: 'console\.log\('
    severity: warning
required_files: [README.md, CODEOWNERS]
manifest:
  path: package.json
  required_scripts: [lint, test]
  required_dependencies: [express]
`

func TestSnapshot_FullPipeline(t *testing.T) {
	dir := t.TempDir()

	// Target repo under inspection
	repo := filepath.Join(dir, "repo")
	writeFile(t, filepath.Join(repo, "src", "app.ts"),
		"const password = \"hunter2\"\nconsole.log(\"boot\")\n")
	writeFile(t, filepath.Join(repo, ".env.example"), "password = \"example\"\n")
	writeFile(t, filepath.Join(repo, "README.md"), "# demo\n")
	writeFile(t, filepath.Join(repo, "package.json"),
		`{"scripts": {"lint": "eslint ."}, "dependencies": {"express": "^4.18.0"}}`)

	// Schema, module registry and connection contracts live outside the scan root
	schemaPath := filepath.Join(dir, "schema.yaml")
	writeFile(t, schemaPath, sampleSchema)

	writeFile(t, filepath.Join(dir, "modules", "auth", "contract.json"),
		`{"name": "auth", "owner": "platform", "status": "active", "interface": {"login": "(user) -> token"}}`)
	writeFile(t, filepath.Join(dir, "modules", "billing.module.yaml"),
		"name: billing\nowner: payments\nstatus: active\n")

	connDoc := func(id, from, to string) string {
		return `{"id": "` + id + `", "from": "` + from + `", "to": "` + to + `",
  "kind": "function-call", "interface": {"call": "x()"}, "version": "1.0.0", "breaking_changes": []}`
	}
	writeFile(t, filepath.Join(dir, "connections", "auth-to-billing.json"), connDoc("auth-to-billing", "auth", "billing"))
	writeFile(t, filepath.Join(dir, "connections", "billing-to-auth.json"), connDoc("billing-to-auth", "billing", "auth"))
	writeFile(t, filepath.Join(dir, "connections", "billing-to-ghost.json"), connDoc("billing-to-ghost", "billing", "ghost"))

	// Scan
	rs, err := schema.Load(schemaPath)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	findings, err := scan.Scan(context.Background(), scan.Options{Root: repo, Workers: 4}, rs)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	// Contracts
	reg, err := registry.LoadDir(filepath.Join(dir, "modules"))
	if err != nil {
		t.Fatalf("load modules: %v", err)
	}
	conns, err := contracts.LoadDir(filepath.Join(dir, "connections"))
	if err != nil {
		t.Fatalf("load connections: %v", err)
	}
	graph, contractErrs := contracts.Build(conns, reg)

	run := &ir.Run{
		Findings:       findings,
		ContractErrors: contractErrs,
		Cycles:         graph.DetectCycles(),
	}
	d := rules.EvaluateRun(run, ir.FailOn{Critical: true, Error: true}, ir.SevWarning)
	run.Summary = ir.Summary{OK: d.OK, Counts: d.CountsJSON()}

	got := normalize(run)
	want := runLite{
		OK:     false,
		Counts: map[string]int{"ERROR": 4, "WARNING": 2},
		Findings: []findingLite{
			{RuleID: "REQUIRED-FILE", Kind: ir.KindRequiredFile, Severity: ir.SevError,
				File: "CODEOWNERS", Message: "required file CODEOWNERS is missing"},
			{RuleID: "MANIFEST", Kind: ir.KindManifest, Severity: ir.SevError,
				File: "package.json", Message: `manifest is missing required script "test"`, Evidence: "test"},
			{RuleID: "NO-CONSOLE-LOG", Kind: ir.KindPattern, Severity: ir.SevWarning,
				File: "src/app.ts", Line: 2, Message: "console logging left in", Evidence: "console.log("},
			{RuleID: "NO-HARDCODED-PASSWORD", Kind: ir.KindPattern, Severity: ir.SevError,
				File: "src/app.ts", Line: 1, Message: "hardcoded credentials are forbidden",
				Evidence: `password = "hunter2"`},
		},
		ContractErrors: []contractErrLite{
			{ConnectionID: "billing-to-ghost", Module: "ghost", Kind: ir.ErrDanglingReference,
				Severity: ir.SevError, Field: "to"},
		},
		Cycles: []ir.Cycle{
			{Modules: []string{"auth", "billing"}, Connections: []string{"auth-to-billing", "billing-to-auth"}},
		},
	}

	if !reflect.DeepEqual(got, want) {
		gb, _ := json.MarshalIndent(got, "", "  ")
		wb, _ := json.MarshalIndent(want, "", "  ")
		t.Fatalf("snapshot mismatch\n--- got ---\n%s\n--- want ---\n%s", gb, wb)
	}
}

type runLite struct {
	OK             bool              `json:"ok"`
	Counts         map[string]int    `json:"counts"`
	Findings       []findingLite     `json:"findings"`
	ContractErrors []contractErrLite `json:"contract_errors"`
	Cycles         []ir.Cycle        `json:"cycles"`
}

type findingLite struct {
	RuleID   string      `json:"rule_id"`
	Kind     string      `json:"kind"`
	Severity ir.Severity `json:"severity"`
	File     string      `json:"file"`
	Line     int         `json:"line,omitempty"`
	Message  string      `json:"message"`
	Evidence string      `json:"evidence,omitempty"`
}

type contractErrLite struct {
	ConnectionID string      `json:"connection_id"`
	Module       string      `json:"module"`
	Kind         string      `json:"kind"`
	Severity     ir.Severity `json:"severity"`
	Field        string      `json:"field"`
}

// normalize drops volatile fields (hash ids, free-form error text) so the
// snapshot only pins behavior we promise to keep stable.
func normalize(run *ir.Run) runLite {
	out := runLite{
		OK:     run.Summary.OK,
		Counts: run.Summary.Counts,
		Cycles: run.Cycles,
	}
	for _, f := range run.Findings {
		out.Findings = append(out.Findings, findingLite{
			RuleID:   f.RuleID,
			Kind:     f.Kind,
			Severity: f.Severity,
			File:     f.File,
			Line:     f.Line,
			Message:  f.Message,
			Evidence: f.Evidence,
		})
	}
	for _, ce := range run.ContractErrors {
		out.ContractErrors = append(out.ContractErrors, contractErrLite{
			ConnectionID: ce.ConnectionID,
			Module:       ce.Module,
			Kind:         ce.Kind,
			Severity:     ce.Severity,
			Field:        ce.Field,
		})
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
