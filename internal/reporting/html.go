package reporting

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/codewithboateng/archlint/internal/ir"
)

func WriteHTML(runID, outDir string, run *ir.Run) (string, error) {
	path := filepath.Join(outDir, runID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Head + styles
	fmt.Fprintf(f, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", html.EscapeString(runID))
	fmt.Fprint(f, "<style>body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4} table{border-collapse:collapse;margin:8px 0} td,th{border:1px solid #ddd;padding:6px} h1,h2{margin:6px 0 4px} .dim{color:#666} .mono{font-family:ui-monospace,Menlo,Consolas,monospace} .ok{color:#0a7d24} .fail{color:#b00020}</style>")
	fmt.Fprint(f, "</head><body>")

	// Title + summary
	fmt.Fprintf(f, "<h1>archlint report – <span class='mono'>%s</span></h1>", html.EscapeString(runID))
	verdict := "<span class='ok'>PASS</span>"
	if !run.Summary.OK {
		verdict = "<span class='fail'>FAIL</span>"
	}
	fmt.Fprintf(f, "<p>Result: %s &nbsp; Findings: %d &nbsp; Contract errors: %d &nbsp; Cycles: %d</p>",
		verdict, len(run.Findings), len(run.ContractErrors), len(run.Cycles))
	if len(run.Summary.Counts) > 0 {
		var parts []string
		for _, sev := range []string{string(ir.SevCritical), string(ir.SevError), string(ir.SevWarning)} {
			if n := run.Summary.Counts[sev]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", sev, n))
			}
		}
		fmt.Fprintf(f, "<p class='dim'>%s</p>", html.EscapeString(strings.Join(parts, " ")))
	}
	if run.Source != "" {
		fmt.Fprintf(f, "<p class='dim'>Source: <span class='mono'>%s</span></p>", html.EscapeString(run.Source))
	}

	// Findings
	if len(run.Findings) > 0 {
		fmt.Fprint(f, "<h2>Findings</h2><table><tr><th>Severity</th><th>Rule</th><th>Kind</th><th>File</th><th>Line</th><th>Message</th></tr>")
		for _, fd := range run.Findings {
			line := ""
			if fd.Line > 0 {
				line = fmt.Sprintf("%d", fd.Line)
			}
			fmt.Fprintf(f, "<tr><td>%s</td><td>%s</td><td>%s</td><td class='mono'>%s</td><td>%s</td><td>%s</td></tr>",
				html.EscapeString(string(fd.Severity)),
				html.EscapeString(fd.RuleID),
				html.EscapeString(fd.Kind),
				html.EscapeString(fd.File),
				line,
				html.EscapeString(fd.Message),
			)
		}
		fmt.Fprint(f, "</table>")
	} else {
		fmt.Fprint(f, "<h2>Findings</h2><p class='dim'>No findings.</p>")
	}

	// Contract errors
	if len(run.ContractErrors) > 0 {
		fmt.Fprint(f, "<h2>Contract Errors</h2><table><tr><th>Severity</th><th>Kind</th><th>Connection</th><th>Field</th><th>Message</th></tr>")
		for _, ce := range run.ContractErrors {
			fmt.Fprintf(f, "<tr><td>%s</td><td>%s</td><td class='mono'>%s</td><td>%s</td><td>%s</td></tr>",
				html.EscapeString(string(ce.Severity)),
				html.EscapeString(ce.Kind),
				html.EscapeString(ce.ConnectionID),
				html.EscapeString(ce.Field),
				html.EscapeString(ce.Message),
			)
		}
		fmt.Fprint(f, "</table>")
	}

	// Cycles
	if len(run.Cycles) > 0 {
		fmt.Fprint(f, "<h2>Dependency Cycles</h2><table><tr><th>Modules</th><th>Connections</th></tr>")
		for _, c := range run.Cycles {
			fmt.Fprintf(f, "<tr><td class='mono'>%s</td><td class='mono'>%s</td></tr>",
				html.EscapeString(strings.Join(c.Modules, " -> ")),
				html.EscapeString(strings.Join(c.Connections, ", ")),
			)
		}
		fmt.Fprint(f, "</table>")
	}

	fmt.Fprint(f, "</body></html>")
	return path, nil
}
