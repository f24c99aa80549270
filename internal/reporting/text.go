package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/codewithboateng/archlint/internal/ir"
)

// WriteText renders a run for terminals: every finding grouped by severity,
// then contract errors and cycles, then the verdict. This is what hooks and CI
// see; the exit code elsewhere must agree with the verdict printed here.
func WriteText(w io.Writer, run *ir.Run) {
	order := []ir.Severity{ir.SevCritical, ir.SevError, ir.SevWarning}

	for _, sev := range order {
		var group []ir.Finding
		for _, f := range run.Findings {
			if ir.SeverityRank(f.Severity) == ir.SeverityRank(sev) {
				group = append(group, f)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s (%d)\n", sev, len(group))
		for _, f := range group {
			loc := f.File
			if f.Line > 0 {
				loc = fmt.Sprintf("%s:%d", f.File, f.Line)
			}
			if loc != "" {
				fmt.Fprintf(w, "  %-28s %s  %s\n", f.RuleID, loc, f.Message)
			} else {
				fmt.Fprintf(w, "  %-28s %s\n", f.RuleID, f.Message)
			}
		}
	}

	if len(run.ContractErrors) > 0 {
		fmt.Fprintf(w, "CONTRACT ERRORS (%d)\n", len(run.ContractErrors))
		for _, ce := range run.ContractErrors {
			fmt.Fprintf(w, "  [%s] %-24s %s\n", ce.Severity, ce.Kind, ce.Message)
		}
	}
	if len(run.Cycles) > 0 {
		fmt.Fprintf(w, "CYCLES (%d)\n", len(run.Cycles))
		for _, c := range run.Cycles {
			fmt.Fprintf(w, "  %s\n", strings.Join(append(append([]string{}, c.Modules...), c.Modules[0]), " -> "))
		}
	}

	if run.Summary.OK {
		fmt.Fprintln(w, "Result: PASS")
	} else {
		fmt.Fprintln(w, "Result: FAIL")
	}
}
