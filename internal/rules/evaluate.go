// Package rules reduces findings and contract errors into a single pass/fail
// decision under a configured failure policy.
package rules

import (
	"github.com/codewithboateng/archlint/internal/ir"
)

// Decision is the aggregate outcome of a run. Counts are reported for every
// severity present regardless of the fail decision, so a pass can still carry
// visible warnings.
type Decision struct {
	OK     bool
	Counts map[ir.Severity]int
}

// Evaluate folds findings under the fail-on policy. Deterministic: the same
// finding multiset and policy always yield the same decision.
func Evaluate(findings []ir.Finding, failOn ir.FailOn) Decision {
	d := Decision{OK: true, Counts: map[ir.Severity]int{}}
	for _, f := range findings {
		bump(&d, f.Severity, failOn)
	}
	return d
}

// EvaluateRun extends Evaluate over a whole run: contract errors count with
// their own severity, and each cycle counts once at cycleSev (warning by
// default, promotable to error by policy).
func EvaluateRun(run *ir.Run, failOn ir.FailOn, cycleSev ir.Severity) Decision {
	d := Evaluate(run.Findings, failOn)
	for _, ce := range run.ContractErrors {
		bump(&d, ce.Severity, failOn)
	}
	if cycleSev == "" {
		cycleSev = ir.SevWarning
	}
	for range run.Cycles {
		bump(&d, cycleSev, failOn)
	}
	return d
}

func bump(d *Decision, sev ir.Severity, failOn ir.FailOn) {
	sev = canon(sev)
	d.Counts[sev]++
	if enabled(sev, failOn) {
		d.OK = false
	}
}

func canon(s ir.Severity) ir.Severity {
	switch ir.SeverityRank(s) {
	case 3:
		return ir.SevCritical
	case 2:
		return ir.SevError
	default:
		return ir.SevWarning
	}
}

func enabled(s ir.Severity, failOn ir.FailOn) bool {
	switch s {
	case ir.SevCritical:
		return failOn.Critical
	case ir.SevError:
		return failOn.Error
	default:
		return failOn.Warning
	}
}

// CountsJSON renders counts with string keys for the report payload.
func (d Decision) CountsJSON() map[string]int {
	out := make(map[string]int, len(d.Counts))
	for k, v := range d.Counts {
		out[string(k)] = v
	}
	return out
}
