package ir

import (
	"strings"
	"time"
)

const Version = "1.0"

// Severity classifies a finding or contract error. Ordering: WARNING < ERROR < CRITICAL.
type Severity string

const (
	SevWarning  Severity = "WARNING"
	SevError    Severity = "ERROR"
	SevCritical Severity = "CRITICAL"
)

func SeverityRank(s Severity) int {
	switch Severity(strings.ToUpper(strings.TrimSpace(string(s)))) {
	case SevCritical:
		return 3
	case SevError:
		return 2
	default:
		return 1 // WARNING or unknown → WARNING
	}
}

// Finding kinds.
const (
	KindPattern        = "pattern"
	KindRequiredFile   = "required-file"
	KindRequiredImport = "required-import"
	KindManifest       = "manifest"
	KindScanError      = "scan-error"
)

// Contract error kinds.
const (
	ErrMalformedContract  = "MalformedContract"
	ErrIncompleteContract = "IncompleteContract"
	ErrDanglingReference  = "DanglingModuleReference"
	ErrDuplicateModule    = "DuplicateModuleError"
	ErrSelfLoop           = "SelfLoop"
)

// Run is one complete validation run: the scan pipeline output, the contract
// pipeline output, or both merged. It is the unit of persistence and reporting.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Source    string    `json:"source,omitempty"`
	IRVersion string    `json:"ir_version,omitempty"`

	Context Context `json:"context"`

	Findings       []Finding       `json:"findings,omitempty"`
	ContractErrors []ContractError `json:"contract_errors,omitempty"`
	Cycles         []Cycle         `json:"cycles,omitempty"`

	Summary Summary `json:"summary"`
}

// Context records the inputs that shaped a run, for reproducibility.
type Context struct {
	SchemaPath     string `json:"schema_path,omitempty"`
	ModulesDir     string `json:"modules_dir,omitempty"`
	ConnectionsDir string `json:"connections_dir,omitempty"`
	FailOn         FailOn `json:"fail_on"`
	CycleSeverity  string `json:"cycle_severity,omitempty"`
	WaivedCount    int    `json:"waived_count,omitempty"`
}

// FailOn selects which severities cause a run to fail.
type FailOn struct {
	Critical bool `json:"critical"`
	Error    bool `json:"error"`
	Warning  bool `json:"warning"`
}

// Summary is the aggregated decision over a run.
type Summary struct {
	OK     bool           `json:"ok"`
	Counts map[string]int `json:"counts,omitempty"`
}

// Finding is one concrete rule violation (or scan degradation) at a file location.
type Finding struct {
	ID       string   `json:"id"`
	RuleID   string   `json:"rule_id"`
	Kind     string   `json:"kind"`
	Severity Severity `json:"severity"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"` // 1-based; 0 = not line-addressable
	Message  string   `json:"message"`
	Evidence string   `json:"evidence,omitempty"`
}

// ContractError is one structural defect in a module or connection document.
type ContractError struct {
	ConnectionID string   `json:"connection_id,omitempty"`
	Module       string   `json:"module,omitempty"`
	Kind         string   `json:"kind"`
	Severity     Severity `json:"severity"`
	Field        string   `json:"field,omitempty"`
	Message      string   `json:"message"`
}

// Cycle is a closed directed loop of module names. Modules holds the loop in
// walk order without repeating the closing node; Connections holds the ids of
// the edges that form it, where declared.
type Cycle struct {
	Modules     []string `json:"modules"`
	Connections []string `json:"connections,omitempty"`
}
