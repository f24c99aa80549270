package golden

import (
	"testing"

	"github.com/codewithboateng/archlint/internal/schema"
)

// The shipped sample schema must always compile; it is the first thing a new
// user points the checker at.
func TestSampleSchema_Compiles(t *testing.T) {
	rs, err := schema.Load("../../configs/rules.sample.yaml")
	if err != nil {
		t.Fatalf("load sample schema: %v", err)
	}

	if len(rs.Rules) != 4 {
		t.Fatalf("rules = %d, want 4", len(rs.Rules))
	}
	if len(rs.RequiredFiles) != 3 {
		t.Fatalf("required files = %d, want 3", len(rs.RequiredFiles))
	}
	if len(rs.Imports) != 1 {
		t.Fatalf("import rules = %d, want 1", len(rs.Imports))
	}
	if rs.Manifest.Path != "package.json" {
		t.Fatalf("manifest path = %q", rs.Manifest.Path)
	}
}

func TestSampleSchema_ScopingAndExceptions(t *testing.T) {
	rs, err := schema.Load("../../configs/rules.sample.yaml")
	if err != nil {
		t.Fatalf("load sample schema: %v", err)
	}
	byID := map[string]*schema.Rule{}
	for i := range rs.Rules {
		byID[rs.Rules[i].ID] = &rs.Rules[i]
	}

	pw := byID["NO-HARDCODED-PASSWORD"]
	if pw == nil {
		t.Fatal("NO-HARDCODED-PASSWORD missing from sample")
	}
	if !pw.Applies("src/config.ts") {
		t.Error("unscoped rule must apply everywhere")
	}
	if pw.Applies(".env.example") || pw.Applies("test/fixtures/creds.ts") {
		t.Error("exceptions not honored")
	}

	anyRule := byID["NO-ANY-TYPE"]
	if anyRule == nil {
		t.Fatal("NO-ANY-TYPE missing from sample")
	}
	if !anyRule.Applies("src/app.ts") {
		t.Error("applies_to scope rejected an in-scope file")
	}
	if anyRule.Applies("tools/gen.ts") || anyRule.Applies("src/generated/client.ts") {
		t.Error("scope or exception leaked")
	}
}
