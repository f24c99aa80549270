package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/codewithboateng/archlint/internal/ir"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.CreateSchema(); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func testRun(id string, ok bool) *ir.Run {
	return &ir.Run{
		ID:        id,
		StartedAt: time.Now().UTC(),
		Source:    "/repo",
		IRVersion: ir.Version,
		Findings: []ir.Finding{
			{ID: "f1", RuleID: "NO-HARDCODED-PASSWORD", Kind: ir.KindPattern,
				Severity: ir.SevError, File: "config.ts", Line: 3, Message: "m", Evidence: "e"},
			{ID: "f2", RuleID: "NO-CONSOLE-LOG", Kind: ir.KindPattern,
				Severity: ir.SevWarning, File: "app.ts", Line: 1, Message: "m"},
		},
		ContractErrors: []ir.ContractError{
			{ConnectionID: "c1", Module: "ghost", Kind: ir.ErrDanglingReference,
				Severity: ir.SevError, Field: "to", Message: "m"},
		},
		Summary: ir.Summary{OK: ok, Counts: map[string]int{"ERROR": 2, "WARNING": 1}},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	db := openTestDB(t)
	run := testRun("run-1", false)
	if err := db.SaveRun(run); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.LoadRun("run-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != "run-1" || got.Summary.OK || len(got.Findings) != 2 || len(got.ContractErrors) != 1 {
		t.Fatalf("round trip lost data: %+v", got)
	}

	// saving again must replace, not duplicate
	run.Findings = run.Findings[:1]
	if err := db.SaveRun(run); err != nil {
		t.Fatalf("resave: %v", err)
	}
	fs, err := db.ListFindings("run-1", "WARNING")
	if err != nil {
		t.Fatalf("list findings: %v", err)
	}
	if len(fs) != 1 {
		t.Fatalf("findings after resave = %d, want 1", len(fs))
	}
}

func TestListFindingsSeverityFloor(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveRun(testRun("run-1", false)); err != nil {
		t.Fatal(err)
	}
	fs, err := db.ListFindings("run-1", "ERROR")
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 1 || fs[0].Severity != ir.SevError {
		t.Fatalf("severity floor not applied: %+v", fs)
	}
}

func TestListRunsAndLatest(t *testing.T) {
	db := openTestDB(t)
	a := testRun("run-a", false)
	a.StartedAt = time.Now().UTC().Add(-time.Hour)
	b := testRun("run-b", true)
	for _, r := range []*ir.Run{a, b} {
		if err := db.SaveRun(r); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := db.ListRuns(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].ID != "run-b" {
		t.Fatalf("runs = %+v, want run-b first", rows)
	}
	if !rows[0].OK || rows[0].Findings != 2 {
		t.Errorf("row detail = %+v", rows[0])
	}

	latest, err := db.LoadLatestRun()
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != "run-b" {
		t.Errorf("latest = %s, want run-b", latest.ID)
	}

	ok, err := db.HasRun("run-a")
	if err != nil || !ok {
		t.Errorf("HasRun(run-a) = %v, %v", ok, err)
	}
	ok, _ = db.HasRun("nope")
	if ok {
		t.Error("HasRun(nope) = true")
	}
}

func TestWaiverLifecycle(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreateWaiver("NO-HARDCODED-PASSWORD", "config.ts", "", "legacy config",
		"admin", time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// expired waiver never shows up as active
	if _, err := db.CreateWaiver("NO-CONSOLE-LOG", "", "", "stale",
		"admin", time.Now().Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	active, err := db.ListWaivers(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].RuleID != "NO-HARDCODED-PASSWORD" {
		t.Fatalf("active waivers = %+v", active)
	}

	if err := db.RevokeWaiver(id, "admin"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	active, _ = db.ListWaivers(true)
	if len(active) != 0 {
		t.Fatalf("revoked waiver still active: %+v", active)
	}
	all, _ := db.ListWaivers(false)
	if len(all) != 2 {
		t.Fatalf("history lost: %+v", all)
	}
}

func TestUserAndSession(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreateUser("ama", "hash", "admin")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	u, hash, err := db.GetUserByUsername("ama")
	if err != nil || u.ID != id || u.Role != "admin" || hash != "hash" {
		t.Fatalf("get user = %+v, %q, %v", u, hash, err)
	}

	if err := db.CreateSession(id, "tok", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	s, err := db.GetSession("tok")
	if err != nil || s.ID != id {
		t.Fatalf("get session = %+v, %v", s, err)
	}
	if err := db.DeleteSession("tok"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetSession("tok"); err == nil {
		t.Error("deleted session still resolves")
	}
}
