package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/codewithboateng/archlint/internal/api"
	"github.com/codewithboateng/archlint/internal/contracts"
	"github.com/codewithboateng/archlint/internal/ir"
	"github.com/codewithboateng/archlint/internal/registry"
	"github.com/codewithboateng/archlint/internal/reporting"
	"github.com/codewithboateng/archlint/internal/rules"
	"github.com/codewithboateng/archlint/internal/scan"
	"github.com/codewithboateng/archlint/internal/schema"
	"github.com/codewithboateng/archlint/internal/security"
	"github.com/codewithboateng/archlint/internal/shared"
	"github.com/codewithboateng/archlint/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "check":
		checkCmd(os.Args[2:])
	case "contracts":
		contractsCmd(os.Args[2:])
	case "verify":
		verifyCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "diff":
		diffCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	case "user":
		userCmd(os.Args[2:])
	case "version":
		fmt.Println("archlint – architecture conformance checker, IR:", ir.Version)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `archlint – Architecture Conformance Checker

Usage:
  archlint check     --path <tree> --schema <rules.yaml> [--out <dir>] [--db ./archlint.db] [--save] [--fail-on-warning] [--config ./configs/archlint.yaml]
  archlint contracts --modules <dir> --connections <dir> [--out <dir>] [--db ./archlint.db] [--save] [--config ...]
  archlint verify    --path <tree> --schema <rules.yaml> --modules <dir> --connections <dir> [--save] [--config ...]
  archlint report    --run <run-id> --out <reports-dir> [--db ./archlint.db]
  archlint diff      --base <run-id> --head <run-id> --out <reports-dir> [--db ./archlint.db]
  archlint serve     [--addr :8080] [--db ./archlint.db] [--config ...]
  archlint user add  --username <name> --password <pw> [--role viewer] [--db ./archlint.db]
  archlint version

Exit codes: 0 = pass, 1 = fail or fatal load error, 2 = usage error.
`)
}

// pipelineFlags are the knobs shared by check/contracts/verify.
type pipelineFlags struct {
	fs            *flag.FlagSet
	configPath    *string
	inPath        *string
	schemaPath    *string
	modulesDir    *string
	connsDir      *string
	outDir        *string
	dbPath        *string
	save          *bool
	failOnWarning *bool
}

func newPipelineFlags(name string) *pipelineFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &pipelineFlags{
		fs:            fs,
		configPath:    fs.String("config", "", "Path to YAML config (optional)"),
		inPath:        fs.String("path", "", "Path to the file tree to scan"),
		schemaPath:    fs.String("schema", "", "Path to the rule schema document"),
		modulesDir:    fs.String("modules", "", "Directory of module contract documents"),
		connsDir:      fs.String("connections", "", "Directory of connection documents"),
		outDir:        fs.String("out", "", "Output directory for reports"),
		dbPath:        fs.String("db", "", "SQLite database path"),
		save:          fs.Bool("save", false, "Persist the run to the database"),
		failOnWarning: fs.Bool("fail-on-warning", false, "Treat warnings as failures"),
	}
}

// resolve applies flags > config > defaults precedence.
func (pf *pipelineFlags) resolve(cfg shared.Config) shared.Config {
	if *pf.inPath == "" {
		*pf.inPath = cfg.Scan.Root
	}
	if *pf.schemaPath == "" {
		*pf.schemaPath = cfg.Scan.Schema
	}
	if *pf.modulesDir == "" {
		*pf.modulesDir = cfg.Contracts.ModulesDir
	}
	if *pf.connsDir == "" {
		*pf.connsDir = cfg.Contracts.ConnectionsDir
	}
	if *pf.outDir == "" {
		*pf.outDir = cfg.Reporting.OutDir
	}
	if *pf.dbPath == "" {
		*pf.dbPath = cfg.Database.DSN
	}
	if *pf.failOnWarning {
		cfg.FailOn.Warning = true
	}
	return cfg
}

func checkCmd(args []string) {
	pf := newPipelineFlags("check")
	_ = pf.fs.Parse(args)

	cfg, _ := shared.LoadConfig(*pf.configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)
	cfg = pf.resolve(cfg)

	if *pf.inPath == "" || *pf.schemaPath == "" {
		fmt.Fprintln(os.Stderr, "check: --path and --schema (or scan.root / scan.schema in config) are required")
		os.Exit(2)
	}

	run := newRun(*pf.inPath, cfg)
	if !doScan(&run, *pf.inPath, *pf.schemaPath, *pf.dbPath, cfg) {
		os.Exit(1)
	}
	finishRun(&run, cfg, pf)
}

func contractsCmd(args []string) {
	pf := newPipelineFlags("contracts")
	_ = pf.fs.Parse(args)

	cfg, _ := shared.LoadConfig(*pf.configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)
	cfg = pf.resolve(cfg)

	if *pf.modulesDir == "" || *pf.connsDir == "" {
		fmt.Fprintln(os.Stderr, "contracts: --modules and --connections (or contracts.* in config) are required")
		os.Exit(2)
	}

	run := newRun(*pf.modulesDir, cfg)
	if !doContracts(&run, *pf.modulesDir, *pf.connsDir, cfg) {
		os.Exit(1)
	}
	finishRun(&run, cfg, pf)
}

func verifyCmd(args []string) {
	pf := newPipelineFlags("verify")
	_ = pf.fs.Parse(args)

	cfg, _ := shared.LoadConfig(*pf.configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)
	cfg = pf.resolve(cfg)

	if *pf.inPath == "" || *pf.schemaPath == "" || *pf.modulesDir == "" || *pf.connsDir == "" {
		fmt.Fprintln(os.Stderr, "verify: --path, --schema, --modules and --connections are required")
		os.Exit(2)
	}

	// Both pipelines feed one merged run; either fatal load error aborts.
	run := newRun(*pf.inPath, cfg)
	if !doScan(&run, *pf.inPath, *pf.schemaPath, *pf.dbPath, cfg) {
		os.Exit(1)
	}
	if !doContracts(&run, *pf.modulesDir, *pf.connsDir, cfg) {
		os.Exit(1)
	}
	finishRun(&run, cfg, pf)
}

func newRun(source string, cfg shared.Config) ir.Run {
	return ir.Run{
		ID:        fmt.Sprintf("run-%d", time.Now().Unix()),
		StartedAt: time.Now().UTC(),
		Source:    source,
		IRVersion: ir.Version,
		Context: ir.Context{
			FailOn: ir.FailOn{
				Critical: cfg.FailOn.Critical,
				Error:    cfg.FailOn.Error,
				Warning:  cfg.FailOn.Warning,
			},
			CycleSeverity: cfg.Contracts.CycleSeverity,
		},
	}
}

// doScan loads the schema and runs the pattern pipeline into run. Returns
// false on a fatal load error (the only thing that aborts a run).
func doScan(run *ir.Run, root, schemaPath, dbPath string, cfg shared.Config) bool {
	rs, err := schema.Load(schemaPath)
	if err != nil {
		slog.Error("fatal: cannot load rule schema", "err", err)
		return false
	}
	run.Context.SchemaPath = schemaPath

	findings, err := scan.Scan(context.Background(), scan.Options{
		Root:        root,
		Ignore:      cfg.Scan.Ignore,
		MaxFileSize: cfg.Scan.MaxFileSizeKB * 1024,
		Workers:     cfg.Scan.Workers,
	}, rs)
	if err != nil {
		slog.Error("fatal: scan failed", "err", err)
		return false
	}

	// Waivers live in the DB; no DB, no waivers.
	if dbPath != "" {
		if db, err := storage.OpenSQLite(dbPath); err == nil {
			if err := db.CreateSchema(); err == nil {
				if ws, err := db.ListWaivers(true); err == nil && len(ws) > 0 {
					var waived int
					findings, waived = rules.ApplyWaivers(findings, ws)
					run.Context.WaivedCount = waived
				}
			}
			_ = db.Close()
		}
	}
	run.Findings = append(run.Findings, findings...)
	return true
}

// doContracts loads the registry and connection documents and runs the graph
// pipeline into run.
func doContracts(run *ir.Run, modulesDir, connsDir string, cfg shared.Config) bool {
	reg, err := registry.LoadDir(modulesDir)
	if err != nil {
		slog.Error("fatal: cannot load module registry", "err", err)
		return false
	}
	conns, err := contracts.LoadDir(connsDir)
	if err != nil {
		slog.Error("fatal: cannot load connection documents", "err", err)
		return false
	}
	run.Context.ModulesDir = modulesDir
	run.Context.ConnectionsDir = connsDir

	graph, cerrs := contracts.Build(conns, reg)
	run.ContractErrors = append(run.ContractErrors, cerrs...)
	run.Cycles = append(run.Cycles, graph.DetectCycles()...)
	return true
}

// finishRun aggregates, reports, optionally persists, and exits per decision.
func finishRun(run *ir.Run, cfg shared.Config, pf *pipelineFlags) {
	cycleSev := ir.SevWarning
	if ir.SeverityRank(ir.Severity(cfg.Contracts.CycleSeverity)) >= 2 {
		cycleSev = ir.SevError
	}
	dec := rules.EvaluateRun(run, run.Context.FailOn, cycleSev)
	run.Summary = ir.Summary{OK: dec.OK, Counts: dec.CountsJSON()}

	if err := os.MkdirAll(*pf.outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "cannot create out dir:", err)
		os.Exit(1)
	}
	jsonPath, _ := reporting.WriteJSON(run.ID, *pf.outDir, run)
	htmlPath, _ := reporting.WriteHTML(run.ID, *pf.outDir, run)

	if *pf.save && *pf.dbPath != "" {
		db, err := storage.OpenSQLite(*pf.dbPath)
		if err != nil {
			slog.Error("db open error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.CreateSchema(); err != nil {
			slog.Error("db schema error", "err", err)
			os.Exit(1)
		}
		if err := db.SaveRun(run); err != nil {
			slog.Error("db save run error", "err", err)
			os.Exit(1)
		}
	}

	slog.Info("run complete",
		"run", run.ID,
		"ok", run.Summary.OK,
		"findings", len(run.Findings),
		"contract_errors", len(run.ContractErrors),
		"cycles", len(run.Cycles),
		"json", jsonPath,
		"html", htmlPath,
	)
	reporting.WriteText(os.Stdout, run)
	if !run.Summary.OK {
		os.Exit(1)
	}
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	runID := fs.String("run", "", "Run ID")
	outDir := fs.String("out", "", "Output directory")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *runID == "" {
		fmt.Fprintln(os.Stderr, "report: --run is required")
		os.Exit(2)
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	run, err := db.LoadRun(*runID)
	if err != nil {
		slog.Error("load run error", "err", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		slog.Error("cannot create out dir", "err", err)
		os.Exit(1)
	}
	jsonPath, _ := reporting.WriteJSON(run.ID, *outDir, &run)
	htmlPath, _ := reporting.WriteHTML(run.ID, *outDir, &run)
	fmt.Printf("Report OK\n  Run: %s\n  JSON: %s\n  HTML: %s\n", run.ID, jsonPath, htmlPath)
}

func diffCmd(args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	base := fs.String("base", "", "Base run ID")
	head := fs.String("head", "", "Head run ID")
	outDir := fs.String("out", "", "Output directory")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *base == "" || *head == "" {
		fmt.Fprintln(os.Stderr, "diff: --base and --head are required")
		os.Exit(2)
	}
	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	br, err := db.LoadRun(*base)
	if err != nil {
		slog.Error("load base run error", "err", err)
		os.Exit(1)
	}
	hr, err := db.LoadRun(*head)
	if err != nil {
		slog.Error("load head run error", "err", err)
		os.Exit(1)
	}
	path, err := reporting.WriteDiffJSON(*base, *head, *outDir, &br, &hr)
	if err != nil {
		slog.Error("write diff error", "err", err)
		os.Exit(1)
	}
	fmt.Printf("Diff OK\n  %s\n", path)
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	addr := fs.String("addr", "", "Listen address")
	dbPath := fs.String("db", "", "SQLite database path")
	schemaPath := fs.String("schema", "", "Rule schema for the rules inventory (optional)")
	modulesDir := fs.String("modules", "", "Modules dir for the module inventory (optional)")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	logger := shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *addr == "" {
		*addr = cfg.Server.Addr
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *schemaPath == "" {
		*schemaPath = cfg.Scan.Schema
	}
	if *modulesDir == "" {
		*modulesDir = cfg.Contracts.ModulesDir
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}

	srv := &api.Server{
		DB:              db,
		UserStore:       db,
		Logger:          logger,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		SessionDuration: time.Duration(cfg.Server.SessionMinutes) * time.Minute,
	}
	if *schemaPath != "" {
		if rs, err := schema.Load(*schemaPath); err == nil {
			srv.RuleSet = rs
		} else {
			slog.Warn("rules inventory disabled", "err", err)
		}
	}
	if *modulesDir != "" {
		if reg, err := registry.LoadDir(*modulesDir); err == nil {
			srv.Registry = reg
		} else {
			slog.Warn("module inventory disabled", "err", err)
		}
	}

	slog.Info("serving", "addr", *addr)
	if err := http.ListenAndServe(*addr, srv.Routes()); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

func userCmd(args []string) {
	if len(args) < 1 || args[0] != "add" {
		fmt.Fprintln(os.Stderr, "user: only 'user add' is supported")
		os.Exit(2)
	}
	fs := flag.NewFlagSet("user add", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	username := fs.String("username", "", "Username")
	password := fs.String("password", "", "Password")
	role := fs.String("role", "viewer", "Role (viewer|admin)")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args[1:])

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "user add: --username and --password are required")
		os.Exit(2)
	}

	hash, err := security.HashPassword(*password)
	if err != nil {
		slog.Error("hash error", "err", err)
		os.Exit(1)
	}
	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}
	id, err := db.CreateUser(*username, hash, *role)
	if err != nil {
		slog.Error("create user error", "err", err)
		os.Exit(1)
	}
	fmt.Printf("User OK\n  ID: %d\n  Username: %s\n  Role: %s\n", id, *username, *role)
}
