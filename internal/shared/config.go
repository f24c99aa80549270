package shared

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Driver string `yaml:"driver"` // "sqlite" (default)
		DSN    string `yaml:"dsn"`    // "./archlint.db"
	} `yaml:"database"`

	Scan struct {
		Root          string   `yaml:"root"`             // file tree to scan
		Schema        string   `yaml:"schema"`           // rule schema document
		Ignore        []string `yaml:"ignore"`           // path globs skipped entirely
		MaxFileSizeKB int64    `yaml:"max_file_size_kb"` // oversized files degrade to scan-error
		Workers       int      `yaml:"workers"`          // 0 = GOMAXPROCS
	} `yaml:"scan"`

	Contracts struct {
		ModulesDir     string `yaml:"modules_dir"`
		ConnectionsDir string `yaml:"connections_dir"`
		CycleSeverity  string `yaml:"cycle_severity"` // "warning" (default) | "error"
	} `yaml:"contracts"`

	FailOn struct {
		Critical bool `yaml:"critical"`
		Error    bool `yaml:"error"`
		Warning  bool `yaml:"warning"`
	} `yaml:"fail_on"`

	Reporting struct {
		OutDir string `yaml:"out_dir"` // "./reports"
	} `yaml:"reporting"`

	Server struct {
		Addr           string   `yaml:"addr"`            // ":8080"
		SessionMinutes int      `yaml:"session_minutes"` // 720
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`
}

func DefaultConfig() Config {
	var c Config
	c.Database.Driver = "sqlite"
	c.Database.DSN = "./archlint.db"
	c.Scan.Ignore = []string{".git/**", "node_modules/**", "dist/**", "vendor/**"}
	c.Scan.MaxFileSizeKB = 1024
	c.Contracts.CycleSeverity = "warning"
	c.FailOn.Critical = true
	c.FailOn.Error = true
	c.Reporting.OutDir = "./reports"
	c.Server.Addr = ":8080"
	c.Server.SessionMinutes = 720
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	return c
}

func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	// Env overrides (simple, explicit)
	if v := os.Getenv("ARCHLINT_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("ARCHLINT_SCHEMA"); v != "" {
		c.Scan.Schema = v
	}
	if v := os.Getenv("ARCHLINT_MAX_FILE_SIZE_KB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Scan.MaxFileSizeKB = n
		}
	}
	if v := os.Getenv("ARCHLINT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scan.Workers = n
		}
	}
	if v := os.Getenv("ARCHLINT_FAIL_ON_WARNING"); v != "" {
		c.FailOn.Warning = isTrue(v)
	}
	if v := os.Getenv("ARCHLINT_OUT_DIR"); v != "" {
		c.Reporting.OutDir = v
	}
	if v := os.Getenv("ARCHLINT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("ARCHLINT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return c, nil
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
