package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/codewithboateng/archlint/internal/ir"
)

func WriteJSON(runID, outDir string, run *ir.Run) (string, error) {
	path := filepath.Join(outDir, runID+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return "", err
	}
	return path, nil
}

// ReadJSON parses a run back from its machine-readable report.
func ReadJSON(path string) (ir.Run, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ir.Run{}, err
	}
	var run ir.Run
	if err := json.Unmarshal(b, &run); err != nil {
		return ir.Run{}, err
	}
	return run, nil
}
