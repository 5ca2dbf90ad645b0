package core

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// SaveFindings writes findings into dir. format is "json" or "csv"; anything
// else writes both. It returns the paths written.
func SaveFindings(findings []Finding, format, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	base := filepath.Join(dir, "scaffold_review_"+time.Now().Format("20060102_150405"))

	var written []string
	save := func(ext string, fn func([]Finding, string) error) error {
		name := base + "." + ext
		if err := fn(findings, name); err != nil {
			return err
		}
		written = append(written, name)
		return nil
	}

	switch format {
	case "json":
		return written, save("json", saveJSON)
	case "csv", "excel":
		return written, save("csv", saveCSV)
	default:
		if err := save("json", saveJSON); err != nil {
			return written, err
		}
		return written, save("csv", saveCSV)
	}
}

func saveJSON(findings []Finding, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(findings); err != nil {
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	return nil
}

func saveCSV(findings []Finding, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	// BOM so spreadsheet tools pick UTF-8
	if _, err := f.Write([]byte("\xEF\xBB\xBF")); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	_ = w.Write([]string{"Level", "Source", "Description", "Reference", "Advice"})
	for _, r := range findings {
		_ = w.Write([]string{r.Level, r.Source, r.Description, r.Reference, r.Advice})
	}
	w.Flush()
	return w.Error()
}

// PrintFindings logs findings one per line.
func PrintFindings(logger *zap.SugaredLogger, findings []Finding) {
	if len(findings) == 0 {
		logger.Info("No security findings.")
		return
	}

	logger.Warnf("=== Review complete, %d findings ===", len(findings))
	for _, f := range findings {
		logger.Warnf("[%s] [%s] %s | %s", f.Source, f.Level, f.Description, f.Reference)
		if f.Advice != "" {
			logger.Infof("    -> %s", f.Advice)
		}
	}
}
