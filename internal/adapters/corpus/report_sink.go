package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/longregen/promptloop/internal/domain/models"
)

// FileReportSink overwrites a single JSON file with the latest behavior report
type FileReportSink struct {
	path string
}

func NewFileReportSink(path string) *FileReportSink {
	return &FileReportSink{path: path}
}

// Save writes the report through a temp file in the same directory and renames
// it into place, so readers never see a partial document.
func (s *FileReportSink) Save(ctx context.Context, report *models.BehaviorReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal behavior report: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".behavior-report-*.json")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp report: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

// NopReportSink discards reports
type NopReportSink struct{}

func (NopReportSink) Save(context.Context, *models.BehaviorReport) error { return nil }
