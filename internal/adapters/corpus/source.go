// Package corpus reads the reference corpus and stores behavior reports on disk.
package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/longregen/promptloop/internal/domain"
	"github.com/longregen/promptloop/internal/domain/models"
)

// FileSource loads the corpus from a JSON or YAML file on every call,
// so edits to the file are picked up by the next evolution run.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) Load(ctx context.Context) (models.Corpus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.path == "" {
		return nil, domain.NewDomainError(domain.ErrCorpusMissing, "no corpus path configured")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewDomainError(domain.ErrCorpusMissing, s.path)
		}
		return nil, fmt.Errorf("read corpus %s: %w", s.path, err)
	}

	corpus, err := Parse(data, filepath.Ext(s.path))
	if err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", s.path, err)
	}
	return corpus, nil
}

// Parse decodes a corpus document. ext selects the format (".yaml", ".yml"
// or anything else for JSON).
func Parse(data []byte, ext string) (models.Corpus, error) {
	var corpus models.Corpus
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &corpus); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &corpus); err != nil {
			return nil, err
		}
	}
	corpus.Normalize()
	return corpus, nil
}
