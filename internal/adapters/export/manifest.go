package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/pitwall/internal/domain/features"
	"github.com/okian/pitwall/internal/domain/split"
	"github.com/okian/pitwall/pkg/logger"
)

// Manifest describes one build: its parameters, every column and the
// partition statistics.
type Manifest struct {
	RunID   string    `yaml:"run_id"`
	BuiltAt time.Time `yaml:"built_at"`
	Rows    int       `yaml:"rows"`

	Window struct {
		Recent int `yaml:"recent"`
		DNF    int `yaml:"dnf"`
	} `yaml:"window"`
	Split struct {
		TrainEndYear  int `yaml:"train_end_year"`
		TestStartYear int `yaml:"test_start_year"`
	} `yaml:"split"`

	Columns        []ManifestColumn `yaml:"columns"`
	FeatureColumns []string         `yaml:"feature_columns"`
	TargetColumns  []string         `yaml:"target_columns"`
	Partitions     []split.Stats    `yaml:"partitions"`
	Files          []string         `yaml:"files,omitempty"`
}

// ManifestColumn documents one output column.
type ManifestColumn struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Role     string `yaml:"role"`
	Nullable bool   `yaml:"nullable,omitempty"`
	Doc      string `yaml:"doc,omitempty"`
}

// NewManifest fills the column sections from the registry.
func NewManifest(runID string, builtAt time.Time, rows int, stats []split.Stats) *Manifest {
	m := &Manifest{
		RunID:          runID,
		BuiltAt:        builtAt.UTC(),
		Rows:           rows,
		FeatureColumns: features.FeatureColumns(),
		TargetColumns:  features.TargetColumns(),
		Partitions:     stats,
	}
	for _, c := range features.Columns() {
		m.Columns = append(m.Columns, ManifestColumn{
			Name: c.Name, Type: c.Type.String(), Role: c.Role.String(), Nullable: c.Nullable, Doc: c.Doc,
		})
	}
	return m
}

// WriteManifest writes manifest.yaml. File paths are recorded relative to
// the output directory.
func (e *Exporter) WriteManifest(ctx context.Context, m *Manifest, files ...string) (string, error) {
	if err := os.MkdirAll(e.dir, dirPermission); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}
	m.Files = m.Files[:0]
	for _, f := range files {
		if rel, err := filepath.Rel(e.dir, f); err == nil {
			f = rel
		}
		m.Files = append(m.Files, f)
	}

	path := filepath.Join(e.dir, ManifestFile)
	err := e.atomically(path, func(f *os.File) error {
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return "", err
	}
	e.logger.Info(ctx, "manifest written", logger.String("path", path),
		logger.Int("columns", len(m.Columns)), logger.Int("features", len(m.FeatureColumns)))
	return path, nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
