package fleet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader loads fleet profiles from YAML files
type Loader struct {
	fleetsDir string
	validate  *validator.Validate
}

// NewLoader creates a new fleet loader
func NewLoader(fleetsDir string) *Loader {
	return &Loader{
		fleetsDir: fleetsDir,
		validate:  validator.New(),
	}
}

// Load loads a single fleet by name
func (l *Loader) Load(name string) (*Fleet, error) {
	filename := filepath.Join(l.fleetsDir, name+".yaml")

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read fleet file %s: %w", filename, err)
	}

	var f Fleet
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fleet YAML %s: %w", filename, err)
	}

	if err := l.Validate(&f); err != nil {
		return nil, fmt.Errorf("validate fleet %s: %w", name, err)
	}

	f.ApplyDefaults()

	return &f, nil
}

// LoadAll loads all fleets from the fleets directory
func (l *Loader) LoadAll() ([]*Fleet, error) {
	entries, err := os.ReadDir(l.fleetsDir)
	if err != nil {
		return nil, fmt.Errorf("read fleets directory: %w", err)
	}

	fleets := []*Fleet{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if !strings.HasSuffix(entry.Name(), ".yaml") && !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".yaml")
		name = strings.TrimSuffix(name, ".yml")

		f, err := l.Load(name)
		if err != nil {
			return nil, fmt.Errorf("load fleet %s: %w", name, err)
		}

		fleets = append(fleets, f)
	}

	return fleets, nil
}

// Validate checks a fleet against its validation tags plus the cross-field
// rules the tags cannot express.
func (l *Loader) Validate(f *Fleet) error {
	if err := l.validate.Struct(f); err != nil {
		return err
	}

	// Default instance type must come from the allowlist
	found := false
	for _, it := range f.InstanceTypes.Allowlist {
		if it == f.InstanceTypes.Default {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default instance type %s not in allowlist", f.InstanceTypes.Default)
	}

	// The steady band must exist: low threshold strictly under target
	if f.Thresholds.LowUtilization != 0 && f.Thresholds.TargetUtilization != 0 &&
		f.Thresholds.LowUtilization >= f.Thresholds.TargetUtilization {
		return fmt.Errorf("lowUtilization %.1f must be below targetUtilization %.1f",
			f.Thresholds.LowUtilization, f.Thresholds.TargetUtilization)
	}

	return nil
}
