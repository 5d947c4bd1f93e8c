package hiera

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultDataDir is used when hiera.yaml does not set defaults.datadir.
const DefaultDataDir = "data"

// HierarchyConfig is the subset of a Hiera v5 hiera.yaml that vmconf reads.
type HierarchyConfig struct {
	Version   int              `yaml:"version"`
	Defaults  HierarchyDefault `yaml:"defaults"`
	Hierarchy []HierarchyLevel `yaml:"hierarchy"`
}

// HierarchyDefault holds defaults shared by all hierarchy levels.
type HierarchyDefault struct {
	DataDir  string `yaml:"datadir"`
	DataHash string `yaml:"data_hash"`
}

// HierarchyLevel is one entry of the hierarchy list.
type HierarchyLevel struct {
	Name    string   `yaml:"name"`
	Path    string   `yaml:"path"`
	Paths   []string `yaml:"paths"`
	DataDir string   `yaml:"datadir"`
}

// Facts are variables interpolated into hierarchy paths, e.g. "stack".
type Facts map[string]string

var interpolation = regexp.MustCompile(`%\{\s*(?:::)?([A-Za-z0-9_.]+)\s*\}`)

// interpolate replaces %{fact} and %{::fact} with fact values.
// Unknown facts become the empty string.
func (f Facts) interpolate(s string) string {
	return interpolation.ReplaceAllStringFunc(s, func(m string) string {
		name := interpolation.FindStringSubmatch(m)[1]
		return f[name]
	})
}

// ParseConfig parses hiera.yaml content.
func ParseConfig(data []byte) (*HierarchyConfig, error) {
	var cfg HierarchyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse hiera config: %w", err)
	}

	if cfg.Version != 5 {
		return nil, fmt.Errorf("unsupported hiera config version: %d (expected: 5)", cfg.Version)
	}
	if len(cfg.Hierarchy) == 0 {
		return nil, fmt.Errorf("hiera config must have at least one hierarchy level")
	}
	if cfg.Defaults.DataHash != "" && cfg.Defaults.DataHash != "yaml_data" {
		return nil, fmt.Errorf("unsupported data_hash backend: %s (supported: yaml_data)", cfg.Defaults.DataHash)
	}
	for i, level := range cfg.Hierarchy {
		if level.Path == "" && len(level.Paths) == 0 {
			return nil, fmt.Errorf("hierarchy[%d] (%s): path or paths is required", i, level.Name)
		}
	}

	return &cfg, nil
}

// DataFiles resolves the data file paths of every level in priority order.
// Relative datadirs are resolved against baseDir.
func (c *HierarchyConfig) DataFiles(baseDir string, facts Facts) []string {
	defaultDir := c.Defaults.DataDir
	if defaultDir == "" {
		defaultDir = DefaultDataDir
	}

	var files []string
	for _, level := range c.Hierarchy {
		dir := defaultDir
		if level.DataDir != "" {
			dir = level.DataDir
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(baseDir, dir)
		}

		paths := level.Paths
		if level.Path != "" {
			paths = append([]string{level.Path}, paths...)
		}
		for _, p := range paths {
			files = append(files, filepath.Join(dir, facts.interpolate(p)))
		}
	}
	return files
}

// LoadConfig reads hiera.yaml at path and loads every data file it names.
// Data files that do not exist are skipped, as Hiera does.
func LoadConfig(path string, facts Facts) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hiera config %s: %w", path, err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}

	var layers []Layer
	for _, file := range cfg.DataFiles(filepath.Dir(path), facts) {
		layer, err := LoadLayer(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		layer.Name = strings.TrimPrefix(file, filepath.Dir(path)+string(filepath.Separator))
		layers = append(layers, layer)
	}

	return New(layers...), nil
}
