// Package config loads the compiler's ambient configuration: gating mode,
// canary engine preference, and the on-disk workspace layout used by
// pkg/discoveryset. Grounded on original_source/src/discos/config.py's
// DiscOSConfig (a pydantic model loaded from a single discos.yaml), adapted
// to the teacher's gopkg.in/yaml.v3 file-loading idiom from
// pkg/config/profile_loader.go rather than pydantic.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GateMode names how admissibility failures are to be treated by callers
// that wrap pkg/admissibility. It is loaded and stored only: no package in
// this module reads it, and cmd/hircompile always stops on an admissibility
// failure.
type GateMode string

const (
	GateHard GateMode = "hard" // any error aborts the operation
	GateSoft GateMode = "soft" // errors are reported but do not abort
	GateOff  GateMode = "off"  // admissibility is not consulted at all
)

// EngineMode names a canary engine preference. pkg/canary.Run does not take
// it: Run always tries wazero first and uses the reference interpreter only
// when wazero fails.
type EngineMode string

const (
	EngineWazero    EngineMode = "wazero"    // default: compiled WASM via wazero
	EngineReference EngineMode = "reference" // the Go-native reference interpreter
)

// Config is the HIR compiler's ambient configuration, loaded from a single
// YAML file (hircompile.yaml by convention, mirroring the original's
// discos.yaml).
type Config struct {
	// GateMode records the configured gating mode (see GateMode); it is not
	// read by any caller in this module.
	GateMode GateMode `yaml:"gate_mode"`

	// PreferredEngine records the configured canary engine preference; it
	// is not passed to pkg/canary.Run, which always tries wazero first.
	PreferredEngine EngineMode `yaml:"preferred_engine"`

	// MaxCanaryElements records a configured canary cap. It is not passed
	// to pkg/canary.Run, which always caps at canary.MaxElements.
	MaxCanaryElements int `yaml:"max_canary_elements,omitempty"`

	// EnableDimensionCheck toggles the PDS admissibility pass. Disabling it
	// is only ever appropriate while iterating on an HIR graph's shape
	// before its dimensional annotations are filled in.
	EnableDimensionCheck bool `yaml:"enable_dimension_check"`

	// Workspace paths, mirroring DiscOSConfig's workspace_dir/objects_dir/
	// receipts_dir/bundles_dir: where pkg/discoveryset lays out
	// content-addressed HIR objects, canary receipts, and bundles on disk.
	WorkspaceDir string `yaml:"workspace_dir"`
	ObjectsDir   string `yaml:"objects_dir"`
	ReceiptsDir  string `yaml:"receipts_dir"`
	BundlesDir   string `yaml:"bundles_dir"`

	// LogLevel records the configured log level. cmd/hircompile does not
	// read it; its slog handler always logs at Info.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration a fresh workspace starts with when no
// YAML file is present, matching DiscOSConfig's pydantic field defaults.
func Default() Config {
	return Config{
		GateMode:             GateHard,
		PreferredEngine:      EngineWazero,
		EnableDimensionCheck: true,
		WorkspaceDir:         ".hircompile",
		ObjectsDir:           "objects",
		ReceiptsDir:          "receipts",
		BundlesDir:           "bundles",
		LogLevel:             "INFO",
	}
}

// Load reads path (or returns Default() if path is empty and no
// hircompile.yaml exists in the working directory), the same
// exists-or-defaults behavior as DiscOSConfig.load(path=None).
func Load(path string) (Config, error) {
	if path == "" {
		if _, err := os.Stat("hircompile.yaml"); err == nil {
			path = "hircompile.yaml"
		} else {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

// WorkspacePath returns the root workspace directory, creating no side
// effects — callers that need the directory to exist call os.MkdirAll
// themselves (see pkg/discoveryset).
func (c Config) WorkspacePath() string { return c.WorkspaceDir }

// ObjectsPath returns the content-addressed HIR object store directory.
func (c Config) ObjectsPath() string { return filepath.Join(c.WorkspaceDir, c.ObjectsDir) }

// ReceiptsPath returns the canary receipt store directory.
func (c Config) ReceiptsPath() string { return filepath.Join(c.WorkspaceDir, c.ReceiptsDir) }

// BundlesPath returns the bundle store directory.
func (c Config) BundlesPath() string { return filepath.Join(c.WorkspaceDir, c.BundlesDir) }
