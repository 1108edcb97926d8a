// Package plugins implements the §6 Plugin contract's descriptor-driven
// discovery: a sidecar JSON descriptor per plugin naming
// {name, version, enabled, module}, with disabled entries skipped.
// Grounded on the teacher's cve.SeedLoader JSON-file-loading shape
// (internal/adapters/cve/seed_loader.go), adapted from seeding CVE rows
// into loading plugin metadata.
package plugins

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jobsdonn/PenDonn/internal/core/ports"
)

// Descriptor is the sidecar metadata file the loader reads for each
// plugin, named in §6's Plugin contract.
type Descriptor struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Enabled bool   `json:"enabled"`
	Module  string `json:"module"`
}

// Loader discovers plugin descriptors in a directory and instantiates
// only those with enabled=true via a caller-supplied factory keyed by
// Module.
type Loader struct {
	logger    *slog.Logger
	factories map[string]func(Descriptor) ports.Plugin
}

// NewLoader builds a Loader. factories maps a descriptor's "module"
// field to a constructor for the corresponding ports.Plugin.
func NewLoader(factories map[string]func(Descriptor) ports.Plugin, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{factories: factories, logger: logger}
}

// LoadDir reads every *.json descriptor in dir and instantiates the
// enabled ones, skipping disabled entries and unknown modules.
func (l *Loader) LoadDir(dir string) ([]ports.Plugin, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading plugin directory: %w", err)
	}

	var loaded []ports.Plugin
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		desc, err := l.readDescriptor(path)
		if err != nil {
			l.logger.Warn("plugins: failed to read descriptor", "path", path, "error", err)
			continue
		}
		if !desc.Enabled {
			l.logger.Debug("plugins: skipping disabled plugin", "name", desc.Name)
			continue
		}
		factory, ok := l.factories[desc.Module]
		if !ok {
			l.logger.Warn("plugins: no factory registered for module", "module", desc.Module, "name", desc.Name)
			continue
		}
		loaded = append(loaded, factory(desc))
		l.logger.Info("plugins: loaded", "name", desc.Name, "version", desc.Version)
	}
	return loaded, nil
}

func (l *Loader) readDescriptor(path string) (Descriptor, error) {
	var desc Descriptor
	data, err := os.ReadFile(path)
	if err != nil {
		return desc, err
	}
	if err := json.Unmarshal(data, &desc); err != nil {
		return desc, err
	}
	return desc, nil
}
