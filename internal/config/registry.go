package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/prusalink-community/linkboot/internal/model"
)

// Registry is the multi-instance printer registry: the set of printers
// running as separate PrusaLink instances on this host. The stop and
// status commands iterate over it so that `linkboot stop` brings down the
// manager and every instance it spawned.
type Registry struct {
	// Printers lists the registered instances. Order is preserved from
	// the file and determines stop/status output order.
	Printers []Printer `yaml:"printers"`
}

// Printer is one registered PrusaLink instance.
type Printer struct {
	// Name identifies the instance in output and logs.
	Name string `yaml:"name"`

	// ConfigPath is the instance's own PrusaLink configuration file.
	// linkboot does not read it; it is recorded so operators can find it.
	ConfigPath string `yaml:"config_path,omitempty"`

	// PIDFile is the instance daemon's PID file, used to stop the
	// instance and report its liveness.
	PIDFile string `yaml:"pid_file"`
}

// Validate checks a printer entry for the fields linkboot needs.
func (p *Printer) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("registry: printer entry missing name")
	}
	if p.PIDFile == "" {
		return fmt.Errorf("registry: printer %q missing pid_file", p.Name)
	}
	return nil
}

// LoadRegistry reads the instance registry at path.
//
// A missing file means a single-printer installation and returns an empty
// registry, not an error. A malformed file is a config error.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		path = DefaultRegistryPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{}, nil
		}
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to read instance registry %s", path), err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse instance registry %s", path), err)
	}

	for i := range reg.Printers {
		if err := reg.Printers[i].Validate(); err != nil {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("invalid instance registry %s", path), err)
		}
	}

	return &reg, nil
}

// SaveRegistry writes the registry to path in YAML. Used by provisioning
// tooling; linkboot itself only reads the registry.
func SaveRegistry(path string, reg *Registry) error {
	if path == "" {
		path = DefaultRegistryPath
	}

	data, err := yaml.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to serialize instance registry: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to write instance registry %s", path), err)
	}
	return nil
}
