// Package kernelspec resolves named kernel launch definitions from a
// YAML configuration file, and templates the argv for a run.
package kernelspec

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nbrun/nbrun"
)

// Spec is one kernel launch definition.
type Spec struct {
	// Argv is the kernel command line. Required, non-empty.
	Argv []string `yaml:"argv"`

	// ProfileArg is the flag used to pass a profile location, appended
	// as "<ProfileArg> <dir>" when the run configures one. Optional.
	ProfileArg string `yaml:"profile-arg"`

	// ExtraOutputArg is the flag requesting the interactive plotting
	// and array-library preamble. Optional.
	ExtraOutputArg string `yaml:"extra-output-arg"`
}

// CommandFor returns the argv for a run: the spec's command line with
// the profile and extra-output flags appended per the run configuration.
func (s Spec) CommandFor(cfg nbrun.RunConfig) []string {
	argv := append([]string(nil), s.Argv...)
	if cfg.ProfileDir != "" && s.ProfileArg != "" {
		argv = append(argv, s.ProfileArg, cfg.ProfileDir)
	}
	if cfg.ExtraOutput && s.ExtraOutputArg != "" {
		argv = append(argv, s.ExtraOutputArg)
	}
	return argv
}

func (s Spec) validate(name string) error {
	if len(s.Argv) == 0 {
		return fmt.Errorf("kernelspec: kernel %q: argv must not be empty", name)
	}
	return nil
}

// Config is a set of named kernel definitions.
type Config struct {
	// DefaultKernel names the kernel used when none is requested.
	DefaultKernel string `yaml:"default"`

	// Kernels maps kernel names to launch definitions.
	Kernels map[string]Spec `yaml:"kernels"`
}

// Lookup resolves a kernel by name. An empty name resolves the
// configured default.
func (c *Config) Lookup(name string) (Spec, error) {
	if name == "" {
		name = c.DefaultKernel
	}
	spec, ok := c.Kernels[name]
	if !ok {
		return Spec{}, fmt.Errorf("kernelspec: unknown kernel %q", name)
	}
	return spec, nil
}

// Default returns the built-in python3 kernel definition, used when no
// configuration file exists.
func Default() Spec {
	return Spec{
		Argv:           []string{"python3", "-m", "nbrunkernel", "--connect", "stdio"},
		ProfileArg:     "--profile-dir",
		ExtraOutputArg: "--interactive-plots",
	}
}

// DefaultConfig wraps Default in a single-kernel configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultKernel: "python3",
		Kernels:       map[string]Spec{"python3": Default()},
	}
}

// Parse decodes a kernel configuration document. Unknown fields are
// rejected to surface typos in config files early.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("kernelspec: parse: %w", err)
	}
	if len(cfg.Kernels) == 0 {
		return nil, fmt.Errorf("kernelspec: no kernels defined")
	}
	for name, spec := range cfg.Kernels {
		if err := spec.validate(name); err != nil {
			return nil, err
		}
	}
	if cfg.DefaultKernel != "" {
		if _, ok := cfg.Kernels[cfg.DefaultKernel]; !ok {
			return nil, fmt.Errorf("kernelspec: default kernel %q not defined", cfg.DefaultKernel)
		}
	}
	return &cfg, nil
}

// Load reads a kernel configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kernelspec: %w", err)
	}
	return Parse(data)
}
