package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the settings of the tilcopy tool. Files may be YAML
// or JSON.
type Config struct {
	LogLevel       string           `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	LiftCodeBodies bool             `yaml:"lift_code_bodies,omitempty" json:"lift_code_bodies,omitempty"`
	Verify         bool             `yaml:"verify,omitempty" json:"verify,omitempty"`
	OutDir         string           `yaml:"out_dir,omitempty" json:"out_dir,omitempty"`
	Bindings       map[string]int64 `yaml:"bindings,omitempty" json:"bindings,omitempty"`
}

// LoadConfig loads configuration from file. A missing file yields the
// defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{LogLevel: "info"}

	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return config, nil
}

// Validate checks values that cannot be checked by decoding alone.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	for name := range c.Bindings {
		if name == "" {
			return fmt.Errorf("binding with an empty name")
		}
	}
	return nil
}

// SaveConfig saves configuration to file, as JSON if the file name ends
// in .json and as YAML otherwise.
func (c *Config) SaveConfig(configPath string) error {
	var data []byte
	var err error
	if strings.EqualFold(filepath.Ext(configPath), ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ParseBindings parses name=value pairs with integer values and merges
// them over base. base is not modified.
func ParseBindings(base map[string]int64, pairs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(base)+len(pairs))
	for k, v := range base {
		out[k] = v
	}
	for _, p := range pairs {
		name, val, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid binding %q: expected name=value", p)
		}
		n, err := strconv.ParseInt(val, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid binding %q: %w", p, err)
		}
		out[name] = n
	}
	return out, nil
}
