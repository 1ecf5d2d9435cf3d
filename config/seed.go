package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is the gacha.yaml shape: boot-time defaults for the runtime
// configuration store. Values an admin already changed are left alone.
type Seed struct {
	Weights            map[string]float64 `yaml:"weights"`
	ExclusionThreshold int                `yaml:"exclusionThreshold"`
}

// LoadSeed reads the seed file. A missing file is not an error; the
// compiled-in defaults apply.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Seed{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &s, nil
}
