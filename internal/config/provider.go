package config

import "os"

// DefaultIPSource is the public address source used when none is configured.
const DefaultIPSource = "whoami"

// IPSource selects how the public address is discovered, with
// source-specific settings.
type IPSource struct {
	Type     string            `yaml:"type"`
	Settings map[string]string `yaml:"settings"`
}

func (s *IPSource) expandEnv() {
	for k, v := range s.Settings {
		s.Settings[k] = os.ExpandEnv(v)
	}
}
