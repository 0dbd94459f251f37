// Package config loads the updater configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

const (
	// DefaultPath is read when DDNS_CONFIG_PATH is not set. It may be absent.
	DefaultPath = "configs/ddns.yaml"

	DefaultUpdateIntervalSeconds  = 900
	DefaultStartupDelay           = time.Second
	DefaultAPIBaseURL             = "https://api.cloudflare.com/client/v4"
	DefaultMetricsBindAddress     = ":9090"
	DefaultHealthProbeBindAddress = ":8081"
)

// Config holds everything the updater needs to start.
type Config struct {
	UpdateIntervalSeconds  int           `yaml:"update_interval_seconds"`
	ZoneName               string        `yaml:"zone_name"`
	DNSRecordName          string        `yaml:"dns_record_name"`
	APIToken               string        `yaml:"api_token"`
	APIBaseURL             string        `yaml:"api_base_url"`
	StartupDelay           time.Duration `yaml:"startup_delay"`
	IPSource               IPSource      `yaml:"ip_source"`
	MetricsBindAddress     string        `yaml:"metrics_bind_address"`
	HealthProbeBindAddress string        `yaml:"health_probe_bind_address"`
}

// UpdateInterval returns the configured interval as a duration.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalSeconds) * time.Second
}

// Default returns a Config with every optional field set.
func Default() *Config {
	return &Config{
		UpdateIntervalSeconds:  DefaultUpdateIntervalSeconds,
		APIBaseURL:             DefaultAPIBaseURL,
		StartupDelay:           DefaultStartupDelay,
		IPSource:               IPSource{Type: DefaultIPSource},
		MetricsBindAddress:     DefaultMetricsBindAddress,
		HealthProbeBindAddress: DefaultHealthProbeBindAddress,
	}
}

// Load reads the configuration from the path in DDNS_CONFIG_PATH, or from
// DefaultPath if the variable is unset. An explicitly named file must exist.
func Load() (*Config, error) {
	if path := os.Getenv("DDNS_CONFIG_PATH"); path != "" {
		return LoadFromPath(path, true)
	}
	return LoadFromPath(DefaultPath, false)
}

// LoadFromPath reads the configuration at path, applies environment
// overrides and validates the result. A missing file is only an error when
// required is set.
func LoadFromPath(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("DDNS_UPDATE_INTERVAL_SECONDS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DDNS_UPDATE_INTERVAL_SECONDS: %w", err)
		}
		c.UpdateIntervalSeconds = n
	}
	overrides := []struct {
		env string
		dst *string
	}{
		{"DDNS_ZONE_NAME", &c.ZoneName},
		{"DDNS_DNS_RECORD_NAME", &c.DNSRecordName},
		{"CLOUDFLARE_API_TOKEN", &c.APIToken},
		{"CLOUDFLARE_API_BASE_URL", &c.APIBaseURL},
		{"DDNS_IP_SOURCE", &c.IPSource.Type},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}

	// Expand ${ENV_VAR} references so secrets can stay out of the file.
	c.APIToken = strings.TrimSpace(os.ExpandEnv(c.APIToken))
	c.IPSource.expandEnv()
	return nil
}

func (c *Config) normalize() {
	c.ZoneName = NormalizeName(c.ZoneName)
	c.DNSRecordName = NormalizeName(c.DNSRecordName)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	c.IPSource.Type = strings.ToLower(strings.TrimSpace(c.IPSource.Type))
}

// NormalizeName trims, lower-cases and strips the trailing dot of a DNS name.
func NormalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.UpdateIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("update_interval_seconds must be positive, got %d", c.UpdateIntervalSeconds))
	}
	if c.ZoneName == "" {
		errs = append(errs, errors.New("zone_name is required"))
	}
	if c.DNSRecordName == "" {
		errs = append(errs, errors.New("dns_record_name is required"))
	}
	if c.APIToken == "" {
		errs = append(errs, errors.New("api_token is required"))
	}
	if u, err := url.Parse(c.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_base_url %q must be an absolute http(s) URL", c.APIBaseURL))
	}
	if c.StartupDelay < 0 {
		errs = append(errs, fmt.Errorf("startup_delay must not be negative, got %s", c.StartupDelay))
	}
	if c.IPSource.Type == "" {
		errs = append(errs, errors.New("ip_source.type is required"))
	}
	return utilerrors.NewAggregate(errs)
}
