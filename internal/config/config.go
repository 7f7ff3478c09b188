// Package config implements Trireme's optional YAML config file: a
// document of flag defaults (workers, split, SSL paths, datacenter) that
// the CLI applies after parsing flags, only to flags that were not set
// explicitly, so explicit flags still win.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the shape of an optional --config YAML document. Every field is
// a default: a flag explicitly set on the command line always overrides
// the corresponding value here.
type File struct {
	Workers                      int `yaml:"workers"`
	WorkerMaxStartupDelaySeconds int `yaml:"worker_max_startup_delay_seconds"`
	Split                        int `yaml:"split"`

	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Datacenter string `yaml:"datacenter"`

	SSLCACert   string `yaml:"ssl_ca_cert"`
	SSLCert     string `yaml:"ssl_certificate"`
	SSLKey      string `yaml:"ssl_key"`
	SSLUseTLSv1 bool   `yaml:"ssl_use_tls_v1"`

	MetricsPort  int    `yaml:"metrics_port"`
	ProgressFile string `yaml:"progress_file"`
	AuditFile    string `yaml:"audit_file"`
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &f, nil
}
