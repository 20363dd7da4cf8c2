// Package config loads the kernel's runtime configuration: a YAML file
// for the durable parts (pool size, default session quota, listen
// addresses, sidecar paths), with CLI flags layered on top for anything
// an operator wants to override at launch without editing the file.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the kernel's full runtime configuration, the union of what
// a config.yaml file and a cmd/qvmd invocation's flags can set.
type Config struct {
	DataDir string `yaml:"data_dir"`

	Pool PoolConfig `yaml:"pool"`

	DefaultQuota QuotaConfig `yaml:"default_quota"`

	Admission AdmissionConfig `yaml:"admission"`

	Audit AuditConfig `yaml:"audit"`

	MediatorKeyFile string `yaml:"mediator_key_file"`

	Verbosity int `yaml:"verbosity"`
}

// PoolConfig sizes the shared physical qubit pool (resource.Pool).
type PoolConfig struct {
	TotalPhysicalQubits uint64 `yaml:"total_physical_qubits"`
	TemplateCacheBytes  int    `yaml:"template_cache_bytes"`
}

// QuotaConfig is a per-session quota (spec.md §5). Config.DefaultQuota
// is loaded and carried here only: sessions created through the
// admission API take their quota from the create-session request, and
// DefaultQuota is not applied to them.
type QuotaConfig struct {
	MaxLiveVQs        uint64 `yaml:"max_live_vqs"`
	MaxLiveChannels   uint64 `yaml:"max_live_channels"`
	MaxConcurrentJobs int64  `yaml:"max_concurrent_jobs"`
}

// AdmissionConfig controls the HTTP admission API's listen address and
// CORS policy.
type AdmissionConfig struct {
	Addr         string        `yaml:"addr"`
	CORS         string        `yaml:"cors"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// AuditConfig selects the audit log's optional durability/query
// extensions.
type AuditConfig struct {
	SidecarPath        string `yaml:"sidecar_path"`
	SecondaryIndexPath string `yaml:"secondary_index_path"`
}

// Default returns the configuration cmd/qvmd starts from before a file
// or flags are applied, matching spec.md §5's suggested defaults.
func Default() Config {
	return Config{
		DataDir: defaultDataDir(),
		Pool: PoolConfig{
			TotalPhysicalQubits: 4096,
			TemplateCacheBytes:  8 << 20,
		},
		DefaultQuota: QuotaConfig{
			MaxLiveVQs:        64,
			MaxLiveChannels:   16,
			MaxConcurrentJobs: 4,
		},
		Admission: AdmissionConfig{
			Addr:           "localhost:8199",
			RequestTimeout: 10 * time.Second,
		},
		Verbosity: 3,
	}
}

// Load reads a YAML config file at path, starting from Default() so
// fields the file omits keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "config: open %q", path)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: decode %q", path)
	}
	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".qvmd"
	}
	return home + string(os.PathSeparator) + ".qvmd"
}
