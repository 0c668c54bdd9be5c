package config

import "time"

// ServerConfig is the root configuration for proctree-server.
type ServerConfig struct {
	Server    ServerSection    `koanf:"server"`
	Storage   StorageSection   `koanf:"storage"`
	Collector CollectorSection `koanf:"collector"`
	Snapshot  SnapshotSection  `koanf:"snapshot"`
	Auth      AuthSection      `koanf:"auth"`
	Log       LogSection       `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// PerIPRPS and PerIPBurst bound unauthenticated request rates.
	PerIPRPS   int `koanf:"per_ip_rps"`
	PerIPBurst int `koanf:"per_ip_burst"`
}

// StorageSection configures the archive database.
type StorageSection struct {
	DataDir          string        `koanf:"data_dir"`
	InMemory         bool          `koanf:"in_memory"`
	SyncWrites       bool          `koanf:"sync_writes"`
	GCInterval       time.Duration `koanf:"gc_interval"`
	ArchiveRetention int           `koanf:"archive_retention"`
}

// CollectorSection configures the /proc mirror.
type CollectorSection struct {
	// Enabled turns the host process mirror on. When off, the
	// hierarchy only changes through the task API.
	Enabled bool `koanf:"enabled"`

	// ProcMount is the proc filesystem mount point.
	ProcMount string `koanf:"proc_mount"`

	// Interval is the reconciliation period.
	Interval time.Duration `koanf:"interval"`
}

// SnapshotSection configures snapshot sizing policy.
type SnapshotSection struct {
	// Slack is the spare buffer added to the live-count probe.
	Slack int `koanf:"slack"`

	// MaxAlloc caps the snapshot record buffer.
	MaxAlloc int `koanf:"max_alloc"`

	// DefaultCapacity applies when a request names none.
	DefaultCapacity int `koanf:"default_capacity"`
}

// AuthSection configures API key authentication.
type AuthSection struct {
	// Enabled turns authentication on. When off, every request acts
	// as admin; meant for local development only.
	Enabled bool `koanf:"enabled"`

	// CacheTTL bounds how long a validated key is served from cache.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// BootstrapKeyID and BootstrapSecret seed an admin key on first
	// start when the key store is empty.
	BootstrapKeyID  string `koanf:"bootstrap_key_id"`
	BootstrapSecret string `koanf:"bootstrap_secret"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
