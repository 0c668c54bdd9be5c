package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5080"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultPerIPRPS        = 50
	DefaultPerIPBurst      = 100

	DefaultDataDir          = "/var/lib/proctree/data"
	DefaultGCInterval       = 10 * time.Minute
	DefaultArchiveRetention = 1000

	DefaultCollectorInterval = 2 * time.Second
	DefaultProcMount         = "/proc"

	DefaultSnapshotSlack    = 15
	DefaultSnapshotMaxAlloc = 1 << 20
	DefaultSnapshotCapacity = 4096

	DefaultAuthCacheTTL = 60 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:       DefaultHTTPAddr,
				PerIPRPS:   DefaultPerIPRPS,
				PerIPBurst: DefaultPerIPBurst,
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageSection{
			DataDir:          DefaultDataDir,
			GCInterval:       DefaultGCInterval,
			ArchiveRetention: DefaultArchiveRetention,
		},
		Collector: CollectorSection{
			Enabled:   true,
			ProcMount: DefaultProcMount,
			Interval:  DefaultCollectorInterval,
		},
		Snapshot: SnapshotSection{
			Slack:           DefaultSnapshotSlack,
			MaxAlloc:        DefaultSnapshotMaxAlloc,
			DefaultCapacity: DefaultSnapshotCapacity,
		},
		Auth: AuthSection{
			Enabled:  true,
			CacheTTL: DefaultAuthCacheTTL,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
