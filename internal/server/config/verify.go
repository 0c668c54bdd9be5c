package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifySnapshot(&cfg.Snapshot); err != nil {
		return err
	}
	if err := verifyCollector(&cfg.Collector); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.HTTP.Addr == "" {
		return errors.New("server.http.addr is required")
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http tls_cert_file and tls_key_file must be set together")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.InMemory {
		return nil
	}
	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("cannot create data directory: %w", err)
	}
	if cfg.ArchiveRetention < 1 {
		return errors.New("storage.archive_retention must be at least 1")
	}
	return nil
}

func verifySnapshot(cfg *SnapshotSection) error {
	if cfg.Slack < 0 {
		return errors.New("snapshot.slack must not be negative")
	}
	if cfg.MaxAlloc < 1 {
		return errors.New("snapshot.max_alloc must be at least 1")
	}
	if cfg.DefaultCapacity < 1 {
		return errors.New("snapshot.default_capacity must be at least 1")
	}
	if cfg.DefaultCapacity > cfg.MaxAlloc {
		return errors.New("snapshot.default_capacity exceeds snapshot.max_alloc")
	}
	return nil
}

func verifyCollector(cfg *CollectorSection) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Interval <= 0 {
		return errors.New("collector.interval must be positive")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not recognized", cfg.Level)
	}
	return nil
}
