// Copyright 2024 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

var (
	configDir string // Directory for configuration files
	logsDir   string // Directory for worker log files
	dumpsDir  string // Directory for diagnostic MigrationTask dumps
)

func init() {
	if os.Geteuid() == 0 {
		configDir = "/etc/rodent"
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			panic(fmt.Sprintf("failed to get home directory: %v", err))
		}
		configDir = filepath.Join(homeDir, ".rodent")
	}

	logsDir = filepath.Join(configDir, "logs")
	dumpsDir = filepath.Join(configDir, "migrate-dumps")

	if err := EnsureDirectories(); err != nil {
		panic(fmt.Sprintf("failed to ensure configuration directories: %v", err))
	}
}

// GetConfigDir returns the appropriate configuration directory: the
// system path when running as root, the user path otherwise.
func GetConfigDir() string {
	return configDir
}

// GetLogsDir returns the directory the worker's file log stream is
// written under when logdir is not overridden by the environment.
func GetLogsDir() string {
	return logsDir
}

// GetDumpsDir returns the directory for the diagnostic on-disk
// MigrationTask snapshot (§4 DOMAIN STACK - not a resume mechanism).
func GetDumpsDir() string {
	return dumpsDir
}

// EnsureDirectories creates necessary directories if they do not exist.
func EnsureDirectories() error {
	dirs := []string{configDir, logsDir, dumpsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
