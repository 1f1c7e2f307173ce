// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package dxctlpath derives file paths from the dxctl base directory.
//
// The base directory (--dir flag) contains:
//
//	dxctl.yaml        Config file
//	.env              Optional credential overlay for ${VAR} references
//	dxctl.prom        Default run metrics file
package dxctlpath

import "path/filepath"

const (
	// ConfigFileName is the well-known config file name within the base directory.
	ConfigFileName = "dxctl.yaml"
	// EnvFileName is the optional dotenv file within the base directory.
	EnvFileName = ".env"
	// MetricsFileName is the default run metrics file name within the base directory.
	MetricsFileName = "dxctl.prom"
)

// ConfigFilePath returns the path to the config file within the base directory.
func ConfigFilePath(dirPath string) string {
	return filepath.Join(dirPath, ConfigFileName)
}

// EnvFilePath returns the path to the dotenv file within the base directory.
func EnvFilePath(dirPath string) string {
	return filepath.Join(dirPath, EnvFileName)
}

// MetricsFilePath returns the default path of the run metrics file within the base directory.
func MetricsFilePath(dirPath string) string {
	return filepath.Join(dirPath, MetricsFileName)
}
