// Package config holds the defaults lrna-launch starts from before
// environment variables and flags are applied.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/me/lrnalaunch/internal/encoded"
	"github.com/me/lrnalaunch/internal/launch"
)

// Environment variables read by FromEnv.
const (
	EnvDBPath    = "LRNA_DB"
	EnvPortalURL = "ENCODE_PORTAL_URL"
	EnvProject   = "LRNA_PROJECT"
	EnvNThreads  = "LRNA_NTHREADS"
)

// LaunchConfig holds settings shared by the launch subcommands.
type LaunchConfig struct {
	Project    string // Workspace under the user's home, e.g. "home"
	ResultsLoc string // Results folder inside the project (default "/lrna/")
	RefLoc     string // Reference folder, inside the project unless it names a workspace
	DBPath     string // Launch history database (default ~/.lrna-launch/launches.db, ":memory:" for testing)
	PortalURL  string // Experiment metadata portal
	NThreads   int
	RandomSeed int
	LogLevel   string // debug, info, warn, error
	LogFormat  string // text, json
}

// DefaultLaunchConfig returns the built-in defaults.
func DefaultLaunchConfig() LaunchConfig {
	return LaunchConfig{
		Project:    "home",
		ResultsLoc: launch.DefaultResultsLoc,
		RefLoc:     launch.DefaultRefLoc,
		DBPath:     DefaultDBPath(),
		PortalURL:  encoded.DefaultPortalURL,
		NThreads:   launch.DefaultNThreads,
		RandomSeed: launch.DefaultRandomSeed,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// DefaultDBPath is ~/.lrna-launch/launches.db, or a relative path when
// the home directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".lrna-launch", "launches.db")
	}
	return filepath.Join(home, ".lrna-launch", "launches.db")
}

// FromEnv returns c with environment overrides applied. Malformed numeric
// values are ignored.
func (c LaunchConfig) FromEnv() LaunchConfig {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvPortalURL); v != "" {
		c.PortalURL = v
	}
	if v := os.Getenv(EnvProject); v != "" {
		c.Project = v
	}
	if v, err := strconv.Atoi(os.Getenv(EnvNThreads)); err == nil && v > 0 {
		c.NThreads = v
	}
	return c
}
