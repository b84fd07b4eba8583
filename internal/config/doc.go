// Package config loads, normalizes, and validates cueforge configuration.
//
// Configuration lives in a TOML file (default ~/.config/cueforge/config.toml)
// split into sections per subsystem. Load applies repository defaults first,
// overlays the file, expands paths, pulls secrets from the environment when
// the file leaves them empty, and rejects values that would make a job fail
// later in a less obvious way.
package config
