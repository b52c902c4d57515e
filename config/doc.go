// Package config holds the settings of a refscan database and its CLI.
//
// A Config starts from DefaultConfig and may be overlaid with a TOML file
// through Load. Keys missing from the file keep their defaults.
package config
