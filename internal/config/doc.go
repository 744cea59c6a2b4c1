// Package config loads the run configuration: defaults, an optional YAML
// file in the user config directory, NOMINAS_* environment variables, and
// command-line flags, in increasing order of precedence.
package config
