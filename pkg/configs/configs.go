// Package configs provides the embedded default configuration file.
package configs

import _ "embed"

// DefaultConfigBytes is the default configuration printed by `veil config`.
//
//go:embed config.yml
var DefaultConfigBytes []byte
