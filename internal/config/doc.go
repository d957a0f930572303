// Package config holds the format-agnostic configuration model and the
// loader/converter contracts implemented by the syntax-specific packages.
package config
