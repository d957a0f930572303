// Package registry maintains the mapping between action manifests declared
// in configuration and the Go handlers that implement them, and validates
// parity between the two at startup.
package registry
