// Package app wires the application together: configuration loading, the
// action registry, event resolution, trigger evaluation, and execution.
package app
