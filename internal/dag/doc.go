// Package dag builds and validates the job dependency graph derived from
// `needs` edges across the matched workflows.
package dag
