// Package constants provides GCP-specific constants for the busway reconciler.
// It defines service identifiers, polling defaults, and lifecycle states for:
//   - Eventarc Advanced message buses, pipelines, and enrollments
//   - Google API sources publishing into a message bus
//   - Standard Eventarc triggers
//   - Service Usage API enablement
package constants
