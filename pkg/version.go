// Package cinder holds build information of the cinder application.
package cinder

var (
	// Version of the application, set by build flags.
	Version = "v0.1.0"

	// Build timestamp, set by build flags.
	Build = "n/a"
)
