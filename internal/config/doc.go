// Package config loads, validates, and saves the node's YAML settings file.
//
// Zero-valued fields are filled with defaults by Validate, so a settings file
// only needs to name what differs from Default.
package config
