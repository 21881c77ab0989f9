// Package app wires application dependencies for the CLI.
//
// It resolves Config from defaults, an optional YAML file, environment
// variables and flags, builds the logger, and constructs the stores, API
// clients and services, exposing them via the Wire struct for commands to use.
package app
