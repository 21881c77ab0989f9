// Package commands defines the hubspace CLI and wires dependencies for subcommands.
//
// Commands
//
//   - login          Log in and cache the session
//   - logout         Forget the cached session and account
//   - devices        List the devices on the account
//   - device         Show one device with its functions and state
//   - state get|set  Read or change the state of a device
//   - dump           Write the raw metadevice documents, optionally anonymised
//   - watch          Poll device state and print every change
//   - export         Serve device state as Prometheus metrics
//
// # Implementation
//
// The root command resolves configuration (flags, then HUBSPACE_* environment
// variables, then the YAML config file, then defaults), builds the logger and
// the dependency graph (stores, auth, API client, services) before any
// subcommand runs, so handlers share one authenticated client.
package commands
