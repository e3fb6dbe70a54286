// Package commands defines the ratchetlinkctl CLI and wires dependencies
// for subcommands.
//
// Commands
//
//   - init          Create or rotate the local identity
//   - fingerprint   Print the identity fingerprint
//   - demo          Run a full invite/accept/send/recv exchange in-process
//
// # Implementation
//
// The root command builds an app.Wire (event bus, keystore, record store)
// before any subcommand runs, so handlers share one dependency graph backed
// by --home. The CLI is a thin demonstration, not a product surface: it
// exists to exercise internal/app end to end, not to add functionality of
// its own.
package commands
