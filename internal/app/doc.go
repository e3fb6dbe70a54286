// Package app wires application dependencies for the demo CLI.
//
// It builds the concrete event bus and file-backed stores from Config,
// exposing them via the Wire struct plus convenience methods that glue
// together identity creation, the Invite/Accept/Listen handshake, InviteList
// publishing, and session persistence — the sequence cmd/ratchetlinkctl
// drives end to end.
package app
