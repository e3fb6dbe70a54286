// Package ratchet implements the Session state machine: a Double Ratchet
// combining a per-epoch DH ratchet with a symmetric KDF chain per message,
// riding on an external signed-event bus rather than a point-to-point
// transport.
package ratchet
