package crypto

import "crypto/subtle"

// Wipe overwrites b with zeros. It is best-effort: the Go runtime can still
// have copied b's bytes elsewhere (stack growth, GC moves), but it denies an
// attacker reading freed memory the easy case of an untouched secret.
func Wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	zero := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zero)
}
