package crypto

import (
	"io"

	"github.com/codahale/kt128"
)

// squeeze derives n bytes of output from input, domain-separated by salt,
// using KT128 (KangarooTwelve) as an extendable-output function. This is
// the module's HKDF-like construction (spec.md SS4.1: "exact construction
// is an implementation detail as long as all parties agree").
func squeeze(n int, input, salt []byte) []byte {
	h := kt128.New(salt)
	_, _ = h.Write(input)
	out := make([]byte, n)
	_, _ = io.ReadFull(h, out)
	return out
}

// KDF1 derives a single 32-byte key from input, domain-separated by salt.
func KDF1(input, salt []byte) [32]byte {
	var out [32]byte
	copy(out[:], squeeze(32, input, salt))
	return out
}

// KDF2 derives two 32-byte keys from input, domain-separated by salt.
func KDF2(input, salt []byte) (a, b [32]byte) {
	out := squeeze(64, input, salt)
	copy(a[:], out[:32])
	copy(b[:], out[32:])
	return
}

// KDF3 derives three 32-byte keys from input, domain-separated by salt.
func KDF3(input, salt []byte) (a, b, c [32]byte) {
	out := squeeze(96, input, salt)
	copy(a[:], out[:32])
	copy(b[:], out[32:64])
	copy(c[:], out[64:])
	return
}
