package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// signalDelimiter separates fingerprint signals before hashing. A zero byte
// cannot occur inside header-derived signals, so "a"+"bc" and "ab"+"c" hash
// differently.
const signalDelimiter = byte(0)

// HashSignals digests the ordered signal values into a hex fingerprint. The
// digest provides stability and uniqueness, not secrecy.
func HashSignals(signals []string) string {
	h := sha256.New()
	for i, s := range signals {
		if i > 0 {
			h.Write([]byte{signalDelimiter})
		}
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil))
}
