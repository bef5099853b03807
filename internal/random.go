package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
)

// RecoveryCodeAlphabet deliberately omits characters users confuse when
// reading codes aloud or off paper (I, L, O, U, 0, 1).
const RecoveryCodeAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"

const sessionIDSize = 16

type SessionID [sessionIDSize]byte

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewRecoveryCode produces one recovery code: two independently random
// segments joined by a dash.
func NewRecoveryCode(segmentLength int) (string, error) {
	first, err := randomSegment(segmentLength)
	if err != nil {
		return "", err
	}
	second, err := randomSegment(segmentLength)
	if err != nil {
		return "", err
	}
	return first + "-" + second, nil
}

func randomSegment(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	max := big.NewInt(int64(len(RecoveryCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(RecoveryCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// CanonicalizeRecoveryCode normalizes user input before comparison: case,
// surrounding whitespace, and the dash separator all become irrelevant.
func CanonicalizeRecoveryCode(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}
