package twofa

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/trustkit/twofa/internal"
)

// EncryptedBlob is an opaque encrypted-at-rest value with an explicit absent
// state. Representing absence in the type keeps "present but undecryptable"
// a surfaced error instead of a silent null.
type EncryptedBlob struct {
	data []byte
}

// EncryptedBlobFromBytes wraps persisted ciphertext loaded by a
// PrincipalStore. A nil or empty slice yields the absent blob.
func EncryptedBlobFromBytes(data []byte) EncryptedBlob {
	if len(data) == 0 {
		return EncryptedBlob{}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return EncryptedBlob{data: out}
}

// Absent reports whether the blob holds no value.
func (b EncryptedBlob) Absent() bool {
	return len(b.data) == 0
}

// Bytes returns a copy of the ciphertext for persistence, nil when absent.
func (b EncryptedBlob) Bytes() []byte {
	if len(b.data) == 0 {
		return nil
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// SecretVault seals and opens the enrollment secret and the recovery code
// set with XChaCha20-Poly1305. The random nonce is prefixed to the
// ciphertext.
type SecretVault struct {
	aead cipher.AEAD
}

// NewSecretVault builds a vault over a 32-byte key.
func NewSecretVault(key []byte) (*SecretVault, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.New("vault key must be exactly 32 bytes")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &SecretVault{aead: aead}, nil
}

// Seal encrypts plaintext into a storable blob.
func (v *SecretVault) Seal(plaintext []byte) (EncryptedBlob, error) {
	if v == nil || v.aead == nil {
		return EncryptedBlob{}, ErrEngineNotReady
	}
	nonce := make([]byte, v.aead.NonceSize(), v.aead.NonceSize()+len(plaintext)+v.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return EncryptedBlob{}, err
	}
	return EncryptedBlob{data: v.aead.Seal(nonce, nonce, plaintext, nil)}, nil
}

// Open decrypts a blob. Absent blobs return ErrVaultEmpty; present but
// undecryptable blobs return ErrVaultCorrupt.
func (v *SecretVault) Open(blob EncryptedBlob) ([]byte, error) {
	if v == nil || v.aead == nil {
		return nil, ErrEngineNotReady
	}
	if blob.Absent() {
		return nil, ErrVaultEmpty
	}
	if len(blob.data) < v.aead.NonceSize()+v.aead.Overhead() {
		return nil, ErrVaultCorrupt
	}
	nonce, ciphertext := blob.data[:v.aead.NonceSize()], blob.data[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrVaultCorrupt
	}
	return plaintext, nil
}

// IssueRecoveryCodes generates a fresh code set, returning the plaintext
// codes exactly once alongside the sealed set. Codes cannot be re-displayed
// afterwards; regeneration is the only way to a readable set again.
func (v *SecretVault) IssueRecoveryCodes(count, segmentLength int) ([]string, EncryptedBlob, error) {
	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		code, err := internal.NewRecoveryCode(segmentLength)
		if err != nil {
			return nil, EncryptedBlob{}, err
		}
		codes = append(codes, code)
	}

	sealed, err := v.Seal([]byte(strings.Join(codes, "\n")))
	if err != nil {
		return nil, EncryptedBlob{}, err
	}
	return codes, sealed, nil
}

// ConsumeRecoveryCode checks the submitted code against the sealed set. On a
// match it removes exactly the matched code and reseals the remainder,
// enforcing one-time use. An absent blob fails closed with no error. Every
// stored code is compared in constant time, without early exit, so response
// timing does not reveal match position.
func (v *SecretVault) ConsumeRecoveryCode(blob EncryptedBlob, submitted string) (bool, EncryptedBlob, int, error) {
	if blob.Absent() {
		return false, blob, 0, nil
	}

	plaintext, err := v.Open(blob)
	if err != nil {
		return false, blob, 0, err
	}
	codes := strings.Split(string(plaintext), "\n")

	candidate := internal.CanonicalizeRecoveryCode(submitted)
	matched := -1
	for i, code := range codes {
		canonical := internal.CanonicalizeRecoveryCode(code)
		if subtle.ConstantTimeCompare([]byte(canonical), []byte(candidate)) == 1 && matched < 0 {
			matched = i
		}
	}
	if matched < 0 {
		return false, blob, len(codes), nil
	}

	remaining := make([]string, 0, len(codes)-1)
	remaining = append(remaining, codes[:matched]...)
	remaining = append(remaining, codes[matched+1:]...)
	if len(remaining) == 0 {
		return true, EncryptedBlob{}, 0, nil
	}

	resealed, err := v.Seal([]byte(strings.Join(remaining, "\n")))
	if err != nil {
		return false, blob, len(codes), err
	}
	return true, resealed, len(remaining), nil
}
