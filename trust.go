package twofa

import (
	"time"

	"github.com/google/uuid"
)

// IsTrusted reports whether any unexpired record matches the server
// fingerprint OR, when a client fingerprint is supplied, matches it. The OR
// across the two keys is intentional: it tolerates a device whose
// server-observable signals changed (new network, OS update) as long as the
// stable client fingerprint persists, and vice versa.
//
// Expired records are treated as absent but not deleted here; pruning is a
// maintenance concern off the hot path.
func IsTrusted(records []TrustRecord, serverFingerprint, clientFingerprint string, now time.Time) bool {
	for _, r := range records {
		if r.Expired(now) {
			continue
		}
		if r.ServerFingerprint == serverFingerprint {
			return true
		}
		if clientFingerprint != "" && r.ClientFingerprint != "" && r.ClientFingerprint == clientFingerprint {
			return true
		}
	}
	return false
}

// AddTrust appends a new trust record expiring TTL from now and returns the
// extended list. It does not deduplicate: re-trusting the same device keeps
// multiple records, each with its own expiry.
func AddTrust(records []TrustRecord, serverFingerprint, clientFingerprint, label string, now time.Time, ttl time.Duration) []TrustRecord {
	out := make([]TrustRecord, len(records), len(records)+1)
	copy(out, records)
	return append(out, TrustRecord{
		ID:                uuid.NewString(),
		ServerFingerprint: serverFingerprint,
		ClientFingerprint: clientFingerprint,
		Label:             label,
		AddedAt:           now.Unix(),
		ExpiresAt:         now.Add(ttl).Unix(),
	})
}

// RemoveTrust deletes every record whose server fingerprint equals the given
// value, exact match only, and returns the filtered list.
func RemoveTrust(records []TrustRecord, serverFingerprint string) []TrustRecord {
	out := make([]TrustRecord, 0, len(records))
	for _, r := range records {
		if r.ServerFingerprint == serverFingerprint {
			continue
		}
		out = append(out, r)
	}
	return out
}

// PruneTrust drops expired records. The engine applies it when loading trust
// lists for mutation so stale records do not accumulate unbounded.
func PruneTrust(records []TrustRecord, now time.Time) []TrustRecord {
	out := make([]TrustRecord, 0, len(records))
	for _, r := range records {
		if r.Expired(now) {
			continue
		}
		out = append(out, r)
	}
	return out
}
