package twofa

import (
	"regexp"
	"strings"

	"github.com/trustkit/twofa/internal"
)

// uaVersionPattern matches the "/version" suffix of a user-agent product
// token, e.g. "/605.1.15" in "AppleWebKit/605.1.15".
var uaVersionPattern = regexp.MustCompile(`/[0-9][0-9A-Za-z._-]*`)

// NormalizeUserAgent strips version numbers from user-agent product tokens so
// that routine browser updates do not change the device fingerprint:
// "AppleWebKit/605.1.15" collapses to "AppleWebKit" and "Chrome/119.0.6045.123"
// to "Chrome". Surrounding whitespace is collapsed as well.
func NormalizeUserAgent(ua string) string {
	stripped := uaVersionPattern.ReplaceAllString(ua, "")
	return strings.Join(strings.Fields(stripped), " ")
}

// Fingerprint derives the server-observed device fingerprint from the
// request signals. The client fingerprint, when supplied, is folded into the
// digest as a fourth signal. Deterministic and side-effect free.
//
// Server-side signals alone are unstable on mobile networks; the
// client-computed fingerprint is more stable but spoofable. The combined hash
// produced here and the verbatim client fingerprint are therefore also
// matched independently by the trust store.
func Fingerprint(req RequestContext) string {
	signals := []string{
		NormalizeUserAgent(req.UserAgent),
		req.AcceptLanguage,
		req.AcceptEncoding,
	}
	if req.ClientFingerprint != "" {
		signals = append(signals, req.ClientFingerprint)
	}
	return internal.HashSignals(signals)
}
