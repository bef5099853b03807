package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	twofa "github.com/trustkit/twofa"
)

// ClientFingerprintHeader is where browsers submit their client-computed
// fingerprint hash.
const ClientFingerprintHeader = "X-Device-Fingerprint"

type gateDecisionContextKey struct{}

// DecisionFromContext returns the gate decision the guard stored for an
// allowed request.
func DecisionFromContext(ctx context.Context) (twofa.GateDecision, bool) {
	d, ok := ctx.Value(gateDecisionContextKey{}).(twofa.GateDecision)
	return d, ok
}

// GuardOptions tunes the guard.
type GuardOptions struct {
	// ExemptPrefixes lists path prefixes the gate must not block: the
	// two-factor management routes themselves and logout.
	ExemptPrefixes []string
}

// Guard returns middleware enforcing the two-factor access gate on every
// request.
func Guard(engine *twofa.Engine, opts GuardOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			req := RequestFromHTTP(r)
			ctx := twofa.WithClientIP(r.Context(), req.IP)

			sessionID := ""
			if tok, ok := bearerToken(r.Header.Get("Authorization")); ok {
				if sid, err := engine.Tokens().Parse(tok); err == nil {
					sessionID = sid
				}
			}

			decision, err := engine.AuthorizeRequest(ctx, sessionID, req, isExempt(r.URL.Path, opts.ExemptPrefixes))
			if err != nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			switch decision {
			case twofa.DecisionAllow:
				ctx = context.WithValue(ctx, gateDecisionContextKey{}, decision)
				next.ServeHTTP(w, r.WithContext(ctx))
			case twofa.DecisionSetupRequired:
				writeSignal(w, "two_factor_setup_required")
			case twofa.DecisionVerificationRequired:
				writeSignal(w, "two_factor_verification_required")
			default:
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}

// RequestFromHTTP extracts the fingerprint signals from an incoming request.
func RequestFromHTTP(r *http.Request) twofa.RequestContext {
	return twofa.RequestContext{
		IP:                remoteIP(r),
		UserAgent:         r.Header.Get("User-Agent"),
		AcceptLanguage:    r.Header.Get("Accept-Language"),
		AcceptEncoding:    r.Header.Get("Accept-Encoding"),
		ClientFingerprint: r.Header.Get(ClientFingerprintHeader),
	}
}

func writeSignal(w http.ResponseWriter, signal string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": signal})
}

func isExempt(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
