package twofa

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/trustkit/twofa/session"
	"github.com/trustkit/twofa/token"
)

// Engine is the two-factor policy core. Build one through [Builder.Build];
// instances are immutable and safe for concurrent use afterwards.
type Engine struct {
	config     Config
	vault      *SecretVault
	principals PrincipalStore
	sessions   SessionStore
	tokens     *token.Manager
	audit      *auditDispatcher
	metrics    *Metrics
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Tokens exposes the session-token manager for transport-layer callers like
// the middleware guard.
func (e *Engine) Tokens() *token.Manager {
	if e == nil {
		return nil
	}
	return e.tokens
}

func isSessionNotFound(err error) bool {
	return errors.Is(err, session.ErrNotFound)
}

func (e *Engine) ready() bool {
	return e != nil && e.vault != nil && e.principals != nil && e.sessions != nil
}

func (e *Engine) loadPrincipal(ctx context.Context, principalID string) (Principal, error) {
	principal, err := e.principals.GetPrincipal(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return Principal{}, ErrPrincipalNotFound
		}
		return Principal{}, ErrPersistenceUnavailable
	}
	return principal, nil
}

// codeMatches validates a submitted code against the decrypted secret inside
// the configured skew window. The demo override, when enabled and scoped to
// this principal, accepts its fixed code unconditionally; it is compared in
// constant time like everything else.
func (e *Engine) codeMatches(principalID, secretBase32, code string) bool {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return false
	}

	if e.config.Demo.Enabled &&
		principalID == e.config.Demo.PrincipalID &&
		subtle.ConstantTimeCompare([]byte(trimmed), []byte(e.config.Demo.Code)) == 1 {
		return true
	}

	ok, err := totp.ValidateCustom(trimmed, secretBase32, time.Now().UTC(), e.validateOpts())
	return err == nil && ok
}

func (e *Engine) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(e.config.TOTP.Period),
		Skew:      uint(e.config.TOTP.Skew),
		Digits:    otp.Digits(e.config.TOTP.Digits),
		Algorithm: totpAlgorithm(e.config.TOTP.Algorithm),
	}
}

func totpAlgorithm(name string) otp.Algorithm {
	switch strings.ToUpper(name) {
	case "", "SHA1":
		return otp.AlgorithmSHA1
	case "SHA256":
		return otp.AlgorithmSHA256
	case "SHA512":
		return otp.AlgorithmSHA512
	default:
		return otp.AlgorithmSHA1
	}
}
