package twofa

import (
	"context"
	"errors"
	"time"

	"github.com/trustkit/twofa/session"
)

// Authorize is the per-request access gate. It runs before business logic
// and reads state only; the sole observable side effect is a metrics
// increment.
//
// First matching rule wins:
//
//  1. no principal: allow, upstream auth owns anonymous traffic
//  2. exempt route (two-factor management, logout): allow
//  3. enrollment never completed: deny with SetupRequired
//  4. device trusted: allow
//  5. session already verified: allow
//  6. otherwise: deny with VerificationRequired
func (e *Engine) Authorize(principal *Principal, sess *session.Session, req RequestContext, exempt bool) GateDecision {
	if principal == nil {
		e.metricInc(MetricGateAllowed)
		return DecisionAllow
	}
	if exempt {
		e.metricInc(MetricGateAllowed)
		return DecisionAllow
	}
	if !principal.TwoFactor.Enabled() {
		e.metricInc(MetricGateSetupRequired)
		return DecisionSetupRequired
	}
	if IsTrusted(principal.TwoFactor.TrustedDevices, Fingerprint(req), req.ClientFingerprint, time.Now()) {
		e.metricInc(MetricGateAllowed)
		return DecisionAllow
	}
	if sess != nil && sess.TwoFactorVerified {
		e.metricInc(MetricGateAllowed)
		return DecisionAllow
	}
	e.metricInc(MetricGateVerificationRequired)
	return DecisionVerificationRequired
}

// AuthorizeRequest resolves the session and principal behind a session ID
// and runs [Engine.Authorize]. A missing session, a session with no
// logged-in user, or a session whose user no longer exists counts as
// "no principal": the gate delegates those to upstream authentication.
func (e *Engine) AuthorizeRequest(ctx context.Context, sessionID string, req RequestContext, exempt bool) (GateDecision, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	if sessionID == "" {
		return e.Authorize(nil, nil, req, exempt), nil
	}

	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		if isSessionNotFound(err) {
			return e.Authorize(nil, nil, req, exempt), nil
		}
		return 0, ErrSessionUnavailable
	}
	if sess.UserID == "" {
		return e.Authorize(nil, sess, req, exempt), nil
	}

	principal, err := e.loadPrincipal(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return e.Authorize(nil, sess, req, exempt), nil
		}
		return 0, err
	}
	return e.Authorize(&principal, sess, req, exempt), nil
}
