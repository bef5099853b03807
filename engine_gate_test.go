package twofa

import (
	"context"
	"testing"
	"time"

	"github.com/trustkit/twofa/session"
)

func TestAuthorizeDecisionTable(t *testing.T) {
	store := newMemoryPrincipalStore()
	engine, _, cleanup := newTestEngine(t, testConfig(), store)
	defer cleanup()

	req := testRequest()
	now := time.Now()

	enabled := Principal{ID: "user-1"}
	enabled.TwoFactor.ConfirmedAt = now.Unix()
	enabled.TwoFactor.TrustedDevices = AddTrust(nil, Fingerprint(req), req.ClientFingerprint, "laptop", now, time.Hour)

	enabledUntrusted := Principal{ID: "user-2"}
	enabledUntrusted.TwoFactor.ConfirmedAt = now.Unix()

	notEnrolled := Principal{ID: "user-3"}

	verifiedSess := &session.Session{ID: "s1", UserID: "user-2", TwoFactorVerified: true}
	plainSess := &session.Session{ID: "s2", UserID: "user-2"}

	cases := []struct {
		name      string
		principal *Principal
		sess      *session.Session
		exempt    bool
		want      GateDecision
	}{
		{"no principal", nil, nil, false, DecisionAllow},
		{"exempt route", &notEnrolled, plainSess, true, DecisionAllow},
		{"not enrolled", &notEnrolled, plainSess, false, DecisionSetupRequired},
		{"trusted device", &enabled, plainSess, false, DecisionAllow},
		{"verified session", &enabledUntrusted, verifiedSess, false, DecisionAllow},
		{"enabled untrusted unverified", &enabledUntrusted, plainSess, false, DecisionVerificationRequired},
		{"nil session untrusted", &enabledUntrusted, nil, false, DecisionVerificationRequired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := engine.Authorize(tc.principal, tc.sess, req, tc.exempt); got != tc.want {
				t.Fatalf("Authorize = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAuthorizeExemptBeatsSetupRequired(t *testing.T) {
	engine, _, cleanup := newTestEngine(t, testConfig(), newMemoryPrincipalStore())
	defer cleanup()

	// A principal who never enrolled must still reach the enrollment
	// endpoints themselves.
	p := Principal{ID: "user-1"}
	if got := engine.Authorize(&p, nil, testRequest(), true); got != DecisionAllow {
		t.Fatalf("exempt rule must win over SetupRequired, got %v", got)
	}
}

func TestAuthorizeTrustedDeviceIgnoresExpiredRecords(t *testing.T) {
	engine, _, cleanup := newTestEngine(t, testConfig(), newMemoryPrincipalStore())
	defer cleanup()

	req := testRequest()
	p := Principal{ID: "user-1"}
	p.TwoFactor.ConfirmedAt = time.Now().Unix()
	p.TwoFactor.TrustedDevices = AddTrust(nil, Fingerprint(req), req.ClientFingerprint, "old laptop", time.Now().Add(-48*time.Hour), time.Hour)

	if got := engine.Authorize(&p, nil, req, false); got != DecisionVerificationRequired {
		t.Fatalf("expired trust must not allow, got %v", got)
	}
}

func TestAuthorizeRequestResolvesSession(t *testing.T) {
	store := newMemoryPrincipalStore()
	store.addPrincipal("user-1", "user@example.com")
	cfg := testConfig()
	engine, rdb, cleanup := newTestEngine(t, cfg, store)
	defer cleanup()

	enroll(t, engine, "user-1", testRequest())

	// Logged-in session on the enrolling (trusted) device.
	sess := newLoginSession(t, rdb, cfg, func(s *session.Session) {
		s.UserID = "user-1"
	})
	decision, err := engine.AuthorizeRequest(context.Background(), sess.ID, testRequest(), false)
	if err != nil {
		t.Fatalf("AuthorizeRequest failed: %v", err)
	}
	if decision != DecisionAllow {
		t.Fatalf("trusted device should be allowed, got %v", decision)
	}

	// Same session from an unknown device.
	decision, err = engine.AuthorizeRequest(context.Background(), sess.ID, secondDeviceRequest(), false)
	if err != nil {
		t.Fatalf("AuthorizeRequest failed: %v", err)
	}
	if decision != DecisionVerificationRequired {
		t.Fatalf("unknown device should need verification, got %v", decision)
	}

	// Missing session counts as anonymous.
	decision, err = engine.AuthorizeRequest(context.Background(), "no-such-session", testRequest(), false)
	if err != nil {
		t.Fatalf("AuthorizeRequest failed: %v", err)
	}
	if decision != DecisionAllow {
		t.Fatalf("anonymous traffic belongs to upstream auth, got %v", decision)
	}
}

func TestAuthorizeRequestDeletedPrincipalDegradesToAnonymous(t *testing.T) {
	store := newMemoryPrincipalStore()
	cfg := testConfig()
	engine, rdb, cleanup := newTestEngine(t, cfg, store)
	defer cleanup()

	// A live session whose user was since removed from the store.
	sess := newLoginSession(t, rdb, cfg, func(s *session.Session) {
		s.UserID = "deleted-user"
	})
	decision, err := engine.AuthorizeRequest(context.Background(), sess.ID, testRequest(), false)
	if err != nil {
		t.Fatalf("AuthorizeRequest failed: %v", err)
	}
	if decision != DecisionAllow {
		t.Fatalf("stale session should fall back to upstream auth, got %v", decision)
	}
}

// TestGateLifecycle walks the whole account lifecycle through the gate:
// setup required, enrollment, trusted device, second device challenge,
// break-glass recovery, back to setup required.
func TestGateLifecycle(t *testing.T) {
	store := newMemoryPrincipalStore()
	store.addPrincipal("user-1", "user@example.com")
	cfg := testConfig()
	engine, rdb, cleanup := newTestEngine(t, cfg, store)
	defer cleanup()

	ctx := context.Background()
	laptop := testRequest()
	phone := secondDeviceRequest()

	login := func() *session.Session {
		return newLoginSession(t, rdb, cfg, func(s *session.Session) {
			s.UserID = "user-1"
		})
	}

	// Before enrollment every protected request demands setup.
	sess := login()
	if d, _ := engine.AuthorizeRequest(ctx, sess.ID, laptop, false); d != DecisionSetupRequired {
		t.Fatalf("step 1: want SetupRequired, got %v", d)
	}

	// Enroll on the laptop; the laptop is auto-trusted.
	_, codes := enroll(t, engine, "user-1", laptop)
	if d, _ := engine.AuthorizeRequest(ctx, sess.ID, laptop, false); d != DecisionAllow {
		t.Fatalf("step 2: enrolling device should pass, got %v", d)
	}

	// The phone is unknown and gets challenged at login.
	phoneSess := newLoginSession(t, rdb, cfg, nil)
	challenged, err := engine.ChallengeOnLogin(ctx, phoneSess.ID, "user-1", phone)
	if err != nil {
		t.Fatalf("ChallengeOnLogin failed: %v", err)
	}
	if !challenged {
		t.Fatal("step 3: unknown device should be challenged")
	}

	// The phone breaks glass with a recovery code.
	result, err := engine.Verify(ctx, phoneSess.ID, codes[0], false, phone)
	if err != nil {
		t.Fatalf("recovery Verify failed: %v", err)
	}
	if result.Outcome != OutcomeResetRequired {
		t.Fatalf("step 4: want OutcomeResetRequired, got %v", result.Outcome)
	}

	// Everything was reset, so even the once-trusted laptop is back to
	// setup required.
	sess2 := login()
	if d, _ := engine.AuthorizeRequest(ctx, sess2.ID, laptop, false); d != DecisionSetupRequired {
		t.Fatalf("step 5: want SetupRequired after reset, got %v", d)
	}

	// After re-enrolling, the spent recovery code stays dead.
	enroll(t, engine, "user-1", laptop)
	phoneSess2 := newLoginSession(t, rdb, cfg, nil)
	if challenged, err := engine.ChallengeOnLogin(ctx, phoneSess2.ID, "user-1", phone); err != nil || !challenged {
		t.Fatalf("step 6: challenge not planted: challenged=%v err=%v", challenged, err)
	}
	if _, err := engine.Verify(ctx, phoneSess2.ID, codes[0], false, phone); err != ErrInvalidCode {
		t.Fatalf("step 6: reused recovery code must fail with ErrInvalidCode, got %v", err)
	}
}
