package twofa

import (
	"context"
	"testing"

	"github.com/trustkit/twofa/session"
)

func TestChallengeOnLoginNotEnabled(t *testing.T) {
	store := newMemoryPrincipalStore()
	store.addPrincipal("user-1", "user@example.com")
	cfg := testConfig()
	engine, rdb, cleanup := newTestEngine(t, cfg, store)
	defer cleanup()

	sess := newLoginSession(t, rdb, cfg, nil)

	challenged, err := engine.ChallengeOnLogin(context.Background(), sess.ID, "user-1", testRequest())
	if err != nil {
		t.Fatalf("ChallengeOnLogin failed: %v", err)
	}
	if challenged {
		t.Fatal("principal without two-factor must not be challenged")
	}
}

func TestChallengeOnLoginTrustedDevice(t *testing.T) {
	store := newMemoryPrincipalStore()
	store.addPrincipal("user-1", "user@example.com")
	cfg := testConfig()
	engine, rdb, cleanup := newTestEngine(t, cfg, store)
	defer cleanup()

	req := testRequest()
	enroll(t, engine, "user-1", req)

	sess := newLoginSession(t, rdb, cfg, nil)
	challenged, err := engine.ChallengeOnLogin(context.Background(), sess.ID, "user-1", req)
	if err != nil {
		t.Fatalf("ChallengeOnLogin failed: %v", err)
	}
	if challenged {
		t.Fatal("trusted device must skip the challenge")
	}

	after, err := session.NewStore(rdb, cfg.Session.RedisPrefix).Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("session gone: %v", err)
	}
	if after.PendingUserID != "" {
		t.Fatal("no challenge should be planted on a trusted device")
	}
}

func TestChallengeOnLoginUnknownDevice(t *testing.T) {
	store := newMemoryPrincipalStore()
	store.addPrincipal("user-1", "user@example.com")
	cfg := testConfig()
	engine, rdb, cleanup := newTestEngine(t, cfg, store)
	defer cleanup()

	enroll(t, engine, "user-1", testRequest())

	sess := newLoginSession(t, rdb, cfg, nil)
	challenged, err := engine.ChallengeOnLogin(context.Background(), sess.ID, "user-1", secondDeviceRequest())
	if err != nil {
		t.Fatalf("ChallengeOnLogin failed: %v", err)
	}
	if !challenged {
		t.Fatal("unknown device must be challenged")
	}

	after, err := session.NewStore(rdb, cfg.Session.RedisPrefix).Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("session gone: %v", err)
	}
	if after.PendingUserID != "user-1" {
		t.Fatalf("challenge not planted: %+v", after)
	}
	if after.UserID != "" {
		t.Fatal("challenge must not log the principal in")
	}
}

func TestChallengeOnLoginMissingSession(t *testing.T) {
	store := newMemoryPrincipalStore()
	store.addPrincipal("user-1", "user@example.com")
	engine, _, cleanup := newTestEngine(t, testConfig(), store)
	defer cleanup()

	enroll(t, engine, "user-1", testRequest())

	if _, err := engine.ChallengeOnLogin(context.Background(), "no-such-session", "user-1", secondDeviceRequest()); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	store := newMemoryPrincipalStore()
	cfg := testConfig()
	engine, rdb, cleanup := newTestEngine(t, cfg, store)
	defer cleanup()

	sess := newLoginSession(t, rdb, cfg, func(s *session.Session) {
		s.UserID = "user-1"
		s.PendingUserID = ""
	})

	if err := engine.Logout(context.Background(), sess.ID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := session.NewStore(rdb, cfg.Session.RedisPrefix).Get(context.Background(), sess.ID); err != session.ErrNotFound {
		t.Fatalf("session should be gone, got %v", err)
	}

	// Logging out a dead session is a no-op, not an error.
	if err := engine.Logout(context.Background(), sess.ID); err != nil {
		t.Fatalf("repeated Logout failed: %v", err)
	}
	if err := engine.Logout(context.Background(), ""); err != nil {
		t.Fatalf("empty-ID Logout failed: %v", err)
	}
}

func TestLogoutDiscardsPendingChallenge(t *testing.T) {
	store := newMemoryPrincipalStore()
	store.addPrincipal("user-1", "user@example.com")
	cfg := testConfig()
	engine, rdb, cleanup := newTestEngine(t, cfg, store)
	defer cleanup()

	_, codes := enroll(t, engine, "user-1", testRequest())

	sess := newLoginSession(t, rdb, cfg, func(s *session.Session) {
		s.PendingUserID = "user-1"
	})

	if err := engine.Logout(context.Background(), sess.ID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// The challenge died with the session.
	if _, err := engine.Verify(context.Background(), sess.ID, codes[0], false, testRequest()); err != ErrNoPendingChallenge {
		t.Fatalf("expected ErrNoPendingChallenge after logout, got %v", err)
	}
}
