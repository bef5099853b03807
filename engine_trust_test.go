package twofa

import (
	"context"
	"testing"
	"time"
)

func TestListTrustedDevices(t *testing.T) {
	store := newMemoryPrincipalStore()
	store.addPrincipal("user-1", "user@example.com")
	engine, _, cleanup := newTestEngine(t, testConfig(), store)
	defer cleanup()

	req := testRequest()
	enroll(t, engine, "user-1", req)

	devices, err := engine.ListTrustedDevices(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListTrustedDevices failed: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devices))
	}
	if devices[0].Label != req.UserAgent {
		t.Fatalf("unexpected label %q", devices[0].Label)
	}
}

func TestListTrustedDevicesFiltersExpired(t *testing.T) {
	store := newMemoryPrincipalStore()
	store.addPrincipal("user-1", "user@example.com")
	engine, _, cleanup := newTestEngine(t, testConfig(), store)
	defer cleanup()

	enroll(t, engine, "user-1", testRequest())

	// Plant an expired record directly in the store.
	state := store.state(t, "user-1")
	state.TrustedDevices = append(state.TrustedDevices, TrustRecord{
		ID:                "stale",
		ServerFingerprint: "fp-stale",
		AddedAt:           time.Now().Add(-48 * time.Hour).Unix(),
		ExpiresAt:         time.Now().Add(-24 * time.Hour).Unix(),
	})
	if err := store.SaveTwoFactor(context.Background(), "user-1", state); err != nil {
		t.Fatalf("SaveTwoFactor failed: %v", err)
	}

	devices, err := engine.ListTrustedDevices(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListTrustedDevices failed: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expired record leaked into the view: %d devices", len(devices))
	}

	// The view is read-only: the stored list still carries both.
	if got := len(store.state(t, "user-1").TrustedDevices); got != 2 {
		t.Fatalf("listing must not rewrite the stored records, got %d", got)
	}
}

func TestRevokeTrustedDevice(t *testing.T) {
	store := newMemoryPrincipalStore()
	store.addPrincipal("user-1", "user@example.com")
	engine, _, cleanup := newTestEngine(t, testConfig(), store)
	defer cleanup()

	req := testRequest()
	enroll(t, engine, "user-1", req)

	if err := engine.RevokeTrustedDevice(context.Background(), "user-1", Fingerprint(req)); err != nil {
		t.Fatalf("RevokeTrustedDevice failed: %v", err)
	}

	devices, err := engine.ListTrustedDevices(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListTrustedDevices failed: %v", err)
	}
	if len(devices) != 0 {
		t.Fatalf("expected no devices after revocation, got %d", len(devices))
	}
}

func TestRevokeTrustedDeviceUnknownFingerprint(t *testing.T) {
	store := newMemoryPrincipalStore()
	store.addPrincipal("user-1", "user@example.com")
	engine, _, cleanup := newTestEngine(t, testConfig(), store)
	defer cleanup()

	enroll(t, engine, "user-1", testRequest())

	if err := engine.RevokeTrustedDevice(context.Background(), "user-1", "no-such-fp"); err != ErrTrustedDeviceNotFound {
		t.Fatalf("expected ErrTrustedDeviceNotFound, got %v", err)
	}
}

func TestDisable(t *testing.T) {
	store := newMemoryPrincipalStore()
	store.addPrincipal("user-1", "user@example.com")
	engine, _, cleanup := newTestEngine(t, testConfig(), store)
	defer cleanup()

	secret, _ := enroll(t, engine, "user-1", testRequest())

	if err := engine.Disable(context.Background(), "user-1", codeForNow(t, secret, engine.config.TOTP)); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}

	state := store.state(t, "user-1")
	if !state.Secret.Absent() || !state.RecoveryCodes.Absent() {
		t.Fatal("disable must wipe secret and recovery codes")
	}
	if state.ConfirmedAt != 0 || len(state.TrustedDevices) != 0 {
		t.Fatal("disable must clear confirmation and trust records")
	}
}

func TestDisableRequiresValidCode(t *testing.T) {
	store := newMemoryPrincipalStore()
	store.addPrincipal("user-1", "user@example.com")
	engine, _, cleanup := newTestEngine(t, testConfig(), store)
	defer cleanup()

	enroll(t, engine, "user-1", testRequest())

	if err := engine.Disable(context.Background(), "user-1", "000000"); err != ErrInvalidCode {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if !store.state(t, "user-1").Enabled() {
		t.Fatal("failed disable must leave two-factor on")
	}
}

func TestDisableNotEnrolled(t *testing.T) {
	store := newMemoryPrincipalStore()
	store.addPrincipal("user-1", "user@example.com")
	engine, _, cleanup := newTestEngine(t, testConfig(), store)
	defer cleanup()

	if err := engine.Disable(context.Background(), "user-1", "123456"); err != ErrNotEnrolled {
		t.Fatalf("expected ErrNotEnrolled, got %v", err)
	}
}
