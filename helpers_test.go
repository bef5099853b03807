package twofa

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"

	"github.com/trustkit/twofa/session"
)

type memoryPrincipalStore struct {
	mu         sync.Mutex
	principals map[string]Principal
	failSaves  bool
	saves      int
}

func newMemoryPrincipalStore() *memoryPrincipalStore {
	return &memoryPrincipalStore{
		principals: map[string]Principal{},
	}
}

func (s *memoryPrincipalStore) addPrincipal(id, identifier string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[id] = Principal{ID: id, Identifier: identifier}
}

func (s *memoryPrincipalStore) GetPrincipal(_ context.Context, principalID string) (Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.principals[principalID]
	if !ok {
		return Principal{}, ErrPrincipalNotFound
	}
	out := p
	out.TwoFactor.TrustedDevices = append([]TrustRecord(nil), p.TwoFactor.TrustedDevices...)
	return out, nil
}

func (s *memoryPrincipalStore) SaveTwoFactor(_ context.Context, principalID string, state TwoFactorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failSaves {
		return ErrPersistenceUnavailable
	}
	p, ok := s.principals[principalID]
	if !ok {
		return ErrPrincipalNotFound
	}
	state.TrustedDevices = append([]TrustRecord(nil), state.TrustedDevices...)
	p.TwoFactor = state
	s.principals[principalID] = p
	s.saves++
	return nil
}

func (s *memoryPrincipalStore) state(t *testing.T, principalID string) TwoFactorState {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.principals[principalID]
	if !ok {
		t.Fatalf("principal %q missing", principalID)
	}
	return p.TwoFactor
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.TOTP.Issuer = "twofa-test"
	cfg.Vault.Key = bytes.Repeat([]byte{0x42}, 32)
	cfg.Token.SigningKey = bytes.Repeat([]byte{0x24}, 32)
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, store *memoryPrincipalStore) (*Engine, *redis.Client, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithPrincipalStore(store).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, rdb, func() {
		engine.Close()
		mr.Close()
	}
}

func codeForNow(t *testing.T, secretBase32 string, cfg TOTPConfig) string {
	t.Helper()

	code, err := totp.GenerateCodeCustom(secretBase32, time.Now().UTC(), totp.ValidateOpts{
		Period:    uint(cfg.Period),
		Skew:      uint(cfg.Skew),
		Digits:    otp.Digits(cfg.Digits),
		Algorithm: totpAlgorithm(cfg.Algorithm),
	})
	if err != nil {
		t.Fatalf("GenerateCodeCustom failed: %v", err)
	}
	return code
}

func testRequest() RequestContext {
	return RequestContext{
		IP:                "203.0.113.7",
		UserAgent:         "Mozilla/5.0 (Macintosh) AppleWebKit/605.1.15 Chrome/119.0.6045.123 Safari/537.36",
		AcceptLanguage:    "en-US,en;q=0.9",
		AcceptEncoding:    "gzip, deflate, br",
		ClientFingerprint: "client-fp-1",
	}
}

// secondDeviceRequest differs from testRequest in every fingerprint signal.
func secondDeviceRequest() RequestContext {
	return RequestContext{
		IP:                "198.51.100.23",
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0) Gecko/20100101 Firefox/121.0",
		AcceptLanguage:    "de-DE,de;q=0.8",
		AcceptEncoding:    "gzip",
		ClientFingerprint: "client-fp-2",
	}
}

func newLoginSession(t *testing.T, rdb *redis.Client, cfg Config, mutate func(*session.Session)) *session.Session {
	t.Helper()

	store := session.NewStore(rdb, cfg.Session.RedisPrefix)
	sess, err := store.New(context.Background(), cfg.Session.Lifetime)
	if err != nil {
		t.Fatalf("session create failed: %v", err)
	}
	if mutate != nil {
		mutate(sess)
		if err := store.Save(context.Background(), sess, cfg.Session.Lifetime); err != nil {
			t.Fatalf("session save failed: %v", err)
		}
	}
	return sess
}

func enroll(t *testing.T, engine *Engine, principalID string, req RequestContext) (secret string, recoveryCodes []string) {
	t.Helper()

	setup, err := engine.BeginEnrollment(context.Background(), principalID)
	if err != nil {
		t.Fatalf("BeginEnrollment failed: %v", err)
	}
	code := codeForNow(t, setup.SecretBase32, engine.config.TOTP)
	codes, err := engine.ConfirmEnrollment(context.Background(), principalID, code, req)
	if err != nil {
		t.Fatalf("ConfirmEnrollment failed: %v", err)
	}
	return setup.SecretBase32, codes
}
