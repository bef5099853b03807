// Command twofa-loadtest measures access-gate and session-store throughput
// against a Redis backend. Without -redis-addr it spins up an embedded
// miniredis, which is good enough for relative comparisons.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	twofa "github.com/trustkit/twofa"
	"github.com/trustkit/twofa/session"
)

type principalStore struct {
	principals map[string]twofa.Principal
	mu         sync.RWMutex
}

func (s *principalStore) GetPrincipal(_ context.Context, id string) (twofa.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[id]
	if !ok {
		return twofa.Principal{}, twofa.ErrPrincipalNotFound
	}
	return p, nil
}

func (s *principalStore) SaveTwoFactor(_ context.Context, id string, state twofa.TwoFactorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.principals[id]
	if !ok {
		return twofa.ErrPrincipalNotFound
	}
	p.TwoFactor = state
	s.principals[id] = p
	return nil
}

func main() {
	var (
		sessions    = flag.Int("sessions", 50000, "number of logged-in sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "tfs", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	client := redis.NewClient(&redis.Options{Addr: addr, PoolSize: *concurrency})
	defer client.Close()

	cfg := twofa.DefaultConfig()
	cfg.TOTP.Issuer = "twofa-loadtest"
	cfg.Vault.Key = bytes.Repeat([]byte{0x42}, 32)
	cfg.Token.SigningKey = bytes.Repeat([]byte{0x24}, 32)
	cfg.Session.RedisPrefix = *prefix
	cfg.Audit.Enabled = false

	req := twofa.RequestContext{
		IP:                "203.0.113.7",
		UserAgent:         "loadtest/1",
		AcceptLanguage:    "en-US",
		AcceptEncoding:    "gzip",
		ClientFingerprint: "loadtest-client",
	}

	store := &principalStore{principals: map[string]twofa.Principal{}}
	now := time.Now()
	for i := 0; i < *sessions; i++ {
		id := fmt.Sprintf("user-%d", i)
		p := twofa.Principal{ID: id, Identifier: id + "@loadtest"}
		p.TwoFactor.ConfirmedAt = now.Unix()
		p.TwoFactor.TrustedDevices = twofa.AddTrust(nil, twofa.Fingerprint(req), req.ClientFingerprint, "loadtest", now, cfg.Trust.TTL)
		store.principals[id] = p
	}

	engine, err := twofa.New().
		WithConfig(cfg).
		WithRedis(client).
		WithPrincipalStore(store).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	sessionStore := session.NewStore(client, *prefix)

	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	ids := make([]string, *sessions)
	for i := 0; i < *sessions; i++ {
		sess, err := sessionStore.New(ctx, cfg.Session.Lifetime)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
		sess.UserID = fmt.Sprintf("user-%d", i)
		if err := sessionStore.Save(ctx, sess, cfg.Session.Lifetime); err != nil {
			fmt.Fprintf(os.Stderr, "seed save failed: %v\n", err)
			os.Exit(1)
		}
		ids[i] = sess.ID
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	gateStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		id := ids[r.Intn(len(ids))]
		decision, err := engine.AuthorizeRequest(ctx, id, req, false)
		if err != nil {
			return err
		}
		if decision != twofa.DecisionAllow {
			return fmt.Errorf("unexpected decision %v", decision)
		}
		return nil
	})

	sessionStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		_, err := sessionStore.Get(ctx, ids[r.Intn(len(ids))])
		return err
	})

	fmt.Println("---- results ----")
	printStats("gate", gateStats)
	printStats("session-get", sessionStats)
}

func runPhase(ops, concurrency int, op func(*rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
