package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/render"
	"github.com/MrEthical07/goCaptcha/seal"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadtestSecret = "loadtest-secret-loadtest-secret-xx"

// issued is one challenge waiting to be solved.
type issued struct {
	nonce      string
	validation string
	jwt        string
}

// cannedRenderer skips image drawing so the run measures sealing and
// verification only.
type cannedRenderer struct{}

func (cannedRenderer) Render(_ context.Context, spec render.Spec) (render.Challenge, error) {
	answer, err := render.RandomAnswer(spec.Length, spec.Alphabet)
	if err != nil {
		return render.Challenge{}, err
	}
	return render.Challenge{Answer: answer, Artifact: "data:image/png;base64,", MediaType: "image/png"}, nil
}

func main() {
	var (
		ops         = flag.Int("ops", 100000, "operations per phase (issue, verify, credential)")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		replayOn    = flag.Bool("replay", false, "enable single-use validation tokens backed by redis")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		drawImages  = flag.Bool("images", false, "render real PNG challenges instead of canned ones")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := goCaptcha.DefaultConfig()
	cfg.Credential.PrivateKey = []byte(loadtestSecret)
	cfg.Audio.Enabled = false
	cfg.Replay.Enabled = *replayOn
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	builder := goCaptcha.New().WithConfig(cfg)
	if !*drawImages {
		builder = builder.WithRenderer(cannedRenderer{})
	}
	if *replayOn {
		client, cleanup, err := openRedis(*redisAddr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer cleanup()
		builder = builder.WithRedis(client)
	}

	engine, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	solver, err := newSolver(cfg.Sealing.KeyJWK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "solver: %v\n", err)
		os.Exit(1)
	}

	challenges := make([]issued, *ops)
	issueStats := runPhase(*ops, *concurrency, func(i int) error {
		nonce := fmt.Sprintf("nonce-%d", i)
		res, err := engine.IssueChallenge(ctx, nonce)
		if err != nil {
			return err
		}
		challenges[i] = issued{nonce: nonce, validation: res.Validation}
		return nil
	})

	verifyStats := runPhase(*ops, *concurrency, func(i int) error {
		c := &challenges[i]
		if c.validation == "" {
			return fmt.Errorf("challenge %d was not issued", i)
		}
		answer, err := solver.answer(c.validation)
		if err != nil {
			return err
		}
		res, err := engine.VerifyAnswer(ctx, goCaptcha.VerifyRequest{
			Nonce:      c.nonce,
			Answer:     answer,
			Validation: c.validation,
		})
		if err != nil {
			return err
		}
		c.jwt = res.JWT
		return nil
	})

	allowed := goCaptcha.WithClientIP(ctx, "127.0.0.1")
	credentialStats := runPhase(*ops, *concurrency, func(i int) error {
		_, err := engine.VerifyCredential(allowed, challenges[i].jwt, challenges[i].nonce)
		return err
	})

	fmt.Println("---- results ----")
	printStats("issue", issueStats)
	printStats("verify", verifyStats)
	printStats("credential", credentialStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("counters: issued=%d verified=%d rejected=%d replay_detected=%d\n",
		snap.Counters[goCaptcha.MetricChallengeIssued],
		snap.Counters[goCaptcha.MetricVerifySuccess],
		snap.Counters[goCaptcha.MetricVerifyFailure],
		snap.Counters[goCaptcha.MetricReplayDetected],
	)
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// solver plays the user by reading the answer out of the sealed record.
type solver struct {
	codec *seal.Codec
}

func newSolver(jwk []byte) (*solver, error) {
	key, err := seal.ParseKey(jwk)
	if err != nil {
		return nil, err
	}
	codec, err := seal.NewCodec(key)
	if err != nil {
		return nil, err
	}
	return &solver{codec: codec}, nil
}

func (s *solver) answer(validation string) (string, error) {
	rec, err := s.codec.UnsealRecord(validation)
	if err != nil {
		return "", err
	}
	return rec.Answer, nil
}

// runPhase calls op for every index in [0, ops) from concurrency workers.
func runPhase(ops, concurrency int, op func(i int) error) phaseStats {
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
		go func() {
			defer wg.Done()
			local := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					break
				}
				t0 := time.Now()
				if err := op(i); err != nil {
					atomic.AddInt64(&failures, 1)
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}()
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
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-10s ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
