package goCaptcha

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricChallengeIssued)

	if got := m.Value(MetricChallengeIssued); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricVerifySuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricVerifySuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	for _, d := range []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	} {
		m.Observe(MetricVerifyLatency, d)
	}
	m.Observe(MetricChallengeIssued, time.Millisecond)
	m.Inc(MetricIssueLatency)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricVerifyLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	for i, v := range snap.Histograms[MetricIssueLatency] {
		if v != 0 {
			t.Fatalf("issue bucket %d expected 0, got %d", i, v)
		}
	}
	if _, ok := snap.Counters[MetricIssueLatency]; ok {
		t.Fatal("latency metrics must not appear as counters")
	}
}

func TestEngineMetricsCountOutcomes(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Bypass.Answer = "letmein"
	engine := buildTestEngine(t, cfg, "7k9m2p", newTestClock())
	ctx := context.Background()

	issued, err := engine.IssueChallenge(ctx, "abc")
	if err != nil {
		t.Fatalf("IssueChallenge failed: %v", err)
	}
	_, _ = engine.VerifyAnswer(ctx, VerifyRequest{Nonce: "abc", Answer: "wrong1", Validation: issued.Validation})
	_, _ = engine.VerifyAnswer(ctx, VerifyRequest{Nonce: "xyz", Answer: "7k9m2p", Validation: issued.Validation})
	_, _ = engine.VerifyAnswer(ctx, VerifyRequest{Nonce: "abc", Answer: "7k9m2p", Validation: "junk"})
	res, err := engine.VerifyAnswer(ctx, VerifyRequest{Nonce: "abc", Answer: "7k9m2p", Validation: issued.Validation})
	if err != nil {
		t.Fatalf("VerifyAnswer failed: %v", err)
	}
	_, _ = engine.VerifyAnswer(ctx, VerifyRequest{Nonce: "abc", Answer: "letmein"})
	_, _ = engine.VerifyCredential(allowedCtx(), res.JWT, "abc")
	_, _ = engine.VerifyCredential(allowedCtx(), res.JWT, "nope")
	_, _ = engine.VerifyCredential(WithClientIP(ctx, "192.0.2.1"), res.JWT, "abc")

	snap := engine.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricChallengeIssued:      1,
		MetricVerifyFailure:        3,
		MetricVerifyAnswerMismatch: 1,
		MetricVerifyNonceMismatch:  1,
		MetricVerifyTokenInvalid:   1,
		MetricVerifySuccess:        2,
		MetricVerifyBypass:         1,
		MetricCredentialIssued:     2,
		MetricCredentialValid:      1,
		MetricCredentialInvalid:    1,
		MetricCallerRejected:       1,
	}
	for id, v := range want {
		if got := snap.Counters[id]; got != v {
			t.Fatalf("metric %d: expected %d, got %d", id, v, got)
		}
	}

	var verifySamples uint64
	for _, v := range snap.Histograms[MetricVerifyLatency] {
		verifySamples += v
	}
	if verifySamples != 5 {
		t.Fatalf("expected 5 verify latency samples, got %d", verifySamples)
	}
}

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricVerifySuccess)
	}
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricVerifySuccess)
		}
	})
}
