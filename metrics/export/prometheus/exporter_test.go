package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/render"
)

type fakeSource struct {
	snapshot goCaptcha.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goCaptcha.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goCaptcha.MetricsSnapshot{
			Counters:   map[goCaptcha.MetricID]uint64{},
			Histograms: map[goCaptcha.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goCaptcha.MetricsSnapshot{
			Counters: map[goCaptcha.MetricID]uint64{
				goCaptcha.MetricChallengeIssued: 7,
			},
			Histograms: map[goCaptcha.MetricID][]uint64{
				goCaptcha.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"gocaptcha_challenge_issued_total 7",
		"# TYPE gocaptcha_verify_latency_seconds histogram",
		"gocaptcha_verify_latency_seconds_bucket{le=\"0.005\"} 1",
		"gocaptcha_verify_latency_seconds_bucket{le=\"+Inf\"} 36",
		"gocaptcha_verify_latency_seconds_count 36",
		"gocaptcha_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "gocaptcha_issue_latency_seconds") {
		t.Fatalf("histograms absent from the snapshot must not be rendered:\n%s", out)
	}
}

type staticRenderer struct{}

func (staticRenderer) Render(context.Context, render.Spec) (render.Challenge, error) {
	return render.Challenge{Answer: "abcdef", Artifact: "data:image/png;base64,AA"}, nil
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	engine, err := goCaptcha.New().
		WithRenderer(staticRenderer{}).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	if _, err := engine.IssueChallenge(context.Background(), "n"); err != nil {
		t.Fatalf("IssueChallenge failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	NewPrometheusExporter(engine).Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if !strings.Contains(rec.Body.String(), "gocaptcha_challenge_issued_total 1") {
		t.Fatalf("expected issued counter, got:\n%s", rec.Body.String())
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goCaptcha.MetricsSnapshot{
			Counters: map[goCaptcha.MetricID]uint64{
				goCaptcha.MetricChallengeIssued: 1000,
				goCaptcha.MetricVerifySuccess:   800,
				goCaptcha.MetricVerifyFailure:   200,
			},
			Histograms: map[goCaptcha.MetricID][]uint64{
				goCaptcha.MetricIssueLatency:  {10, 20, 30, 40, 50, 60, 70, 80},
				goCaptcha.MetricVerifyLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
