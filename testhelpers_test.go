package goCaptcha

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goCaptcha/render"
)

type fixedRenderer struct {
	answer string
	err    error
}

func (r fixedRenderer) Render(context.Context, render.Spec) (render.Challenge, error) {
	if r.err != nil {
		return render.Challenge{}, r.err
	}
	return render.Challenge{
		Answer:    r.answer,
		Artifact:  "data:image/png;base64,AAAA",
		MediaType: "image/png",
	}, nil
}

type fakeAudio struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (a *fakeAudio) RenderAudio(_ context.Context, answer string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.spoken = append(a.spoken, answer)
	return "data:audio/wav;base64,UklGRg==", nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.UnixMilli(1700000000000)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Credential.PrivateKey = []byte("test-secret-test-secret-test-secret")
	return cfg
}

func buildTestEngine(t testing.TB, cfg Config, answer string, clock *testClock) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(cfg).
		WithRenderer(fixedRenderer{answer: answer}).
		WithAudioRenderer(&fakeAudio{}).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func allowedCtx() context.Context {
	return WithClientIP(context.Background(), "127.0.0.1")
}
