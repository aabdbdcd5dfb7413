package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/render"
)

type fixedRenderer struct{ answer string }

func (r fixedRenderer) Render(context.Context, render.Spec) (render.Challenge, error) {
	if r.answer == "" {
		return render.Challenge{}, errors.New("renderer broken")
	}
	return render.Challenge{Answer: r.answer, Artifact: "data:image/png;base64,AAAA", MediaType: "image/png"}, nil
}

type fakeAudio struct{ err error }

func (a fakeAudio) RenderAudio(_ context.Context, answer string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	return "data:audio/wav;base64," + answer, nil
}

type testEnv struct {
	engine  *goCaptcha.Engine
	handler http.Handler
}

func newTestEnv(t *testing.T, mutate func(*goCaptcha.Config), opts Options, answer string) testEnv {
	t.Helper()
	cfg := goCaptcha.DefaultConfig()
	cfg.Credential.PrivateKey = []byte("server-test-secret-server-test-secret")
	cfg.Callers.AllowList = []string{"127.0.0.1", "10.0.0.0/8"}
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}
	engine, err := goCaptcha.New().
		WithConfig(cfg).
		WithRenderer(fixedRenderer{answer: answer}).
		WithAudioRenderer(fakeAudio{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	srv, err := New(engine, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return testEnv{engine: engine, handler: srv.Handler()}
}

func (env testEnv) post(t *testing.T, path, remote, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if remote != "" {
		r.RemoteAddr = remote
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, r)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestEndToEnd(t *testing.T) {
	env := newTestEnv(t, nil, Options{}, "7k9m2p")

	rec := env.post(t, "/captcha", "", `{"nonce":"abc"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	issued := decode(t, rec)
	if issued["nonce"] != "abc" || issued["captcha"] == "" {
		t.Fatalf("unexpected issue response %v", issued)
	}
	validation, _ := issued["validation"].(string)
	if validation == "" {
		t.Fatal("expected validation token")
	}

	rec = env.post(t, "/verify/captcha", "", mustJSON(t, map[string]string{
		"nonce": "abc", "answer": "7K9M2P", "validation": validation,
	}))
	verified := decode(t, rec)
	if verified["valid"] != true {
		t.Fatalf("expected valid answer, got %v", verified)
	}
	token, _ := verified["jwt"].(string)
	if token == "" {
		t.Fatal("expected jwt in response")
	}

	body := mustJSON(t, map[string]string{"token": token, "nonce": "abc"})
	rec = env.post(t, "/verify/jwt", "127.0.0.1:40000", body)
	if got := decode(t, rec); got["valid"] != true {
		t.Fatalf("expected credential to verify, got %v", got)
	}

	rec = env.post(t, "/verify/jwt", "10.1.2.3:40000", mustJSON(t, map[string]string{"token": token, "nonce": "abd"}))
	if got := decode(t, rec); got["valid"] != false {
		t.Fatalf("expected nonce mismatch to be invalid, got %v", got)
	}

	rec = env.post(t, "/verify/jwt", "192.0.2.10:40000", body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty 403 body, got %q", rec.Body.String())
	}
}

func TestVerifyCaptchaRejections(t *testing.T) {
	env := newTestEnv(t, nil, Options{}, "7k9m2p")
	issued := decode(t, env.post(t, "/captcha", "", `{"nonce":"abc"}`))
	validation := issued["validation"].(string)

	cases := map[string]string{
		"wrong answer": mustJSON(t, map[string]string{"nonce": "abc", "answer": "zzzzzz", "validation": validation}),
		"wrong nonce":  mustJSON(t, map[string]string{"nonce": "abd", "answer": "7k9m2p", "validation": validation}),
		"bad token":    mustJSON(t, map[string]string{"nonce": "abc", "answer": "7k9m2p", "validation": "garbage"}),
		"malformed":    `{"nonce":`,
		"empty":        ``,
		"object token": `{"nonce":"abc","answer":"7k9m2p","validation":{"ciphertext":"x"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := env.post(t, "/verify/captcha", "", body)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			got := decode(t, rec)
			if got["valid"] != false {
				t.Fatalf("expected invalid, got %v", got)
			}
			if _, ok := got["jwt"]; ok {
				t.Fatalf("unexpected jwt in rejection %v", got)
			}
		})
	}
}

func TestIssueChallengeUnreadableBody(t *testing.T) {
	env := newTestEnv(t, nil, Options{}, "7k9m2p")
	for _, body := range []string{`not json`, ``, `{"nonce":`} {
		got := decode(t, env.post(t, "/captcha", "", body))
		if _, ok := got["valid"]; ok {
			t.Fatalf("%q: expected a challenge, got %v", body, got)
		}
		if got["nonce"] != "" || got["captcha"] == "" || got["validation"] == "" {
			t.Fatalf("%q: expected empty-nonce challenge, got %v", body, got)
		}

		verified := decode(t, env.post(t, "/verify/captcha", "", mustJSON(t, map[string]any{
			"nonce": "", "answer": "7k9m2p", "validation": got["validation"],
		})))
		if verified["valid"] != true {
			t.Fatalf("%q: expected empty-nonce challenge to verify, got %v", body, verified)
		}
	}
}

func TestIssueChallengeFailures(t *testing.T) {
	broken := newTestEnv(t, nil, Options{}, "")
	if got := decode(t, broken.post(t, "/captcha", "", `{"nonce":"abc"}`)); got["valid"] != false {
		t.Fatalf("expected {valid:false} for render failure, got %v", got)
	}
}

func TestChallengeAudio(t *testing.T) {
	env := newTestEnv(t, nil, Options{}, "7k9m2p")
	issued := decode(t, env.post(t, "/captcha", "", `{"nonce":"abc"}`))

	got := decode(t, env.post(t, "/captcha/audio", "", mustJSON(t, map[string]any{"validation": issued["validation"]})))
	if got["audio"] != "data:audio/wav;base64,7k9m2p" {
		t.Fatalf("unexpected audio response %v", got)
	}

	got = decode(t, env.post(t, "/captcha/audio", "", `{"validation":"garbage"}`))
	if got["error"] != "unknown" {
		t.Fatalf("expected unknown error, got %v", got)
	}

	disabled := newTestEnv(t, func(cfg *goCaptcha.Config) { cfg.Audio.Enabled = false }, Options{}, "7k9m2p")
	issued = decode(t, disabled.post(t, "/captcha", "", `{"nonce":"abc"}`))
	got = decode(t, disabled.post(t, "/captcha/audio", "", mustJSON(t, map[string]any{"validation": issued["validation"]})))
	if got["error"] != "audio disabled" {
		t.Fatalf("expected audio disabled, got %v", got)
	}
}

func TestVerifyJWTBearerToken(t *testing.T) {
	env := newTestEnv(t, nil, Options{}, "7k9m2p")
	issued := decode(t, env.post(t, "/captcha", "", `{"nonce":"abc"}`))
	verified := decode(t, env.post(t, "/verify/captcha", "", mustJSON(t, map[string]any{
		"nonce": "abc", "answer": "7k9m2p", "validation": issued["validation"],
	})))

	r := httptest.NewRequest(http.MethodPost, "/verify/jwt", strings.NewReader(`{"nonce":"abc"}`))
	r.RemoteAddr = "127.0.0.1:1"
	r.Header.Set("Authorization", "Bearer "+verified["jwt"].(string))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, r)
	if got := decode(t, rec); got["valid"] != true {
		t.Fatalf("expected bearer token to verify, got %v", got)
	}
}

func TestVerifyJWTTrustProxy(t *testing.T) {
	env := newTestEnv(t, nil, Options{TrustProxy: true}, "7k9m2p")

	r := httptest.NewRequest(http.MethodPost, "/verify/jwt", strings.NewReader(`{}`))
	r.RemoteAddr = "192.0.2.1:1"
	r.Header.Set("X-Forwarded-For", "10.9.9.9")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected forwarded allowed address to pass, got %d", rec.Code)
	}
	if got := decode(t, rec); got["valid"] != false {
		t.Fatalf("expected empty token to be invalid, got %v", got)
	}
}

func TestVerifyJWTTrustProxyIgnoresSpoofedPrefix(t *testing.T) {
	env := newTestEnv(t, nil, Options{TrustProxy: true}, "7k9m2p")

	r := httptest.NewRequest(http.MethodPost, "/verify/jwt", strings.NewReader(`{}`))
	r.RemoteAddr = "10.0.0.2:1"
	r.Header.Set("X-Forwarded-For", "127.0.0.1, 192.0.2.50")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected client supplied hop to be ignored, got %d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, nil, Options{}, "7k9m2p")
	for _, path := range []string{"/", "/status"} {
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
			t.Fatalf("%s: got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestMetricsRoute(t *testing.T) {
	env := newTestEnv(t, nil, Options{Metrics: true}, "7k9m2p")
	env.post(t, "/captcha", "", `{"nonce":"abc"}`)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gocaptcha_challenge_issued_total 1") {
		t.Fatalf("expected issued counter in output:\n%s", rec.Body.String())
	}

	off := newTestEnv(t, nil, Options{}, "7k9m2p")
	rec = httptest.NewRecorder()
	off.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics, got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	preflight := func(h http.Handler) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodOptions, "/captcha", nil)
		r.Header.Set("Origin", "https://app.example")
		r.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	dev := newTestEnv(t, nil, Options{}, "7k9m2p")
	if got := preflight(dev.handler).Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected allow-all origin outside production, got %q", got)
	}

	prod := newTestEnv(t, nil, Options{Production: true}, "7k9m2p")
	if got := preflight(prod.handler).Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS header in production, got %q", got)
	}

	forced := newTestEnv(t, nil, Options{Production: true, CORSAllowAll: true}, "7k9m2p")
	if got := preflight(forced.handler).Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected CORS_ALLOW_ALL to win, got %q", got)
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnv(t, nil, Options{AccessLog: &buf}, "7k9m2p")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if !strings.Contains(buf.String(), `"GET /status HTTP/1.1" 200`) {
		t.Fatalf("expected combined log line, got %q", buf.String())
	}
}

func TestNewRequiresEngine(t *testing.T) {
	if _, err := New(nil, Options{}); !errors.Is(err, goCaptcha.ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
