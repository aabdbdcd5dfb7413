package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	goCaptcha "github.com/MrEthical07/goCaptcha"
)

func newEngine(t *testing.T, allow ...string) *goCaptcha.Engine {
	t.Helper()
	cfg := goCaptcha.DefaultConfig()
	cfg.Callers.AllowList = allow
	engine, err := goCaptcha.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func echoIP() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(goCaptcha.ClientIPFromContext(r.Context())))
	})
}

func TestRequestIP(t *testing.T) {
	cases := []struct {
		name       string
		remote     string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{name: "ipv4", remote: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "mapped ipv6", remote: "[::ffff:127.0.0.1]:80", want: "127.0.0.1"},
		{name: "ipv6", remote: "[::1]:80", want: "::1"},
		{name: "no port", remote: "192.0.2.9", want: "192.0.2.9"},
		{name: "garbage", remote: "pipe", want: ""},
		{name: "forwarded ignored", remote: "192.0.2.1:1", forwarded: "10.0.0.1", want: "192.0.2.1"},
		{name: "forwarded trusted", remote: "192.0.2.1:1", forwarded: "198.51.100.7, 10.0.0.1", trustProxy: true, want: "10.0.0.1"},
		{name: "forwarded spoofed prefix", remote: "192.0.2.1:1", forwarded: "127.0.0.1, 203.0.113.5", trustProxy: true, want: "203.0.113.5"},
		{name: "forwarded single", remote: "192.0.2.1:1", forwarded: "203.0.113.5", trustProxy: true, want: "203.0.113.5"},
		{name: "forwarded last hop garbage", remote: "192.0.2.1:1", forwarded: "127.0.0.1, unknown", trustProxy: true, want: "192.0.2.1"},
		{name: "forwarded garbage", remote: "192.0.2.1:1", forwarded: "unknown", trustProxy: true, want: "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := RequestIP(r, tc.trustProxy); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestRequireAllowedCaller(t *testing.T) {
	engine := newEngine(t, "127.0.0.1", "10.0.0.0/8")
	h := ClientIP(false)(RequireAllowedCaller(engine)(echoIP()))

	for _, tc := range []struct {
		remote string
		want   int
	}{
		{"127.0.0.1:5000", http.StatusOK},
		{"10.20.30.40:5000", http.StatusOK},
		{"192.0.2.1:5000", http.StatusForbidden},
		{"[::1]:5000", http.StatusForbidden},
	} {
		r := httptest.NewRequest(http.MethodPost, "/verify/jwt", nil)
		r.RemoteAddr = tc.remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.remote, tc.want, rec.Code)
		}
		if tc.want == http.StatusForbidden && rec.Body.Len() != 0 {
			t.Fatalf("%s: expected empty 403 body, got %q", tc.remote, rec.Body.String())
		}
	}
}

func TestRequireAllowedCallerWithoutClientIPMiddleware(t *testing.T) {
	engine := newEngine(t, "127.0.0.1")
	h := RequireAllowedCaller(engine)(echoIP())

	r := httptest.NewRequest(http.MethodPost, "/verify/jwt", nil)
	r.RemoteAddr = "127.0.0.1:1"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK || rec.Body.String() != "127.0.0.1" {
		t.Fatalf("expected fallback to RemoteAddr, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRequireAllowedCallerNilEngine(t *testing.T) {
	h := RequireAllowedCaller(nil)(echoIP())
	r := httptest.NewRequest(http.MethodPost, "/verify/jwt", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	if tok, ok := BearerToken("Bearer abc"); !ok || tok != "abc" {
		t.Fatalf("unexpected result %q %v", tok, ok)
	}
	for _, v := range []string{"", "Bearer ", "Basic abc", "bearer abc"} {
		if _, ok := BearerToken(v); ok {
			t.Fatalf("expected %q to be rejected", v)
		}
	}
}
