package middleware

import (
	"net/http"
	"strings"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/cloudflare/cfssl/log"
)

// RequireAllowedCaller rejects requests whose caller address is not on the
// engine's allow-list. It reads the address stored by ClientIP and falls
// back to RemoteAddr.
func RequireAllowedCaller(engine *goCaptcha.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := goCaptcha.ClientIPFromContext(r.Context())
			if ip == "" {
				ip = RequestIP(r, false)
			}
			if engine == nil || !engine.CallerAllowed(ip) {
				log.Debugf("unauthorized access to %s from ip %q", r.URL.Path, ip)
				w.WriteHeader(http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(goCaptcha.WithClientIP(r.Context(), ip)))
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
