// Package goCaptcha issues human-verification challenges, verifies answers
// without server-side session state, and mints short-lived credentials that
// resource servers check through the same engine.
//
// A challenge's answer, the client nonce and an expiry are sealed into an
// opaque validation token (see package seal). The client returns that token
// together with its answer; the engine unseals it, compares, and on success
// signs a JWT bound to the nonce (see package jwt).
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # What this package must NOT do
//
//   - Log answers or tokens above debug level.
//   - Tell a client why an answer was rejected; every rejection is
//     ErrVerificationFailed.
//   - Keep per-challenge state unless replay protection is switched on.
package goCaptcha
