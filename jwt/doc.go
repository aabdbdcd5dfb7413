// Package jwt mints and verifies the credential handed to a client after a
// solved challenge. A credential asserts the challenge nonce in a "data"
// claim and expires on its own; resource servers verify it without any
// shared state beyond the signing key.
package jwt
