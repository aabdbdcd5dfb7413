// Package seal implements the authenticated sealed box that carries a
// challenge's expected answer between issuance and verification.
//
// A [Codec] wraps a single symmetric JWK (kty "oct", alg "A256GCM") and
// produces JWE compact tokens using direct key agreement. Any token that was
// produced under a different key, truncated, or modified fails [Codec.Unseal]
// with [ErrDecryption]; the codec never returns partially decrypted data.
//
// The plaintext carried inside a token is a [Record] encoded with CBOR by
// [EncodeRecord].
package seal
