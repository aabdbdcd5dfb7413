// Package replay records validation tokens that have already been redeemed
// so a correct answer can be exchanged for a credential at most once.
//
// Only a SHA-256 digest of each token is stored, keyed until the token's own
// expiry; after that the sealed record is rejected anyway and the entry can
// go. RedisGuard serves multi-instance deployments and MemoryGuard serves a
// single process or tests.
package replay
