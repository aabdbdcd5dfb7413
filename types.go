package goCaptcha

import "time"

// IssueResult is what a client receives for a new challenge. Captcha is the
// rendered artifact, Validation the sealed record that must be sent back
// with the answer.
type IssueResult struct {
	Nonce      string
	Captcha    string
	Validation string
	ExpiresAt  time.Time
}

// VerifyRequest carries a client's answer to a previously issued challenge.
type VerifyRequest struct {
	Nonce      string
	Answer     string
	Validation string
}

// VerifyResult is returned for a correct answer.
type VerifyResult struct {
	Valid     bool
	JWT       string
	ExpiresAt time.Time
	// Bypassed reports that the configured bypass answer was used.
	Bypassed bool
}

// CredentialInfo describes a verified credential.
type CredentialInfo struct {
	ID        string
	Nonce     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
