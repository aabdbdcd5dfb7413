package goCaptcha

import "time"

// SecurityReport summarises the security-relevant posture of an Engine.
// It never contains key material.
type SecurityReport struct {
	ProductionMode      bool
	SealingAlgorithm    string
	SealingKeyID        string
	DefaultSealingKey   bool
	SigningAlgorithm    string
	DefaultSecret       bool
	IssueTTL            time.Duration
	CredentialTTL       time.Duration
	BypassEnabled       bool
	AudioEnabled        bool
	ReplayProtection    bool
	AllowedCallers      string
	AuditEnabled        bool
	MetricsEnabled      bool
	ChallengeLength     int
	ChallengeAlphabet   int
	CredentialIssuer    string
	CredentialLeewaySet bool
}

// SecurityReport describes the engine's configuration without secrets.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil || e.codec == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		ProductionMode:    e.config.Security.ProductionMode,
		SealingAlgorithm:  e.codec.Algorithm(),
		SealingKeyID:      e.codec.KeyID(),
		DefaultSealingKey: e.codec.KeyID() == DefaultSealingKeyID,
		SigningAlgorithm:  e.config.Credential.SigningMethod,
		DefaultSecret: e.config.Credential.SigningMethod == signingMethodHS256 &&
			string(e.config.Credential.PrivateKey) == DefaultSecret,
		IssueTTL:            e.config.Challenge.IssueTTL,
		CredentialTTL:       e.config.Credential.TTL,
		BypassEnabled:       e.config.Bypass.Answer != "",
		AudioEnabled:        e.config.Audio.Enabled,
		ReplayProtection:    e.replayGuard != nil,
		AllowedCallers:      e.callers.String(),
		AuditEnabled:        e.audit != nil,
		MetricsEnabled:      e.metrics.Enabled(),
		ChallengeLength:     e.config.Challenge.Length,
		ChallengeAlphabet:   len([]rune(e.config.Challenge.Alphabet)),
		CredentialIssuer:    e.config.Credential.Issuer,
		CredentialLeewaySet: e.config.Credential.Leeway > 0,
	}
}
