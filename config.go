package goCaptcha

import (
	"bytes"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/MrEthical07/goCaptcha/allowlist"
	"github.com/MrEthical07/goCaptcha/render"
	"github.com/MrEthical07/goCaptcha/seal"
)

const (
	// DefaultSecret is the credential signing secret shipped for development.
	// Validate refuses it in production mode.
	DefaultSecret = "defaultSecret"
	// DefaultSealingKeyID is the kid of DefaultSealingKeyJWK.
	DefaultSealingKeyID = "gBdaS-G8RLax2qObTD94w"
	// DefaultSealingKeyJWK is the development sealing key.
	DefaultSealingKeyJWK = `{"kty":"oct","kid":"gBdaS-G8RLax2qObTD94w","use":"enc","alg":"A256GCM","k":"FK3d8WvSRdxlUHs4Fs_xxYO3-6dCiUarBwiYNFw5hv8"}`
	// DefaultAllowedCallers only admits loopback callers to credential verification.
	DefaultAllowedCallers = "127.0.0.1"

	signingMethodHS256   = "hs256"
	signingMethodEd25519 = "ed25519"

	maxAnswerLength = 32
	maxLeeway       = 2 * time.Minute
)

// Config holds every tunable of an Engine. Build clones it, so later
// changes to the caller's copy have no effect.
type Config struct {
	Challenge  ChallengeConfig
	Sealing    SealingConfig
	Credential CredentialConfig
	Bypass     BypassConfig
	Audio      AudioConfig
	Callers    CallerConfig
	Replay     ReplayConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
	Security   SecurityConfig
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig controls the shape and lifetime of issued challenges.
type ChallengeConfig struct {
	IssueTTL   time.Duration
	Length     int
	Alphabet   string
	NoiseLines int
}

// SealingConfig holds the symmetric key that seals validation records, as
// an oct JWK.
type SealingConfig struct {
	KeyJWK []byte
}

/*
====================================
CREDENTIAL CONFIG
====================================
*/

// CredentialConfig configures the JWT handed out for a solved challenge.
type CredentialConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// BypassConfig enables a fixed answer that always verifies. Meant for
// automated tests against non-production deployments.
type BypassConfig struct {
	Answer string
}

// AudioConfig enables spoken renditions of challenges.
type AudioConfig struct {
	Enabled bool
}

// CallerConfig lists the addresses (IPs or CIDR prefixes) allowed to verify
// credentials.
type CallerConfig struct {
	AllowList []string
}

// ReplayConfig turns on single-use validation tokens. It needs either a
// redis client or an explicit replay guard on the Builder.
type ReplayConfig struct {
	Enabled   bool
	KeyPrefix string
}

// AuditConfig controls the asynchronous audit pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters and histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SecurityConfig gates checks that only apply to production deployments.
type SecurityConfig struct {
	ProductionMode bool
}

// DefaultConfig returns the development defaults: fifteen minute challenge
// and credential lifetimes, six character answers, audio on, and the
// shipped secrets.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Challenge: ChallengeConfig{
			IssueTTL:   15 * time.Minute,
			Length:     render.DefaultLength,
			Alphabet:   render.DefaultAlphabet,
			NoiseLines: render.DefaultNoise,
		},
		Sealing: SealingConfig{
			KeyJWK: []byte(DefaultSealingKeyJWK),
		},
		Credential: CredentialConfig{
			TTL:           15 * time.Minute,
			SigningMethod: signingMethodHS256,
			PrivateKey:    []byte(DefaultSecret),
		},
		Audio: AudioConfig{
			Enabled: true,
		},
		Callers: CallerConfig{
			AllowList: []string{DefaultAllowedCallers},
		},
		Replay: ReplayConfig{
			Enabled:   false,
			KeyPrefix: "gcr",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Sealing.KeyJWK = cloneBytes(cfg.Sealing.KeyJWK)
	out.Credential.PrivateKey = cloneBytes(cfg.Credential.PrivateKey)
	out.Credential.PublicKey = cloneBytes(cfg.Credential.PublicKey)
	if cfg.Callers.AllowList != nil {
		out.Callers.AllowList = append([]string(nil), cfg.Callers.AllowList...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. In
// production mode it also rejects the shipped secrets and any bypass
// answer.
func (c *Config) Validate() error {
	// Challenge
	if c.Challenge.IssueTTL <= 0 {
		return errors.New("Challenge IssueTTL must be > 0")
	}
	if c.Challenge.Length < 1 || c.Challenge.Length > maxAnswerLength {
		return fmt.Errorf("Challenge Length must be between 1 and %d", maxAnswerLength)
	}
	if utf8.RuneCountInString(c.Challenge.Alphabet) < 2 {
		return errors.New("Challenge Alphabet must contain at least 2 characters")
	}
	if c.Challenge.NoiseLines < 0 {
		return errors.New("Challenge NoiseLines must be >= 0")
	}

	// Sealing
	key, err := seal.ParseKey(c.Sealing.KeyJWK)
	if err != nil {
		return fmt.Errorf("Sealing KeyJWK: %w", err)
	}

	// Credential
	if c.Credential.TTL <= 0 {
		return errors.New("Credential TTL must be > 0")
	}
	if c.Credential.Leeway < 0 || c.Credential.Leeway > maxLeeway {
		return errors.New("Credential Leeway must be between 0 and 2m")
	}
	switch c.Credential.SigningMethod {
	case signingMethodHS256:
		if len(c.Credential.PrivateKey) == 0 {
			return errors.New("hs256 requires PrivateKey")
		}
	case signingMethodEd25519:
		if len(c.Credential.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.Credential.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported credential signing method")
	}

	// Callers
	if _, err := allowlist.ParseEntries(c.Callers.AllowList); err != nil {
		return fmt.Errorf("Callers AllowList: %w", err)
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Production
	if c.Security.ProductionMode {
		if c.Credential.SigningMethod == signingMethodHS256 &&
			bytes.Equal(c.Credential.PrivateKey, []byte(DefaultSecret)) {
			return fmt.Errorf("%w: credential secret", ErrDefaultSecrets)
		}
		if key.ID == DefaultSealingKeyID {
			return fmt.Errorf("%w: sealing key", ErrDefaultSecrets)
		}
		if c.Bypass.Answer != "" {
			return errors.New("Bypass answer is not allowed in ProductionMode")
		}
	}

	return nil
}
