package goCaptcha

import (
	"errors"
	"time"

	"github.com/MrEthical07/goCaptcha/allowlist"
	"github.com/MrEthical07/goCaptcha/jwt"
	"github.com/MrEthical07/goCaptcha/render"
	"github.com/MrEthical07/goCaptcha/replay"
	"github.com/MrEthical07/goCaptcha/seal"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	renderer      render.Renderer
	audioRenderer render.AudioRenderer
	replayGuard   replay.Guard
	auditSink     AuditSink
	now           func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client backing the replay guard when
// Config.Replay.Enabled is set and no guard was given.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRenderer replaces the default image renderer.
func (b *Builder) WithRenderer(r render.Renderer) *Builder {
	b.renderer = r
	return b
}

// WithAudioRenderer replaces the default espeak-ng speech renderer.
func (b *Builder) WithAudioRenderer(r render.AudioRenderer) *Builder {
	b.audioRenderer = r
	return b
}

// WithReplayGuard sets the guard used when Config.Replay.Enabled is set.
func (b *Builder) WithReplayGuard(g replay.Guard) *Builder {
	b.replayGuard = g
	return b
}

// WithAuditSink sets the sink receiving audit events when
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides time.Now for expiry, credentials and audit
// timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles latency histograms. They also need metrics
// enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns an immutable Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- SEALING --------
	key, err := seal.ParseKey(cfg.Sealing.KeyJWK)
	if err != nil {
		return nil, err
	}
	codec, err := seal.NewCodec(key)
	if err != nil {
		return nil, err
	}

	// -------- CREDENTIALS --------
	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.Credential.TTL,
		SigningMethod: jwt.SigningMethod(cfg.Credential.SigningMethod),
		PrivateKey:    cloneBytes(cfg.Credential.PrivateKey),
		PublicKey:     cloneBytes(cfg.Credential.PublicKey),
		Issuer:        cfg.Credential.Issuer,
		Leeway:        cfg.Credential.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	callers, err := allowlist.ParseEntries(cfg.Callers.AllowList)
	if err != nil {
		return nil, err
	}

	// -------- REPLAY --------
	var guard replay.Guard
	if cfg.Replay.Enabled {
		switch {
		case b.replayGuard != nil:
			guard = b.replayGuard
		case b.redis != nil:
			guard = replay.NewRedisGuard(b.redis,
				replay.WithKeyPrefix(cfg.Replay.KeyPrefix),
				replay.WithClock(now),
			)
		default:
			return nil, errors.New("replay protection requires a redis client or replay guard")
		}
	}

	renderer := b.renderer
	if renderer == nil {
		renderer = render.NewImageRenderer()
	}
	audioRenderer := b.audioRenderer
	if audioRenderer == nil && cfg.Audio.Enabled {
		audioRenderer = render.NewSpeechRenderer()
	}

	engine := &Engine{
		config:        cloneConfig(cfg),
		codec:         codec,
		jwtManager:    jm,
		callers:       callers,
		replayGuard:   guard,
		renderer:      renderer,
		audioRenderer: audioRenderer,
		now:           now,
		challengeSpec: render.Spec{
			Length:   cfg.Challenge.Length,
			Alphabet: cfg.Challenge.Alphabet,
			Noise:    cfg.Challenge.NoiseLines,
		},
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
