package goCaptcha

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/MrEthical07/goCaptcha/allowlist"
	"github.com/MrEthical07/goCaptcha/jwt"
	"github.com/MrEthical07/goCaptcha/render"
	"github.com/MrEthical07/goCaptcha/replay"
	"github.com/MrEthical07/goCaptcha/seal"
	"github.com/cloudflare/cfssl/log"
)

// Engine issues challenges, verifies answers and verifies credentials. It
// keeps no per-challenge state: everything needed to check an answer
// travels inside the sealed validation token. Safe for concurrent use.
type Engine struct {
	config        Config
	codec         *seal.Codec
	jwtManager    *jwt.Manager
	callers       allowlist.List
	replayGuard   replay.Guard
	renderer      render.Renderer
	audioRenderer render.AudioRenderer
	challengeSpec render.Spec
	audit         *auditDispatcher
	metrics       *Metrics
	now           func() time.Time
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports audit events lost to a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine metrics. It is empty when
// metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// CallerAllowed reports whether ip may verify credentials.
func (e *Engine) CallerAllowed(ip string) bool {
	if e == nil {
		return false
	}
	return e.callers.Allows(ip)
}

// CallerAllowedAddr is CallerAllowed for a parsed address.
func (e *Engine) CallerAllowedAddr(addr netip.Addr) bool {
	if e == nil {
		return false
	}
	return e.callers.AllowsAddr(addr)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeSince(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

func (e *Engine) ready() bool {
	return e != nil && e.codec != nil && e.jwtManager != nil && e.renderer != nil && e.now != nil
}

// IssueChallenge renders a new challenge for nonce and seals its answer,
// the nonce and an expiry into the returned validation token. The nonce is
// not checked in any way.
func (e *Engine) IssueChallenge(ctx context.Context, nonce string) (*IssueResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observeSince(MetricIssueLatency, start)

	challenge, err := e.renderer.Render(ctx, e.challengeSpec)
	if err == nil && (challenge.Answer == "" || challenge.Artifact == "") {
		err = render.ErrEmptyArtifact
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrRenderFailure, err)
		e.failIssue(ctx, err)
		return nil, err
	}
	log.Debugf("challenge rendered for nonce %q: answer %q", nonce, challenge.Answer)

	expiry := e.now().Add(e.config.Challenge.IssueTTL).Truncate(time.Millisecond)
	validation, err := e.codec.SealRecord(seal.Record{
		Answer: challenge.Answer,
		Nonce:  nonce,
		Expiry: expiry,
	})
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrSealFailure, err)
		e.failIssue(ctx, err)
		return nil, err
	}

	e.metricInc(MetricChallengeIssued)
	e.emitAudit(ctx, auditEventChallengeIssued, true, nil, func() map[string]string {
		return map[string]string{"media_type": challenge.MediaType}
	})

	return &IssueResult{
		Nonce:      nonce,
		Captcha:    challenge.Artifact,
		Validation: validation,
		ExpiresAt:  expiry,
	}, nil
}

func (e *Engine) failIssue(ctx context.Context, err error) {
	log.Errorf("issue challenge: %v", err)
	e.metricInc(MetricChallengeIssueFailure)
	e.emitAudit(ctx, auditEventChallengeIssueFailure, false, err, nil)
}

func normalizeAnswer(s string) string {
	return strings.ToLower(s)
}
