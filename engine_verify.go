package goCaptcha

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goCaptcha/replay"
	"github.com/MrEthical07/goCaptcha/seal"
	"github.com/cloudflare/cfssl/log"
)

// verifyStrategy is picked once per VerifyAnswer call.
type verifyStrategy int

const (
	strategySealed verifyStrategy = iota
	strategyBypass
)

func (s verifyStrategy) String() string {
	if s == strategyBypass {
		return "bypass"
	}
	return "sealed"
}

func (e *Engine) selectStrategy(answer string) verifyStrategy {
	bypass := e.config.Bypass.Answer
	if bypass != "" && subtle.ConstantTimeCompare([]byte(bypass), []byte(answer)) == 1 {
		return strategyBypass
	}
	return strategySealed
}

// VerifyAnswer checks a submitted answer and, when it is correct, mints a
// credential bound to req.Nonce. Any rejection is reported as
// ErrVerificationFailed; the underlying cause only reaches debug logs,
// metrics and audit events.
func (e *Engine) VerifyAnswer(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observeSince(MetricVerifyLatency, start)

	strategy := e.selectStrategy(req.Answer)
	switch strategy {
	case strategyBypass:
		log.Debugf("bypass answer used for nonce %q", req.Nonce)
		e.metricInc(MetricVerifyBypass)
		e.emitAudit(ctx, auditEventBypassUsed, true, nil, nil)
	default:
		if err := e.checkSealed(ctx, req); err != nil {
			e.rejectAnswer(ctx, err)
			return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
		}
	}

	token, claims, err := e.jwtManager.CreateCredential(req.Nonce)
	if err != nil {
		log.Errorf("create credential: %v", err)
		e.metricInc(MetricVerifyFailure)
		return nil, fmt.Errorf("%w: %v", ErrCredentialIssueFailed, err)
	}

	e.metricInc(MetricVerifySuccess)
	e.metricInc(MetricCredentialIssued)
	e.emitAudit(ctx, auditEventAnswerAccepted, true, nil, func() map[string]string {
		return map[string]string{
			"strategy": strategy.String(),
			"jti":      claims.ID,
		}
	})

	return &VerifyResult{
		Valid:     true,
		JWT:       token,
		ExpiresAt: claims.ExpiresAt.Time,
		Bypassed:  strategy == strategyBypass,
	}, nil
}

// checkSealed runs the ordered checks against the sealed record: token
// integrity, answer, nonce, expiry, then the optional replay guard.
func (e *Engine) checkSealed(ctx context.Context, req VerifyRequest) error {
	record, err := e.codec.UnsealRecord(req.Validation)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(normalizeAnswer(record.Answer)), []byte(normalizeAnswer(req.Answer))) != 1 {
		return errAnswerMismatch
	}
	if subtle.ConstantTimeCompare([]byte(record.Nonce), []byte(req.Nonce)) != 1 {
		return errNonceMismatch
	}
	if !e.now().Before(record.Expiry) {
		return errChallengeExpired
	}

	if e.replayGuard != nil {
		if err := e.replayGuard.Consume(ctx, req.Validation, record.Expiry); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) rejectAnswer(ctx context.Context, cause error) {
	log.Debugf("answer rejected: %v", cause)
	e.metricInc(MetricVerifyFailure)

	eventType := auditEventAnswerRejected
	switch {
	case errors.Is(cause, seal.ErrDecryption):
		e.metricInc(MetricVerifyTokenInvalid)
	case errors.Is(cause, errAnswerMismatch):
		e.metricInc(MetricVerifyAnswerMismatch)
	case errors.Is(cause, errNonceMismatch):
		e.metricInc(MetricVerifyNonceMismatch)
	case errors.Is(cause, errChallengeExpired):
		e.metricInc(MetricVerifyExpired)
	case errors.Is(cause, replay.ErrReplayed):
		e.metricInc(MetricReplayDetected)
		eventType = auditEventReplayDetected
	case errors.Is(cause, replay.ErrRedisUnavailable):
		log.Warningf("replay guard unavailable: %v", cause)
		e.metricInc(MetricReplayUnavailable)
	default:
		log.Errorf("answer verification failed: %v", cause)
	}

	e.emitAudit(ctx, eventType, false, cause, nil)
}
