package goCaptcha

import (
	"context"
	"fmt"

	"github.com/cloudflare/cfssl/log"
)

// ChallengeAudio speaks the answer sealed in validation. Tokens that do not
// unseal or have expired are refused.
func (e *Engine) ChallengeAudio(ctx context.Context, validation string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	if !e.config.Audio.Enabled || e.audioRenderer == nil {
		e.emitAudit(ctx, auditEventAudioFailure, false, ErrAudioDisabled, nil)
		return "", ErrAudioDisabled
	}

	record, err := e.codec.UnsealRecord(validation)
	if err == nil && !e.now().Before(record.Expiry) {
		err = errChallengeExpired
	}
	if err != nil {
		return "", e.failAudio(ctx, err)
	}

	audio, err := e.audioRenderer.RenderAudio(ctx, record.Answer)
	if err != nil {
		return "", e.failAudio(ctx, err)
	}

	e.metricInc(MetricAudioServed)
	e.emitAudit(ctx, auditEventAudioServed, true, nil, nil)
	return audio, nil
}

func (e *Engine) failAudio(ctx context.Context, cause error) error {
	log.Debugf("audio challenge failed: %v", cause)
	e.metricInc(MetricAudioFailure)
	e.emitAudit(ctx, auditEventAudioFailure, false, cause, nil)
	return fmt.Errorf("%w: %v", ErrAudioFailure, cause)
}
