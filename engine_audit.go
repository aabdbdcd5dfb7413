package goCaptcha

import (
	"context"
	"errors"

	"github.com/MrEthical07/goCaptcha/replay"
	"github.com/MrEthical07/goCaptcha/seal"
	"github.com/google/uuid"
)

const (
	auditEventChallengeIssued       = "challenge_issued"
	auditEventChallengeIssueFailure = "challenge_issue_failure"
	auditEventAnswerAccepted        = "answer_accepted"
	auditEventAnswerRejected        = "answer_rejected"
	auditEventBypassUsed            = "bypass_used"
	auditEventReplayDetected        = "replay_detected"
	auditEventCredentialVerified    = "credential_verified"
	auditEventCredentialRejected    = "credential_rejected"
	auditEventCallerRejected        = "caller_rejected"
	auditEventAudioServed           = "audio_served"
	auditEventAudioFailure          = "audio_failure"
)

// AuditErrorCode is the stable, coarse reason attached to failed events.
type AuditErrorCode string

const (
	auditErrTokenInvalid     AuditErrorCode = "token_invalid"
	auditErrAnswerMismatch   AuditErrorCode = "answer_mismatch"
	auditErrNonceMismatch    AuditErrorCode = "nonce_mismatch"
	auditErrExpired          AuditErrorCode = "expired"
	auditErrReplay           AuditErrorCode = "replay"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrRender           AuditErrorCode = "render_failure"
	auditErrSeal             AuditErrorCode = "seal_failure"
	auditErrCredential       AuditErrorCode = "credential_invalid"
	auditErrCallerNotAllowed AuditErrorCode = "caller_not_allowed"
	auditErrAudioDisabled    AuditErrorCode = "audio_disabled"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, seal.ErrDecryption):
		return auditErrTokenInvalid
	case errors.Is(err, errAnswerMismatch):
		return auditErrAnswerMismatch
	case errors.Is(err, errNonceMismatch):
		return auditErrNonceMismatch
	case errors.Is(err, errChallengeExpired):
		return auditErrExpired
	case errors.Is(err, replay.ErrReplayed):
		return auditErrReplay
	case errors.Is(err, replay.ErrRedisUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrRenderFailure):
		return auditErrRender
	case errors.Is(err, ErrSealFailure):
		return auditErrSeal
	case errors.Is(err, ErrCredentialInvalid):
		return auditErrCredential
	case errors.Is(err, ErrCallerNotAllowed):
		return auditErrCallerNotAllowed
	case errors.Is(err, ErrAudioDisabled):
		return auditErrAudioDisabled
	default:
		return auditErrInternal
	}
}
