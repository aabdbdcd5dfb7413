package goCaptcha

import (
	"context"
	"fmt"

	"github.com/cloudflare/cfssl/log"
)

// VerifyCredential checks a credential on behalf of a resource server. The
// caller address carried by ctx (see WithClientIP) must be on the
// allow-list; a context without one is refused. The credential must carry a
// valid signature, be unexpired and assert nonce.
func (e *Engine) VerifyCredential(ctx context.Context, token, nonce string) (*CredentialInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)
	if !e.callers.Allows(ip) {
		log.Debugf("unauthorized credential verification from ip %q", ip)
		e.metricInc(MetricCallerRejected)
		e.emitAudit(ctx, auditEventCallerRejected, false, ErrCallerNotAllowed, nil)
		return nil, ErrCallerNotAllowed
	}

	claims, err := e.jwtManager.VerifyCredential(token, nonce)
	if err != nil {
		log.Debugf("credential rejected: %v", err)
		e.metricInc(MetricCredentialInvalid)
		err = fmt.Errorf("%w: %v", ErrCredentialInvalid, err)
		e.emitAudit(ctx, auditEventCredentialRejected, false, err, nil)
		return nil, err
	}

	e.metricInc(MetricCredentialValid)
	e.emitAudit(ctx, auditEventCredentialVerified, true, nil, func() map[string]string {
		return map[string]string{"jti": claims.ID}
	})

	info := &CredentialInfo{
		ID:    claims.ID,
		Nonce: claims.Data.Nonce,
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
