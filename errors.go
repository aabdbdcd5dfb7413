package goCaptcha

import "errors"

var (
	// ErrRenderFailure is returned when the renderer could not produce a challenge.
	ErrRenderFailure = errors.New("challenge render failure")
	// ErrSealFailure is returned when a validation record could not be sealed.
	ErrSealFailure = errors.New("validation seal failure")
	// ErrVerificationFailed covers every rejected answer: bad token, wrong
	// answer, wrong nonce, expired challenge and replay.
	ErrVerificationFailed = errors.New("captcha verification failed")
	// ErrCredentialIssueFailed is returned when a correct answer could not be
	// exchanged for a credential.
	ErrCredentialIssueFailed = errors.New("credential issue failed")
	// ErrCredentialInvalid is returned for any credential that does not verify.
	ErrCredentialInvalid = errors.New("credential invalid")
	// ErrCallerNotAllowed is returned when the caller address is outside the
	// configured allow-list.
	ErrCallerNotAllowed = errors.New("caller not allowed")
	// ErrAudioDisabled is returned by ChallengeAudio when audio is switched off.
	ErrAudioDisabled = errors.New("audio disabled")
	// ErrAudioFailure is returned when an audio challenge could not be produced.
	ErrAudioFailure = errors.New("audio challenge failure")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or partially built engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrDefaultSecrets is returned by Config.Validate in production mode when
	// the shipped credential secret or sealing key is still configured.
	ErrDefaultSecrets = errors.New("default secrets must be changed before running in production")
)

var (
	errAnswerMismatch   = errors.New("answer mismatch")
	errNonceMismatch    = errors.New("nonce mismatch")
	errChallengeExpired = errors.New("challenge expired")
)
