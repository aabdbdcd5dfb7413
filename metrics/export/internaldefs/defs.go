package internaldefs

import (
	goCaptcha "github.com/MrEthical07/goCaptcha"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goCaptcha.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram for exporters.
type HistogramDef struct {
	ID   goCaptcha.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goCaptcha.MetricChallengeIssued, Name: "gocaptcha_challenge_issued_total", Help: "Challenges issued."},
	{ID: goCaptcha.MetricChallengeIssueFailure, Name: "gocaptcha_challenge_issue_failure_total", Help: "Challenges that failed to render or seal."},
	{ID: goCaptcha.MetricVerifySuccess, Name: "gocaptcha_verify_success_total", Help: "Answers accepted, including bypass."},
	{ID: goCaptcha.MetricVerifyFailure, Name: "gocaptcha_verify_failure_total", Help: "Answers rejected for any reason."},
	{ID: goCaptcha.MetricVerifyBypass, Name: "gocaptcha_verify_bypass_total", Help: "Answers accepted through the bypass answer."},
	{ID: goCaptcha.MetricVerifyTokenInvalid, Name: "gocaptcha_verify_token_invalid_total", Help: "Validation tokens that failed to unseal."},
	{ID: goCaptcha.MetricVerifyAnswerMismatch, Name: "gocaptcha_verify_answer_mismatch_total", Help: "Answers that did not match the sealed answer."},
	{ID: goCaptcha.MetricVerifyNonceMismatch, Name: "gocaptcha_verify_nonce_mismatch_total", Help: "Answers submitted with a different nonce."},
	{ID: goCaptcha.MetricVerifyExpired, Name: "gocaptcha_verify_expired_total", Help: "Answers submitted after challenge expiry."},
	{ID: goCaptcha.MetricReplayDetected, Name: "gocaptcha_replay_detected_total", Help: "Validation tokens presented more than once."},
	{ID: goCaptcha.MetricReplayUnavailable, Name: "gocaptcha_replay_unavailable_total", Help: "Verifications refused because the replay store failed."},
	{ID: goCaptcha.MetricCredentialIssued, Name: "gocaptcha_credential_issued_total", Help: "Credentials minted."},
	{ID: goCaptcha.MetricCredentialValid, Name: "gocaptcha_credential_valid_total", Help: "Credentials verified as valid."},
	{ID: goCaptcha.MetricCredentialInvalid, Name: "gocaptcha_credential_invalid_total", Help: "Credentials rejected."},
	{ID: goCaptcha.MetricCallerRejected, Name: "gocaptcha_caller_rejected_total", Help: "Credential checks refused for callers outside the allow-list."},
	{ID: goCaptcha.MetricAudioServed, Name: "gocaptcha_audio_served_total", Help: "Audio challenges produced."},
	{ID: goCaptcha.MetricAudioFailure, Name: "gocaptcha_audio_failure_total", Help: "Audio challenges that failed."},
}

var HistogramDefs = []HistogramDef{
	{ID: goCaptcha.MetricIssueLatency, Name: "gocaptcha_issue_latency_seconds", Help: "IssueChallenge latency histogram."},
	{ID: goCaptcha.MetricVerifyLatency, Name: "gocaptcha_verify_latency_seconds", Help: "VerifyAnswer latency histogram."},
}

// HistogramBounds are the upper bounds of the engine's eight latency
// buckets, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds in a form usable inside
// instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into the running totals both
// exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
