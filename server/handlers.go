package server

import (
	"encoding/json"
	"errors"
	"net/http"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/middleware"
	"github.com/cloudflare/cfssl/log"
)

type issueRequest struct {
	Nonce string `json:"nonce"`
}

type issueResponse struct {
	Nonce      string `json:"nonce"`
	Captcha    string `json:"captcha"`
	Validation string `json:"validation"`
}

type verifyCaptchaRequest struct {
	Nonce      string `json:"nonce"`
	Answer     string `json:"answer"`
	Validation string `json:"validation"`
}

type verifyCaptchaResponse struct {
	Valid bool   `json:"valid"`
	JWT   string `json:"jwt,omitempty"`
}

type audioRequest struct {
	Validation string `json:"validation"`
}

type audioResponse struct {
	Audio string `json:"audio,omitempty"`
	Error string `json:"error,omitempty"`
}

type verifyJWTRequest struct {
	Token string `json:"token"`
	Nonce string `json:"nonce"`
}

type validResponse struct {
	Valid bool `json:"valid"`
}

// IssueChallenge handles POST /captcha. A missing or malformed body issues
// a challenge bound to the empty nonce.
func (s *Server) IssueChallenge(w http.ResponseWriter, r *http.Request) {
	req, _ := parseJSON[issueRequest](w, r)

	res, err := s.engine.IssueChallenge(r.Context(), req.Nonce)
	if err != nil {
		jsonResponse(w, validResponse{Valid: false})
		return
	}
	jsonResponse(w, issueResponse{
		Nonce:      res.Nonce,
		Captcha:    res.Captcha,
		Validation: res.Validation,
	})
}

// VerifyCaptcha handles POST /verify/captcha.
func (s *Server) VerifyCaptcha(w http.ResponseWriter, r *http.Request) {
	req, _ := parseJSON[verifyCaptchaRequest](w, r)

	res, err := s.engine.VerifyAnswer(r.Context(), goCaptcha.VerifyRequest{
		Nonce:      req.Nonce,
		Answer:     req.Answer,
		Validation: req.Validation,
	})
	if err != nil {
		jsonResponse(w, verifyCaptchaResponse{Valid: false})
		return
	}
	jsonResponse(w, verifyCaptchaResponse{Valid: true, JWT: res.JWT})
}

// ChallengeAudio handles POST /captcha/audio.
func (s *Server) ChallengeAudio(w http.ResponseWriter, r *http.Request) {
	req, _ := parseJSON[audioRequest](w, r)

	audio, err := s.engine.ChallengeAudio(r.Context(), req.Validation)
	switch {
	case errors.Is(err, goCaptcha.ErrAudioDisabled):
		log.Errorf("audio requested while disabled")
		jsonResponse(w, audioResponse{Error: "audio disabled"})
	case err != nil:
		log.Errorf("audio challenge: %v", err)
		jsonResponse(w, audioResponse{Error: "unknown"})
	default:
		jsonResponse(w, audioResponse{Audio: audio})
	}
}

// VerifyJWT handles POST /verify/jwt. Callers outside the allow-list get an
// empty 403. The token may also be sent as a bearer token.
func (s *Server) VerifyJWT(w http.ResponseWriter, r *http.Request) {
	req, _ := parseJSON[verifyJWTRequest](w, r)
	if req.Token == "" {
		req.Token, _ = middleware.BearerToken(r.Header.Get("Authorization"))
	}

	_, err := s.engine.VerifyCredential(r.Context(), req.Token, req.Nonce)
	if errors.Is(err, goCaptcha.ErrCallerNotAllowed) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	jsonResponse(w, validResponse{Valid: err == nil})
}

// Status answers health probes.
func Status(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

// parseJSON decodes the request body. A missing or malformed body yields
// the zero value and false.
func parseJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if r.Body == nil || r.Body == http.NoBody {
		return v, false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&v); err != nil {
		log.Debugf("%s: ignoring unreadable body: %v", r.URL.Path, err)
		var zero T
		return zero, false
	}
	return v, true
}

func jsonResponse(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Error creating JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
