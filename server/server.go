package server

import (
	"io"
	"net/http"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/metrics/export/prometheus"
	"github.com/MrEthical07/goCaptcha/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// Options controls the HTTP surface around an engine.
type Options struct {
	// Production disables the permissive CORS policy unless CORSAllowAll
	// is also set.
	Production   bool
	CORSAllowAll bool
	// TrustProxy takes the caller address from X-Forwarded-For.
	TrustProxy bool
	// Metrics mounts GET /metrics.
	Metrics bool
	// AccessLog receives Apache combined log lines. Nil disables it.
	AccessLog io.Writer
}

// Server holds the handlers for one engine.
type Server struct {
	engine *goCaptcha.Engine
	opts   Options
}

// New returns a Server for engine.
func New(engine *goCaptcha.Engine, opts Options) (*Server, error) {
	if engine == nil {
		return nil, errors.Wrap(goCaptcha.ErrEngineNotReady, "server")
	}
	return &Server{engine: engine, opts: opts}, nil
}

// Router wires every route and middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.ClientIP(s.opts.TrustProxy))
	if !s.opts.Production || s.opts.CORSAllowAll {
		r.Use(handlers.CORS(
			handlers.AllowedMethods([]string{"POST", "GET", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"content-type", "authorization"}),
			handlers.AllowedOrigins([]string{"*"}),
		))
	}

	r.HandleFunc("/captcha", s.IssueChallenge).Methods("POST", "OPTIONS")
	r.HandleFunc("/verify/captcha", s.VerifyCaptcha).Methods("POST", "OPTIONS")
	r.HandleFunc("/captcha/audio", s.ChallengeAudio).Methods("POST", "OPTIONS")
	r.HandleFunc("/verify/jwt", s.VerifyJWT).Methods("POST", "OPTIONS")
	r.HandleFunc("/", Status).Methods("GET")
	r.HandleFunc("/status", Status).Methods("GET")

	if s.opts.Metrics {
		r.Handle("/metrics", prometheus.NewPrometheusExporter(s.engine).Handler()).Methods("GET")
	}
	return r
}

// Handler is Router wrapped with the access log.
func (s *Server) Handler() http.Handler {
	router := s.Router()
	if s.opts.AccessLog == nil {
		return router
	}
	return handlers.CombinedLoggingHandler(s.opts.AccessLog, router)
}
