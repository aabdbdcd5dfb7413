package main

import (
	"strings"
	"time"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// settings is the process configuration read from the environment.
type settings struct {
	PrivateKey       string
	Secret           string
	CaptchaExpiry    time.Duration
	JWTExpiry        time.Duration
	BypassAnswer     string
	AllowedCallers   string
	AudioEnabled     bool
	ListenIP         string
	Port             int
	LogLevel         string
	Production       bool
	CORSAllowAll     bool
	SyslogHost       string
	SyslogPort       int
	RedisAddr        string
	ReplayProtection bool
	MetricsEnabled   bool
	TrustProxy       bool
	AuditLog         bool
}

func setDefaults(v *viper.Viper) {
	v.AutomaticEnv()
	v.SetDefault("private_key", goCaptcha.DefaultSealingKeyJWK)
	v.SetDefault("secret", goCaptcha.DefaultSecret)
	v.SetDefault("captcha_sign_expiry", 15)
	v.SetDefault("jwt_sign_expiry", 15)
	v.SetDefault("authorized_resource_server_ip_range_list", goCaptcha.DefaultAllowedCallers)
	v.SetDefault("audio_enabled", true)
	v.SetDefault("listen_ip", "0.0.0.0")
	v.SetDefault("service_port", 8080)
	v.SetDefault("log_level", "error")
	v.SetDefault("syslog_port", 514)
}

func loadSettings(v *viper.Viper) (settings, error) {
	s := settings{
		PrivateKey:       v.GetString("private_key"),
		Secret:           v.GetString("secret"),
		CaptchaExpiry:    time.Duration(v.GetInt("captcha_sign_expiry")) * time.Minute,
		JWTExpiry:        time.Duration(v.GetInt("jwt_sign_expiry")) * time.Minute,
		BypassAnswer:     v.GetString("bypass_answer"),
		AllowedCallers:   v.GetString("authorized_resource_server_ip_range_list"),
		AudioEnabled:     v.GetBool("audio_enabled"),
		ListenIP:         v.GetString("listen_ip"),
		Port:             v.GetInt("service_port"),
		LogLevel:         strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		Production:       v.GetBool("production") || strings.EqualFold(v.GetString("node_env"), "production"),
		CORSAllowAll:     v.GetBool("cors_allow_all"),
		SyslogHost:       v.GetString("syslog_host"),
		SyslogPort:       v.GetInt("syslog_port"),
		RedisAddr:        v.GetString("redis_addr"),
		ReplayProtection: v.GetBool("replay_protection"),
		MetricsEnabled:   v.GetBool("metrics_enabled"),
		TrustProxy:       v.GetBool("trust_proxy_headers"),
		AuditLog:         v.GetBool("audit_log"),
	}
	if s.Port <= 0 || s.Port > 65535 {
		return settings{}, errors.Errorf("invalid SERVICE_PORT %d", s.Port)
	}
	if s.ReplayProtection && s.RedisAddr == "" {
		return settings{}, errors.New("REPLAY_PROTECTION requires REDIS_ADDR")
	}
	return s, nil
}

// engineConfig maps the process settings onto an engine Config.
func (s settings) engineConfig() goCaptcha.Config {
	cfg := goCaptcha.DefaultConfig()
	cfg.Challenge.IssueTTL = s.CaptchaExpiry
	cfg.Sealing.KeyJWK = []byte(s.PrivateKey)
	cfg.Credential.TTL = s.JWTExpiry
	cfg.Credential.PrivateKey = []byte(s.Secret)
	cfg.Bypass.Answer = s.BypassAnswer
	cfg.Audio.Enabled = s.AudioEnabled
	cfg.Callers.AllowList = strings.Split(s.AllowedCallers, ",")
	cfg.Replay.Enabled = s.ReplayProtection
	cfg.Metrics.Enabled = s.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = s.MetricsEnabled
	cfg.Security.ProductionMode = s.Production
	cfg.Audit.Enabled = s.AuditLog
	return cfg
}

func (s settings) listenAddr() string {
	return joinHostPort(s.ListenIP, s.Port)
}
