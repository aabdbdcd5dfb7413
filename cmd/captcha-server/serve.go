package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/server"
	"github.com/cloudflare/cfssl/log"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the captcha HTTP service",
		Long: "Start the captcha HTTP service. Configuration is read from the environment " +
			"(PRIVATE_KEY, SECRET, CAPTCHA_SIGN_EXPIRY, JWT_SIGN_EXPIRY, ...); flags override it.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			if err := configureLogging(s); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, s)
		},
	}

	setDefaults(v)
	flags := cmd.Flags()
	flags.String("listen-ip", "0.0.0.0", "Address to listen on (LISTEN_IP)")
	flags.Int("port", 8080, "Port to listen on (SERVICE_PORT)")
	flags.String("log-level", "error", "debug, info, warning, error or none (LOG_LEVEL)")
	for key, flag := range map[string]string{
		"listen_ip":    "listen-ip",
		"service_port": "port",
		"log_level":    "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func serve(ctx context.Context, s settings) error {
	engine, closeEngine, err := buildEngine(ctx, s)
	if err != nil {
		return err
	}
	defer closeEngine()

	report := engine.SecurityReport()
	log.Infof("sealing key %s (%s), credential %s, audio=%t, replay=%t, allowed callers %v",
		report.SealingKeyID, report.SealingAlgorithm, report.SigningAlgorithm,
		report.AudioEnabled, report.ReplayProtection, report.AllowedCallers)
	if report.BypassEnabled {
		log.Warning("bypass answer is configured; every challenge can be solved with it")
	}
	if report.DefaultSecret || report.DefaultSealingKey {
		log.Warning("running with the shipped development secrets")
	}

	srv, err := server.New(engine, server.Options{
		Production:   s.Production,
		CORSAllowAll: s.CORSAllowAll,
		TrustProxy:   s.TrustProxy,
		Metrics:      s.MetricsEnabled,
		AccessLog:    os.Stdout,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              s.listenAddr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", httpServer.Addr)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Wrap(httpServer.Shutdown(shutdownCtx), "shutdown")
}

// buildEngine validates the configuration and builds the engine. The
// returned func closes the engine and its redis client.
func buildEngine(ctx context.Context, s settings) (*goCaptcha.Engine, func(), error) {
	cfg := s.engineConfig()
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, goCaptcha.ErrDefaultSecrets) {
			return nil, nil, errors.Wrap(err, "set SECRET and PRIVATE_KEY")
		}
		return nil, nil, errors.Wrap(err, "invalid configuration")
	}

	builder := goCaptcha.New().WithConfig(cfg).WithAuditSink(goCaptcha.LogSink{})
	var client redis.UniversalClient
	if s.RedisAddr != "" {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{s.RedisAddr}})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, errors.Wrapf(err, "connect to redis at %s", s.RedisAddr)
		}
		builder = builder.WithRedis(client)
	}

	engine, err := builder.Build()
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		return nil, nil, errors.Wrap(err, "build engine")
	}
	return engine, func() {
		engine.Close()
		if client != nil {
			_ = client.Close()
		}
	}, nil
}
