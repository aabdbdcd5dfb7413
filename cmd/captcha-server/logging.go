package main

import (
	"log/syslog"
	"net"
	"strconv"

	"github.com/cloudflare/cfssl/log"
	"github.com/pkg/errors"
)

// logLevels maps LOG_LEVEL values onto cfssl levels. "none" keeps only
// fatal messages.
var logLevels = map[string]int{
	"debug":   log.LevelDebug,
	"info":    log.LevelInfo,
	"warning": log.LevelWarning,
	"warn":    log.LevelWarning,
	"error":   log.LevelError,
	"none":    log.LevelFatal,
}

func configureLogging(s settings) error {
	level, ok := logLevels[s.LogLevel]
	if !ok {
		return errors.Errorf("unknown LOG_LEVEL %q", s.LogLevel)
	}
	log.Level = level

	if s.SyslogHost == "" {
		return nil
	}
	w, err := syslog.Dial("udp", joinHostPort(s.SyslogHost, s.SyslogPort), syslog.LOG_INFO|syslog.LOG_DAEMON, cmdName)
	if err != nil {
		return errors.Wrap(err, "connect to syslog")
	}
	log.SetLogger(syslogAdapter{w: w})
	return nil
}

// syslogAdapter drops the write errors of a *syslog.Writer.
type syslogAdapter struct {
	w *syslog.Writer
}

func (a syslogAdapter) Debug(m string)   { _ = a.w.Debug(m) }
func (a syslogAdapter) Info(m string)    { _ = a.w.Info(m) }
func (a syslogAdapter) Warning(m string) { _ = a.w.Warning(m) }
func (a syslogAdapter) Err(m string)     { _ = a.w.Err(m) }
func (a syslogAdapter) Crit(m string)    { _ = a.w.Crit(m) }
func (a syslogAdapter) Emerg(m string)   { _ = a.w.Emerg(m) }

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
