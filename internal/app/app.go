package app

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"face-enroll/internal/archive"
	"face-enroll/internal/config"
	"face-enroll/internal/enroll"
	"face-enroll/internal/imagex"
	"face-enroll/internal/logx"
	"face-enroll/internal/providers/salon"
	"face-enroll/internal/session"
)

// Logger builds the process logger from the loaded configuration.
func Logger(cfg config.Config) (*zap.Logger, error) {
	lc := logx.ConfigFromEnv()
	if cfg.LogLevel != "" {
		lc.Level = cfg.LogLevel
	}
	lc.Dev = cfg.LogDev
	lc.File = cfg.LogFile
	return logx.New(lc)
}

func SessionStore(cfg config.Config) *session.FileStore {
	return session.NewFileStore(cfg.SessionFile, cfg.SessionKey)
}

// Auth prefers SALON_API_TOKEN over the token saved by the login command.
func Auth(cfg config.Config) session.AuthProvider {
	if strings.TrimSpace(cfg.APIToken) != "" {
		return session.StaticToken(cfg.APIToken)
	}
	return SessionStore(cfg)
}

func Client(cfg config.Config) *salon.Client {
	return salon.New(cfg.APIBaseURL, cfg.HTTPTimeout)
}

// Archiver returns nil when SFTP is not configured.
func Archiver(cfg config.Config) *archive.SFTPArchiver {
	if !cfg.ArchiveEnabled() {
		return nil
	}
	return archive.New(archive.Config{
		Host:                  cfg.SFTPHost,
		Port:                  cfg.SFTPPort,
		User:                  cfg.SFTPUser,
		Pass:                  cfg.SFTPPass,
		RemoteDir:             cfg.SFTPDir,
		InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
		KnownHostsFile:        cfg.SFTPKnownHosts,
		DialTimeout:           30 * time.Second,
	})
}

// Pipeline wires the registration pipeline the way every command uses it.
func Pipeline(cfg config.Config, logger *zap.Logger) *enroll.Pipeline {
	p := enroll.New(Client(cfg), Auth(cfg), imagex.ImagingResizer{}, logger)
	p.WorkDir = cfg.WorkDir
	if a := Archiver(cfg); a != nil {
		p.Archiver = a
		logger.Info("photo archive enabled", zap.String("host", cfg.SFTPHost), zap.String("dir", cfg.SFTPDir))
	}
	return p
}
