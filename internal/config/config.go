package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Salon backend
	APIBaseURL  string
	APIToken    string
	HTTPTimeout time.Duration

	// Session
	SessionFile string
	SessionKey  string

	// Enrollment
	WorkDir       string
	EnrollWorkers int

	// Logging
	LogLevel string
	LogDev   bool
	LogFile  string

	// Photo archive (optional)
	SFTPHost                  string
	SFTPPort                  int
	SFTPUser                  string
	SFTPPass                  string
	SFTPDir                   string
	SFTPInsecureIgnoreHostKey bool
	SFTPKnownHosts            string
}

// Load reads the environment, after merging an optional .env file
// (ENV_FILE, default ".env"). Variables already set win over the file.
func Load() Config {
	_ = loadDotEnv(getenv("ENV_FILE", ".env"))

	return Config{
		APIBaseURL:  strings.TrimRight(getenv("SALON_API_BASE_URL", "http://localhost:5000/api"), "/"),
		APIToken:    os.Getenv("SALON_API_TOKEN"),
		HTTPTimeout: getenvDuration("HTTP_TIMEOUT", 2*time.Minute),

		SessionFile: getenv("SESSION_FILE", defaultSessionFile()),
		SessionKey:  getenv("SESSION_KEY", "salon:session"),

		WorkDir:       getenv("ENROLL_WORK_DIR", os.TempDir()),
		EnrollWorkers: getenvInt("ENROLL_WORKERS", 2),

		LogLevel: os.Getenv("LOG_LEVEL"),
		LogDev:   getenvBool("LOG_DEV", false),
		LogFile:  os.Getenv("LOG_FILE"),

		SFTPHost:                  os.Getenv("SFTP_HOST"),
		SFTPPort:                  getenvInt("SFTP_PORT", 22),
		SFTPUser:                  os.Getenv("SFTP_USER"),
		SFTPPass:                  os.Getenv("SFTP_PASS"),
		SFTPDir:                   getenv("SFTP_DIR", "/faces"),
		SFTPInsecureIgnoreHostKey: getenvBool("SFTP_INSECURE_IGNORE_HOSTKEY", true),
		SFTPKnownHosts:            os.Getenv("SFTP_KNOWN_HOSTS"),
	}
}

// ArchiveEnabled reports whether enough SFTP settings exist to archive photos.
func (c Config) ArchiveEnabled() bool {
	return c.SFTPHost != "" && c.SFTPUser != "" && c.SFTPPass != ""
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".salon-session.json"
	}
	return dir + string(os.PathSeparator) + "face-enroll" + string(os.PathSeparator) + "session.json"
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
