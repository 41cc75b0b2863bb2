package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrNotConfigured is returned when the SFTP credentials are incomplete.
var ErrNotConfigured = errors.New("archive: missing SFTP_HOST / SFTP_USER / SFTP_PASS")

type Config struct {
	Host      string
	Port      int
	User      string
	Pass      string
	RemoteDir string

	// Host key checking: either ignore it (dev) or verify against a known_hosts file.
	InsecureIgnoreHostKey bool
	KnownHostsFile        string

	DialTimeout time.Duration
}

// SFTPArchiver copies accepted face photos to an SFTP server, one file per employee.
type SFTPArchiver struct {
	Config Config
}

func New(cfg Config) *SFTPArchiver {
	return &SFTPArchiver{Config: cfg}
}

// Archive uploads photoPath as <employeeID>.jpg, replacing any earlier copy.
func (a *SFTPArchiver) Archive(ctx context.Context, employeeID, photoPath string) error {
	if strings.TrimSpace(employeeID) == "" {
		return errors.New("archive: employee id is required")
	}
	return a.Upload(ctx, photoPath, RemoteName(employeeID))
}

// RemoteName maps an employee id to a flat file name inside RemoteDir.
func RemoteName(employeeID string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return r.Replace(strings.TrimSpace(employeeID)) + ".jpg"
}

func (a *SFTPArchiver) Upload(ctx context.Context, localPath, remoteName string) error {
	cfg := a.Config.withDefaults()
	if cfg.Host == "" || cfg.User == "" || cfg.Pass == "" {
		return ErrNotConfigured
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("archive: open local file: %w", err)
	}
	defer src.Close()

	hostKey, err := cfg.hostKeyCallback()
	if err != nil {
		return err
	}
	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Pass)},
		HostKeyCallback: hostKey,
		Timeout:         cfg.DialTimeout,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	sshClient, err := dial(ctx, addr, sshCfg)
	if err != nil {
		return err
	}
	defer sshClient.Close()

	// Closing the connection unblocks any in-flight sftp call.
	stop := context.AfterFunc(ctx, func() { sshClient.Close() })
	defer stop()

	sftpCli, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("archive: new sftp client: %w", ctxErr(ctx, err))
	}
	defer sftpCli.Close()

	if err := sftpCli.MkdirAll(cfg.RemoteDir); err != nil {
		return fmt.Errorf("archive: mkdir %s: %w", cfg.RemoteDir, ctxErr(ctx, err))
	}

	remotePath := path.Join(cfg.RemoteDir, remoteName)
	dst, err := sftpCli.Create(remotePath)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", remotePath, ctxErr(ctx, err))
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("archive: upload %s: %w", remotePath, ctxErr(ctx, err))
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("archive: close %s: %w", remotePath, ctxErr(ctx, err))
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Port <= 0 {
		c.Port = 22
	}
	if c.RemoteDir == "" {
		c.RemoteDir = "/"
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 20 * time.Second
	}
	return c
}

func (c Config) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if c.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if c.KnownHostsFile == "" {
		return nil, errors.New("archive: host key checking enabled but SFTP_KNOWN_HOSTS is empty")
	}
	cb, err := knownhosts.New(c.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("archive: known hosts: %w", err)
	}
	return cb, nil
}

func dial(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("archive: dial %s: %w", addr, ctxErr(ctx, err))
	}

	// The handshake itself is not context aware.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	_ = conn.SetDeadline(time.Now().Add(cfg.Timeout))

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("archive: ssh handshake %s: %w", addr, ctxErr(ctx, err))
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

// ctxErr prefers the context error when a cancellation closed the connection.
func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return err
}
