package statefs

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// Remote reads another machine's kernel namespaces over SSH, one command per
// read. This is how a black-screen box gets diagnosed from a working one:
// the pipeline is unchanged, only the Reader differs.
type Remote struct {
	client   *ssh.Client
	maxBytes int64
}

// RemoteConfig describes the SSH endpoint and credentials.
type RemoteConfig struct {
	// Host is the target address (name or IP).
	Host string
	// Port defaults to 22.
	Port int
	// User is the login name.
	User string
	// KeyPath is a private key file; takes precedence over Password.
	KeyPath string
	// Passphrase decrypts the private key when set.
	Passphrase string
	// Password enables password authentication when no key is given.
	Password string
	// Timeout bounds the dial and each command.
	Timeout time.Duration
}

// DialRemote establishes the SSH connection for a remote reader.
func DialRemote(ctx context.Context, cfg RemoteConfig, maxBytes int64) (*Remote, error) {
	if maxBytes <= 0 {
		maxBytes = 200_000
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	clientCfg, err := buildClientConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build SSH config: %w", err)
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("establish SSH connection: %w", err)
	}

	return &Remote{client: ssh.NewClient(sshConn, chans, reqs), maxBytes: maxBytes}, nil
}

// buildClientConfig creates the ssh client config from the credentials.
func buildClientConfig(cfg RemoteConfig) (*ssh.ClientConfig, error) {
	if cfg.User == "" {
		return nil, fmt.Errorf("SSH user is required")
	}

	var auth []ssh.AuthMethod
	switch {
	case cfg.KeyPath != "":
		keyData, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		var signer ssh.Signer
		if cfg.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(cfg.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyData)
		}
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	case cfg.Password != "":
		auth = append(auth, ssh.Password(cfg.Password))
	default:
		return nil, fmt.Errorf("no SSH credentials: need a key path or password")
	}

	return &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.Timeout,
	}, nil
}

// Close shuts down the SSH connection.
func (r *Remote) Close() error {
	return r.client.Close()
}

// run executes one command in a fresh session and returns stdout, stderr and
// the remote exit code.
func (r *Remote) run(cmd string) (string, string, int, error) {
	session, err := r.client.NewSession()
	if err != nil {
		return "", "", -1, fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	err = session.Run(cmd)
	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return stdout.String(), stderr.String(), exitErr.ExitStatus(), nil
		}
		return stdout.String(), stderr.String(), -1, err
	}
	return stdout.String(), stderr.String(), 0, nil
}

// ReadFile reads one remote path, truncating at the size bound.
func (r *Remote) ReadFile(path string) Result {
	out, errText, code, err := r.run(fmt.Sprintf("head -c %d -- %s", r.maxBytes+1, shellQuote(path)))
	if err != nil {
		return Result{State: Unreadable, Err: err}
	}
	if code != 0 {
		return classifyRemote(errText, code)
	}

	truncated := int64(len(out)) > r.maxBytes
	if truncated {
		out = out[:r.maxBytes]
	}
	return Result{Content: out, State: Present, Truncated: truncated}
}

// ReadLink resolves a remote symlink target.
func (r *Remote) ReadLink(path string) (string, error) {
	out, errText, code, err := r.run("readlink -- " + shellQuote(path))
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("readlink %s: %s", path, strings.TrimSpace(errText))
	}
	return strings.TrimSpace(out), nil
}

// List enumerates a remote directory sorted by name. ls -1p marks
// directories with a trailing slash.
func (r *Remote) List(dir string) ([]Entry, error) {
	out, errText, code, err := r.run("ls -1p -- " + shellQuote(dir))
	if err != nil {
		return nil, err
	}
	if code != 0 {
		if strings.Contains(errText, "No such file") {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %s", dir, strings.TrimSpace(errText))
	}

	var entries []Entry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if name, ok := strings.CutSuffix(line, "/"); ok {
			entries = append(entries, Entry{Name: name, Dir: true})
		} else {
			entries = append(entries, Entry{Name: line})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Size returns the byte length of a remote path.
func (r *Remote) Size(path string) (int64, error) {
	out, errText, code, err := r.run("stat -c %s -- " + shellQuote(path))
	if err != nil {
		return 0, err
	}
	if code != 0 {
		return 0, fmt.Errorf("stat %s: %s", path, strings.TrimSpace(errText))
	}
	return strconv.ParseInt(strings.TrimSpace(out), 10, 64)
}

// Exists reports whether a remote path exists.
func (r *Remote) Exists(path string) bool {
	_, _, code, err := r.run("test -e " + shellQuote(path))
	return err == nil && code == 0
}

// StatDevice inspects a remote device special file. stat %t/%T print the
// device numbers in hex.
func (r *Remote) StatDevice(path string) (DevInfo, error) {
	out, errText, code, err := r.run("stat -c '%F %t %T' -- " + shellQuote(path))
	if err != nil {
		return DevInfo{}, err
	}
	if code != 0 {
		return DevInfo{}, fmt.Errorf("stat %s: %s", path, strings.TrimSpace(errText))
	}

	fields := strings.Fields(out)
	if len(fields) < 3 || !strings.Contains(out, "character") {
		return DevInfo{}, nil
	}
	major, err := strconv.ParseUint(fields[len(fields)-2], 16, 32)
	if err != nil {
		return DevInfo{}, fmt.Errorf("parse major for %s: %w", path, err)
	}
	minor, err := strconv.ParseUint(fields[len(fields)-1], 16, 32)
	if err != nil {
		return DevInfo{}, fmt.Errorf("parse minor for %s: %w", path, err)
	}
	return DevInfo{CharDev: true, Major: uint32(major), Minor: uint32(minor)}, nil
}

// WriteFile writes a small control value on the remote side.
func (r *Remote) WriteFile(path, data string) error {
	cmd := fmt.Sprintf("printf %%s %s > %s", shellQuote(data), shellQuote(path))
	_, errText, code, err := r.run(cmd)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("write %s: %s", path, strings.TrimSpace(errText))
	}
	return nil
}

func classifyRemote(stderr string, code int) Result {
	if strings.Contains(stderr, "No such file") {
		return Result{State: Absent}
	}
	return Result{State: Unreadable, Err: fmt.Errorf("exit %d: %s", code, strings.TrimSpace(stderr))}
}

// shellQuote wraps a path in single quotes, escaping embedded quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
