// Package sshutil waits for freshly provisioned hosts to accept SSH and
// runs one-off commands over it.
package sshutil

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/infraforge/infraforge/internal/util/retry"
)

const (
	bannerTimeout  = 5 * time.Second
	defaultSSHPort = 22
)

// WaitForSSH blocks until host answers with an SSH banner on port, retrying
// with backoff for up to maxWait. A cloud-init'ed guest can take a minute
// or two before sshd is up, so callers typically pass several minutes.
func WaitForSSH(ctx context.Context, host string, port int, maxWait time.Duration) error {
	if port <= 0 {
		port = defaultSSHPort
	}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	err := retry.WithExponentialBackoff(ctx, func() error {
		return probeBanner(addr)
	},
		retry.WithMaxRetries(int(maxWait/(2*time.Second))),
		retry.WithInitialDelay(2*time.Second),
		retry.WithMaxDelay(10*time.Second),
		retry.WithMultiplier(1.5),
	)
	if err != nil {
		return fmt.Errorf("waiting for SSH on %s: %w", addr, err)
	}
	return nil
}

// probeBanner dials the address and checks for the SSH protocol banner, so
// a port answered by something else entirely does not count as ready.
func probeBanner(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, bannerTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(bannerTimeout))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading banner: %w", err)
	}
	if !strings.HasPrefix(line, "SSH-") {
		return fmt.Errorf("unexpected banner %q", strings.TrimSpace(line))
	}
	return nil
}

// Client runs commands on a remote host over SSH.
type Client struct {
	ssh *ssh.Client
}

// Dial opens an SSH connection. Host keys are not verified: the targets are
// hosts this tool created seconds ago, their keys cannot be known yet.
func Dial(ctx context.Context, host string, port int, user string, auth []ssh.AuthMethod) (*Client, error) {
	if port <= 0 {
		port = defaultSSHPort
	}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	dialer := net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	return &Client{ssh: ssh.NewClient(sshConn, chans, reqs)}, nil
}

// Run executes a command and returns its combined output.
func (c *Client) Run(cmd string) (string, error) {
	session, err := c.ssh.NewSession()
	if err != nil {
		return "", fmt.Errorf("opening session: %w", err)
	}
	defer session.Close()

	out, err := session.CombinedOutput(cmd)
	if err != nil {
		return string(out), fmt.Errorf("running %q: %w", cmd, err)
	}
	return string(out), nil
}

// Close tears down the connection.
func (c *Client) Close() error { return c.ssh.Close() }

// PublicKeyAuth loads a private key file into an SSH auth method.
func PublicKeyAuth(path string) (ssh.AuthMethod, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parsing private key %s: %w", path, err)
	}
	return ssh.PublicKeys(signer), nil
}

// VerifyLogin authenticates to host with the given key and runs a no-op
// command. A failed login surfaces here as one clear error instead of a
// wall of Ansible output later. An empty user means root.
func VerifyLogin(ctx context.Context, host string, port int, user, keyPath string) error {
	if user == "" {
		user = "root"
	}
	auth, err := PublicKeyAuth(keyPath)
	if err != nil {
		return err
	}
	client, err := Dial(ctx, host, port, user, []ssh.AuthMethod{auth})
	if err != nil {
		return fmt.Errorf("ssh login to %s as %s: %w", host, user, err)
	}
	defer client.Close()

	if _, err := client.Run("true"); err != nil {
		return fmt.Errorf("ssh command on %s: %w", host, err)
	}
	return nil
}
