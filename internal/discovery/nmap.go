package discovery

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const nmapTimeout = 30 * time.Second

type runCommandFunc func(ctx context.Context, name string, args ...string) (string, error)

// NmapDetector guesses a host's operating system with nmap. With sudo
// available it runs a real OS fingerprint scan; without it falls back to
// service version detection, which is coarser but unprivileged.
type NmapDetector struct {
	Sudo bool

	run runCommandFunc
}

// NewNmapDetector returns a detector. sudo selects the privileged scan tier.
func NewNmapDetector(sudo bool) *NmapDetector {
	return &NmapDetector{Sudo: sudo, run: runCommand}
}

// CheckNmap reports whether nmap is installed and whether passwordless sudo
// is available for the privileged scan tier.
func CheckNmap() (found, sudoOK bool) {
	if _, err := exec.LookPath("nmap"); err != nil {
		return false, false
	}
	err := exec.Command("sudo", "-n", "true").Run()
	return true, err == nil
}

// Detect runs an nmap scan against ip and returns an OS guess, or an empty
// string when the scan produced no usable hint.
func (d *NmapDetector) Detect(ctx context.Context, ip string) (string, error) {
	run := d.run
	if run == nil {
		run = runCommand
	}

	ctx, cancel := context.WithTimeout(ctx, nmapTimeout)
	defer cancel()

	var (
		out string
		err error
	)
	if d.Sudo {
		out, err = run(ctx, "sudo", "-n", "nmap", "-O", "--osscan-guess", "--top-ports", "20", "-T4", "--max-retries", "1", ip)
	} else {
		out, err = run(ctx, "nmap", "-sV", "--top-ports", "10", ip)
	}
	if err != nil {
		return "", fmt.Errorf("nmap scan of %s: %w", ip, err)
	}
	return parseNmapOS(out, d.Sudo), nil
}

// parseNmapOS extracts an OS guess from nmap output. Privileged scans carry
// explicit OS lines, preferred most specific first; unprivileged ones only
// hint via "Service Info".
func parseNmapOS(output string, osDetect bool) string {
	var details, running, guess string

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)

		if osDetect {
			if after, ok := strings.CutPrefix(line, "OS details:"); ok {
				details = strings.TrimSpace(after)
			}
			if after, ok := strings.CutPrefix(line, "Running:"); ok {
				running = strings.TrimSpace(after)
			}
			if after, ok := strings.CutPrefix(line, "Aggressive OS guesses:"); ok {
				// keep only the most confident guess
				guess = strings.TrimSpace(after)
				if idx := strings.Index(guess, ","); idx > 0 {
					guess = guess[:idx]
				}
			}
			continue
		}

		if after, ok := strings.CutPrefix(line, "Service Info:"); ok {
			for _, field := range strings.Split(after, ";") {
				field = strings.TrimSpace(field)
				if os, ok := strings.CutPrefix(field, "OS:"); ok {
					return strings.TrimSpace(os)
				}
				if os, ok := strings.CutPrefix(field, "OSs:"); ok {
					return strings.TrimSpace(os)
				}
			}
		}
	}

	switch {
	case details != "":
		return details
	case running != "":
		return running
	default:
		return guess
	}
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}
