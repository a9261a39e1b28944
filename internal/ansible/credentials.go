package ansible

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CredentialProfile describes how ansible-playbook authenticates against
// the target hosts. Passwords are passed through a short-lived extra-vars
// file rather than the command line, so they never show up in process
// listings.
type CredentialProfile struct {
	User       string
	PrivateKey string

	Password       string
	BecomePassword string

	Become       bool
	BecomeMethod string
}

// Args renders the profile into ansible-playbook arguments plus a cleanup
// func for any secret files it wrote. cleanup is always non-nil.
func (p *CredentialProfile) Args() (args []string, cleanup func(), err error) {
	cleanup = func() {}
	if p == nil {
		return nil, cleanup, nil
	}

	if p.User != "" {
		args = append(args, "-u", p.User)
	}
	if p.PrivateKey != "" {
		args = append(args, "--private-key", p.PrivateKey)
	}
	if p.Become {
		args = append(args, "--become")
		if p.BecomeMethod != "" {
			args = append(args, "--become-method", p.BecomeMethod)
		}
	}

	if p.Password == "" && p.BecomePassword == "" {
		return args, cleanup, nil
	}

	vars := map[string]string{}
	if p.Password != "" {
		vars["ansible_ssh_pass"] = p.Password
	}
	if p.BecomePassword != "" {
		vars["ansible_become_pass"] = p.BecomePassword
	}
	data, err := yaml.Marshal(vars)
	if err != nil {
		return nil, cleanup, err
	}

	f, err := os.CreateTemp("", "infraforge-vars-*.yml")
	if err != nil {
		return nil, cleanup, fmt.Errorf("creating extra-vars file: %w", err)
	}
	name := f.Name()
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		os.Remove(name)
		return nil, cleanup, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return nil, cleanup, fmt.Errorf("writing extra-vars file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return nil, cleanup, err
	}

	args = append(args, "--extra-vars", "@"+name)
	return args, func() { os.Remove(name) }, nil
}
