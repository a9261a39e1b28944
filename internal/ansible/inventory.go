// Package ansible runs playbooks against provisioned hosts, streaming
// merged output to the caller and a per-run log file, and discovers the
// playbooks available in a directory.
package ansible

import (
	"fmt"
	"os"
	"strings"
)

// WriteInventory writes a throwaway INI inventory with the given hosts
// under a single [targets] group. The cleanup func removes the file and
// never fails.
func WriteInventory(hosts []string) (path string, cleanup func(), err error) {
	if len(hosts) == 0 {
		return "", nil, fmt.Errorf("inventory needs at least one host")
	}

	f, err := os.CreateTemp("", "infraforge-inventory-*.ini")
	if err != nil {
		return "", nil, fmt.Errorf("creating inventory: %w", err)
	}

	var b strings.Builder
	b.WriteString("[targets]\n")
	for _, h := range hosts {
		b.WriteString(h)
		b.WriteString("\n")
	}

	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("writing inventory: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}

	name := f.Name()
	return name, func() { os.Remove(name) }, nil
}
