// Package prerequisites provides utilities for checking required client
// tools. A missing required tool is a fatal configuration error: the
// pipeline surfaces it immediately and never retries.
package prerequisites

import (
	"fmt"
	"os/exec"
	"strings"
)

// Tool represents a client tool that may be required.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// InstallURL provides a URL for installation instructions.
	InstallURL string
}

// DeployTools returns the tools needed for the deployment pipeline.
func DeployTools() []Tool {
	return []Tool{
		{
			Name:        "terraform",
			Required:    true,
			Description: "Required for generating and applying infrastructure configs",
			InstallURL:  "https://developer.hashicorp.com/terraform/install",
		},
	}
}

// PlaybookTools returns the tools needed for post-provision configuration.
func PlaybookTools() []Tool {
	return []Tool{
		{
			Name:        "ansible-playbook",
			Required:    true,
			Description: "Required for configuring provisioned hosts",
			InstallURL:  "https://docs.ansible.com/ansible/latest/installation_guide/",
		},
	}
}

// ScanTools returns the tools used by host discovery and enrichment.
func ScanTools() []Tool {
	return []Tool{
		{
			Name:        "ping",
			Required:    true,
			Description: "Required for reachability sweeps",
		},
		{
			Name:        "nmap",
			Required:    false,
			Description: "Enables OS fingerprinting of discovered hosts",
			InstallURL:  "https://nmap.org/download.html",
		},
	}
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool    Tool
	Found   bool
	Path    string
	Version string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			if tool.InstallURL != "" {
				missing = append(missing, fmt.Sprintf("%s (%s)", tool.Name, tool.InstallURL))
			} else {
				missing = append(missing, tool.Name)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check verifies that the specified tools are available.
func Check(tools []Tool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := exec.LookPath(tool.Name)
		if err == nil {
			result.Found = true
			result.Path = path
			result.Version = getToolVersion(tool.Name)
		} else {
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// CheckAll checks every tool InfraForge can make use of.
func CheckAll() *CheckResults {
	var all []Tool
	all = append(all, DeployTools()...)
	all = append(all, PlaybookTools()...)
	all = append(all, ScanTools()...)
	return Check(all)
}

// getToolVersion attempts to get the version of a tool.
// Returns empty string if version cannot be determined.
func getToolVersion(name string) string {
	versionFlags := []string{"--version", "version", "-V"}

	for _, flag := range versionFlags {
		// #nosec G204 - name comes from trusted Tool definitions, not user input
		cmd := exec.Command(name, flag)
		output, err := cmd.Output()
		if err == nil {
			lines := strings.Split(string(output), "\n")
			if len(lines) > 0 {
				return strings.TrimSpace(lines[0])
			}
		}
	}

	return ""
}
