package terraform

import (
	"fmt"
	"regexp"
	"strings"
)

// Classification is the result of matching Terraform output against known
// Proxmox failure shapes. Known is false when no pattern matched; Title and
// Guidance are then empty and callers should show the raw output.
type Classification struct {
	Known    bool
	Title    string
	Guidance string
}

type errorPattern struct {
	re       *regexp.Regexp
	title    string
	guidance string
}

// errorPatterns is matched in order against lowercased output; the first
// hit wins, so more specific shapes come before generic connectivity ones.
// Guidance strings with verbs take the pattern's capture groups.
var errorPatterns = []errorPattern{
	{
		re:       regexp.MustCompile(`permissions.*not sufficient.*missing:?\s*\[([^\]]+)\]`),
		title:    "insufficient API permissions",
		guidance: "The Terraform provider requires permissions: [%s]. Grant them on the target node and storage, or create the token without privilege separation.",
	},
	{
		re:       regexp.MustCompile(`permission denied|403 forbidden|permission check failed`),
		title:    "insufficient API permissions",
		guidance: "The API token lacks the privileges Terraform needs. Grant the PVEVMAdmin and PVEDatastoreUser roles on the target node and storage, or create the token without privilege separation.",
	},
	{
		re:       regexp.MustCompile(`(?:ct|vm|container) (\d+) already exists`),
		title:    "resource ID already in use",
		guidance: "Guest ID %s is already taken on the cluster. Remove the existing guest or let Proxmox assign a free ID.",
	},
	{
		re:       regexp.MustCompile(`storage '([^']+)' does not exist`),
		title:    "storage pool not found",
		guidance: "Storage %q does not exist on the target node. Pick a storage pool listed by `pvesm status` on that node.",
	},
	{
		re:       regexp.MustCompile(`no such node|node '([^']+)' does not exist`),
		title:    "target node not found",
		guidance: "The target node is not part of the cluster. Check the node name against `pvecm nodes`.",
	},
	{
		re:       regexp.MustCompile(`connection refused|no route to host|i/o timeout|tls handshake timeout|context deadline exceeded`),
		title:    "cannot reach the Proxmox API",
		guidance: "The Proxmox endpoint is unreachable. Verify the host and port, and that port 8006 is open from this machine.",
	},
	{
		re:       regexp.MustCompile(`401 |authentication failure|invalid token|ticket expired`),
		title:    "authentication failed",
		guidance: "The provider credentials were rejected. Recreate the API token or check the username and password in the config.",
	},
	{
		re:       regexp.MustCompile(`failed to query available provider packages|could not connect to registry\.terraform\.io`),
		title:    "provider registry unreachable",
		guidance: "Terraform could not download the Proxmox provider. Check outbound network access or pre-populate the plugin mirror.",
	},
}

// Classify matches Terraform output against the known failure shapes.
func Classify(output string) Classification {
	lowered := strings.ToLower(output)

	for _, p := range errorPatterns {
		match := p.re.FindStringSubmatch(lowered)
		if match == nil {
			continue
		}

		guidance := p.guidance
		if strings.Contains(guidance, "%") && len(match) > 1 && match[1] != "" {
			args := make([]any, 0, len(match)-1)
			for _, m := range match[1:] {
				args = append(args, m)
			}
			guidance = fmt.Sprintf(p.guidance, args...)
		}
		return Classification{Known: true, Title: p.title, Guidance: guidance}
	}
	return Classification{}
}
