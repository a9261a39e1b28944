package terraform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		output       string
		wantKnown    bool
		wantTitle    string
		wantGuidance string
	}{
		{
			name:         "permission failure captures the missing permissions",
			output:       "Error: Permissions of the user/token are not sufficient, missing: [VM.Allocate, Datastore.AllocateSpace]",
			wantKnown:    true,
			wantTitle:    "insufficient API permissions",
			wantGuidance: "The Terraform provider requires permissions: [vm.allocate, datastore.allocatespace]. Grant them on the target node and storage, or create the token without privilege separation.",
		},
		{
			name:      "permission denied without a permission list",
			output:    "Error: error creating container: received an HTTP 403 response - Reason: Permission check failed (/vms/105, VM.Allocate)",
			wantKnown: true,
			wantTitle: "insufficient API permissions",
		},
		{
			name:         "guest already exists carries the ID",
			output:       "Error: CT 105 already exists on node 'pve1'",
			wantKnown:    true,
			wantTitle:    "resource ID already in use",
			wantGuidance: "Guest ID 105 is already taken on the cluster. Remove the existing guest or let Proxmox assign a free ID.",
		},
		{
			name:         "storage missing carries the name",
			output:       "Error: storage 'fast-nvme' does not exist",
			wantKnown:    true,
			wantTitle:    "storage pool not found",
			wantGuidance: "Storage \"fast-nvme\" does not exist on the target node. Pick a storage pool listed by `pvesm status` on that node.",
		},
		{
			name:      "node missing",
			output:    "Error: proxmox API error: no such node 'pve9'",
			wantKnown: true,
			wantTitle: "target node not found",
		},
		{
			name:      "connection refused",
			output:    "Error: Get \"https://10.0.0.2:8006/api2/json/version\": dial tcp 10.0.0.2:8006: connect: connection refused",
			wantKnown: true,
			wantTitle: "cannot reach the Proxmox API",
		},
		{
			name:      "authentication failure",
			output:    "Error: received an HTTP 401 response - Reason: authentication failure",
			wantKnown: true,
			wantTitle: "authentication failed",
		},
		{
			name:      "registry unreachable",
			output:    "Error: Failed to query available provider packages: could not connect to registry.terraform.io",
			wantKnown: true,
			wantTitle: "provider registry unreachable",
		},
		{
			name:      "unknown output",
			output:    "Error: something entirely novel happened",
			wantKnown: false,
		},
		{
			name:      "permission wins over connection when both appear",
			output:    "permission denied\nconnection refused",
			wantKnown: true,
			wantTitle: "insufficient API permissions",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := Classify(tt.output)
			assert.Equal(t, tt.wantKnown, c.Known)
			assert.Equal(t, tt.wantTitle, c.Title)
			if tt.wantGuidance != "" {
				assert.Equal(t, tt.wantGuidance, c.Guidance)
			}
			if !tt.wantKnown {
				assert.Empty(t, c.Title)
				assert.Empty(t, c.Guidance)
			}
		})
	}
}
