// Package proxmox provides a thin wrapper around the Proxmox VE HTTP API.
//
// The surface is limited to what the provisioning pipeline needs: cluster
// topology and storage for pre-flight checks, the appliance catalog for
// template auto-download, the task subsystem for progress monitoring, and
// API token management for the Terraform provider.
package proxmox

import "context"

// Client is the Proxmox VE API surface used by the pipeline. RealClient
// implements it over HTTP; MockClient implements it for tests.
type Client interface {
	// Version returns the cluster version string and doubles as a
	// connectivity probe.
	Version(ctx context.Context) (string, error)

	// Nodes lists all cluster nodes.
	Nodes(ctx context.Context) ([]Node, error)

	// NextVMID returns the next free VMID in the cluster.
	NextVMID(ctx context.Context) (int, error)

	// NodeStorage lists the storage pools visible on a node.
	NodeStorage(ctx context.Context, node string) ([]Storage, error)

	// StorageContent lists the volumes stored in a pool on a node.
	StorageContent(ctx context.Context, node, storage string) ([]Volume, error)

	// ApplianceCatalog returns the pveam appliance index for a node.
	ApplianceCatalog(ctx context.Context, node string) ([]Appliance, error)

	// DownloadAppliance asks pveam to download a template into a storage
	// pool and returns the UPID of the download task.
	DownloadAppliance(ctx context.Context, node, storage, template string) (string, error)

	// NodeTasks lists recent tasks on a node. since is a Unix timestamp;
	// only tasks started at or after it are returned, newest first,
	// at most limit entries.
	NodeTasks(ctx context.Context, node string, since int64, limit int) ([]Task, error)

	// TaskStatus fetches the current status of a task.
	TaskStatus(ctx context.Context, node, upid string) (TaskStatus, error)

	// TaskLog fetches task log lines starting at line offset start,
	// at most limit lines.
	TaskLog(ctx context.Context, node, upid string, start, limit int) ([]TaskLogLine, error)

	// ListTokens lists the API tokens attached to a user.
	ListTokens(ctx context.Context, user string) ([]TokenInfo, error)

	// CreateToken creates an API token for a user and returns its secret.
	// The secret is only ever returned once.
	CreateToken(ctx context.Context, user, tokenID string, privsep bool, comment string) (string, error)

	// DeleteToken removes an API token from a user.
	DeleteToken(ctx context.Context, user, tokenID string) error
}
