package proxmox

// Node describes a cluster node as returned by GET /nodes.
type Node struct {
	Name    string  `json:"node"`
	Status  string  `json:"status"`
	CPU     float64 `json:"cpu"`
	MaxCPU  int     `json:"maxcpu"`
	Mem     int64   `json:"mem"`
	MaxMem  int64   `json:"maxmem"`
	Disk    int64   `json:"disk"`
	MaxDisk int64   `json:"maxdisk"`
	Uptime  int64   `json:"uptime"`
}

// Online reports whether the node is reachable and serving.
func (n Node) Online() bool { return n.Status == "online" }

// Storage describes a storage pool on a node.
type Storage struct {
	Name    string `json:"storage"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Active  int    `json:"active"`
	Total   int64  `json:"total"`
	Used    int64  `json:"used"`
	Avail   int64  `json:"avail"`
}

// AvailGB returns the free capacity in gigabytes.
func (s Storage) AvailGB() float64 { return float64(s.Avail) / (1 << 30) }

// Volume describes a stored volume (template, ISO, disk image).
type Volume struct {
	VolID   string `json:"volid"`
	Content string `json:"content"`
	Format  string `json:"format"`
	Size    int64  `json:"size"`
}

// Appliance is an entry from the pveam appliance catalog.
type Appliance struct {
	Template    string `json:"template"`
	OS          string `json:"os"`
	Section     string `json:"section"`
	Headline    string `json:"headline"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Task is a node task as returned by GET /nodes/{node}/tasks. The UPID is
// the cluster-unique identifier used to poll status and logs.
type Task struct {
	UPID      string `json:"upid"`
	Type      string `json:"type"`
	ID        string `json:"id"`
	Node      string `json:"node"`
	User      string `json:"user"`
	Status    string `json:"status"`
	StartTime int64  `json:"starttime"`
	EndTime   int64  `json:"endtime"`
}

// TaskStatus is the live status of a single task.
type TaskStatus struct {
	Status     string `json:"status"`     // "running" or "stopped"
	ExitStatus string `json:"exitstatus"` // "OK" or an error message, set once stopped
}

// Stopped reports whether the task has finished.
func (s TaskStatus) Stopped() bool { return s.Status == "stopped" }

// OK reports whether the task finished successfully.
func (s TaskStatus) OK() bool { return s.Stopped() && s.ExitStatus == "OK" }

// TaskLogLine is one line of a task's log, numbered from 1.
type TaskLogLine struct {
	N int    `json:"n"`
	T string `json:"t"`
}

// TokenInfo describes an API token attached to a user.
type TokenInfo struct {
	TokenID string `json:"tokenid"`
	Comment string `json:"comment"`
}
