package proxmox

import "fmt"

// ConnectionError indicates the Proxmox API could not be reached or refused
// the configured credentials. It gates every pre-flight check.
type ConnectionError struct {
	Host string
	Port int
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to Proxmox at %s:%d: %v", e.Host, e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from the Proxmox API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("proxmox api: %s %s returned %s", e.Method, e.Path, e.Status)
}
