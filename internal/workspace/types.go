package workspace

import "time"

// InstanceAvailable is the state an instance must reach before it accepts
// connections.
const InstanceAvailable = "AVAILABLE"

// DatabaseInstance is the control-plane view of a managed Postgres instance.
type DatabaseInstance struct {
	Name         string `json:"name"`
	State        string `json:"state,omitempty"`
	ReadWriteDNS string `json:"read_write_dns,omitempty"`
	PGVersion    string `json:"pg_version,omitempty"`
	Capacity     string `json:"capacity,omitempty"`
	Creator      string `json:"creator,omitempty"`
	CreationTime string `json:"creation_time,omitempty"`
	Stopped      bool   `json:"stopped,omitempty"`
}

// Credential is a short-lived database token minted by the control plane.
// ExpirationTime is advisory; the rotation manager replaces tokens well
// before it.
type Credential struct {
	Token          string    `json:"token"`
	ExpirationTime time.Time `json:"expiration_time"`
}

// User is the identity behind a workspace access token. The field casing
// follows the SCIM wire format.
type User struct {
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName,omitempty"`
	Active      bool   `json:"active,omitempty"`
}
