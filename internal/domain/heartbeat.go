package domain

// Status is the liveness state reported by a component.
type Status string

// Component statuses.
const (
	StatusRunning Status = "running"
	StatusIdle    Status = "idle"
	StatusError   Status = "error"
)

// Heartbeat represents the latest-known liveness record for a component.
// Corresponds to system_status table in PostgreSQL.
// One row per component: a new heartbeat overwrites the previous one.
type Heartbeat struct {
	Component     string // component name, e.g. "runner"
	Status        Status // running | idle | error
	LastHeartbeat int64  // Unix timestamp in milliseconds
	Message       string // optional detail, failure message on error
}
