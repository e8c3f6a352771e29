package health

import "time"

const (
	StatusUp       = "UP"
	StatusDegraded = "DEGRADED"
)

// Dependency is the result of probing one collaborator.
type Dependency struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Sync summarises the local-first state of the workspace.
type Sync struct {
	LastUpdated   *time.Time `json:"lastUpdated,omitempty"`
	LastSyncError string     `json:"lastSyncError,omitempty"`
	Glosas        int        `json:"glosas"`
	Ingresos      int        `json:"ingresos"`
}

// Status captures the state of the service at a moment in time.
type Status struct {
	Service      string       `json:"service"`
	Version      string       `json:"version"`
	Environment  string       `json:"environment"`
	Status       string       `json:"status"`
	StartedAt    time.Time    `json:"startedAt"`
	Uptime       string       `json:"uptime"`
	UptimeSecs   int64        `json:"uptimeSeconds"`
	Sync         *Sync        `json:"sync,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}
