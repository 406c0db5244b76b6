package model

// ContainerSummary is the display form of a Docker container.
type ContainerSummary struct {
	Name    string `json:"name"`
	Image   string `json:"image"`
	Status  string `json:"status"`
	Running bool   `json:"running"`
	Uptime  string `json:"uptime"`
	Ports   string `json:"ports"`
	Network string `json:"network"`
}

// DockerReport is served by /api/docker.
type DockerReport struct {
	Status     string             `json:"status"`
	Total      int                `json:"total"`
	Running    int                `json:"running"`
	Containers []ContainerSummary `json:"containers"`
}

// ServicesReport maps each watched container name to its running state.
type ServicesReport struct {
	Status   string          `json:"status"`
	Services map[string]bool `json:"services"`
}

// FirebirdStatus reports whether the database container is up.
type FirebirdStatus struct {
	Status     string  `json:"status"`
	OK         bool    `json:"ok"`
	ResponseMs *int64  `json:"response_ms"`
	Version    *string `json:"version"`
	Detail     string  `json:"detail"`
}

// TunnelStatus reports the state of the tunnel connector container.
type TunnelStatus struct {
	Status     string `json:"status"`
	Running    bool   `json:"running"`
	Registered bool   `json:"registered"`
	LatencyMs  *int64 `json:"latency_ms"`
}
