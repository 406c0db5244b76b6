package model

// SystemInfo is the host snapshot served by /api/system.
type SystemInfo struct {
	Status        string     `json:"status"`
	Hostname      string     `json:"hostname"`
	CPUPercent    float64    `json:"cpu_percent"`
	CPUCores      int        `json:"cpu_cores"`
	Memory        UsageStats `json:"memory"`
	Disk          UsageStats `json:"disk"`
	UptimeSeconds uint64     `json:"uptime_seconds"`
}

// UsageStats describes a capacity-style resource in bytes.
type UsageStats struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Percent float64 `json:"percent"`
}
