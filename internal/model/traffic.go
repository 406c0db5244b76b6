package model

import "time"

// ContainerTraffic is the per-container row of a traffic report.
type ContainerTraffic struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	App     string  `json:"app"`
	RxBytes uint64  `json:"rx_bytes"`
	TxBytes uint64  `json:"tx_bytes"`
	RxBps   float64 `json:"rx_bps"`
	TxBps   float64 `json:"tx_bps"`
}

// AppTraffic sums the containers that make up one logical application.
type AppTraffic struct {
	Name       string   `json:"name"`
	Containers []string `json:"containers"`
	RxBytes    uint64   `json:"rx_bytes"`
	TxBytes    uint64   `json:"tx_bytes"`
	RxBps      float64  `json:"rx_bps"`
	TxBps      float64  `json:"tx_bps"`
}

// TrafficTotal is the aggregate across every sampled container.
type TrafficTotal struct {
	RxBytes uint64  `json:"rx_bytes"`
	TxBytes uint64  `json:"tx_bytes"`
	RxBps   float64 `json:"rx_bps"`
	TxBps   float64 `json:"tx_bps"`
}

// TrafficReport is served by /api/traffic.
type TrafficReport struct {
	Status     string             `json:"status"`
	SampledAt  time.Time          `json:"sampled_at"`
	Total      TrafficTotal       `json:"total"`
	Containers []ContainerTraffic `json:"containers"`
	Apps       []AppTraffic       `json:"apps"`
	Partial    bool               `json:"partial,omitempty"`
}
