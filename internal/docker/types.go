package docker

import (
	"fmt"
	"strings"
)

// ComposeProjectLabel is set by docker compose on every container it starts.
const ComposeProjectLabel = "com.docker.compose.project"

// Container is the subset of the engine's container list entry we use.
type Container struct {
	ID         string            `json:"Id"`
	Names      []string          `json:"Names"`
	Image      string            `json:"Image"`
	State      string            `json:"State"`
	Status     string            `json:"Status"`
	Ports      []Port            `json:"Ports"`
	Labels     map[string]string `json:"Labels"`
	HostConfig struct {
		NetworkMode string `json:"NetworkMode"`
	} `json:"HostConfig"`
}

// Port is one published or exposed port mapping.
type Port struct {
	IP          string `json:"IP"`
	PrivatePort uint16 `json:"PrivatePort"`
	PublicPort  uint16 `json:"PublicPort"`
	Type        string `json:"Type"`
}

// Stats is a one-shot stats sample.
type Stats struct {
	Read     string                  `json:"read"`
	Networks map[string]NetworkStats `json:"networks"`
}

// NetworkStats holds cumulative counters for one interface.
type NetworkStats struct {
	RxBytes uint64 `json:"rx_bytes"`
	TxBytes uint64 `json:"tx_bytes"`
}

// NetworkTotals sums the counters of every interface.
func (s *Stats) NetworkTotals() (rx, tx uint64) {
	for _, n := range s.Networks {
		rx += n.RxBytes
		tx += n.TxBytes
	}
	return rx, tx
}

// Running reports whether the engine considers the container running.
func (c *Container) Running() bool {
	return c.State == "running"
}

// PrimaryName returns the first name without the leading slash.
func (c *Container) PrimaryName() string {
	if len(c.Names) == 0 {
		return ""
	}
	return strings.TrimPrefix(c.Names[0], "/")
}

// HasName reports whether any of the container's names equals name.
func (c *Container) HasName(name string) bool {
	for _, n := range c.Names {
		if strings.TrimPrefix(n, "/") == name {
			return true
		}
	}
	return false
}

// ComposeProject returns the compose project label, or "".
func (c *Container) ComposeProject() string {
	return c.Labels[ComposeProjectLabel]
}

// HumanPorts renders ports the way `docker ps` does, e.g.
// "0.0.0.0:8080->80/tcp, 443/tcp".
func HumanPorts(ports []Port) string {
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		proto := p.Type
		if proto == "" {
			proto = "tcp"
		}
		var b strings.Builder
		if p.PublicPort != 0 {
			ip := p.IP
			if ip == "" {
				ip = "0.0.0.0"
			}
			fmt.Fprintf(&b, "%s:%d->", ip, p.PublicPort)
		}
		fmt.Fprintf(&b, "%d/%s", p.PrivatePort, proto)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ", ")
}

// ImageVersion returns the tag of an image reference, or the whole reference
// when it has none.
func ImageVersion(image string) string {
	i := strings.LastIndex(image, ":")
	if i < 0 || i == len(image)-1 || strings.Contains(image[i:], "/") {
		return image
	}
	return image[i+1:]
}

// FindByName returns the first container carrying name.
func FindByName(containers []Container, name string) (*Container, bool) {
	for i := range containers {
		if containers[i].HasName(name) {
			return &containers[i], true
		}
	}
	return nil, false
}
