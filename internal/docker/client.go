// Package docker is a minimal read-only client for the Docker Engine API,
// spoken over the engine's unix socket.
package docker

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// DefaultSocket is where the engine listens on a standard install.
const DefaultSocket = "/var/run/docker.sock"

const maxErrorBody = 4 << 10

// ErrSocketNotFound is returned when the configured socket does not exist.
var ErrSocketNotFound = errors.New("docker socket not found")

// StatusError is returned for engine responses with status >= 400.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("docker api status %d: %s", e.Code, e.Body)
}

// Client talks to one engine socket.
type Client struct {
	socket string
	http   *http.Client
}

// NewClient creates a client for socket. timeout bounds each request; zero
// means no client-side limit.
func NewClient(socket string, timeout time.Duration) *Client {
	if socket == "" {
		socket = DefaultSocket
	}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		},
		MaxIdleConns:    4,
		IdleConnTimeout: 30 * time.Second,
	}
	return &Client{
		socket: socket,
		http:   &http.Client{Transport: transport, Timeout: timeout},
	}
}

// Socket returns the socket path the client dials.
func (c *Client) Socket() string {
	return c.socket
}

// ListContainers returns running containers, or every container when all is
// set.
func (c *Client) ListContainers(ctx context.Context, all bool) ([]Container, error) {
	q := url.Values{}
	if all {
		q.Set("all", "1")
	}
	var out []Container
	if err := c.getJSON(ctx, "/containers/json", q, &out); err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	return out, nil
}

// ContainerStats takes a single stats sample for id.
func (c *Client) ContainerStats(ctx context.Context, id string) (*Stats, error) {
	q := url.Values{"stream": {"false"}}
	var out Stats
	if err := c.getJSON(ctx, "/containers/"+url.PathEscape(id)+"/stats", q, &out); err != nil {
		return nil, fmt.Errorf("container stats %s: %w", id, err)
	}
	return &out, nil
}

// ContainerLogs returns the last tail lines of stdout and stderr for the
// named container as plain text.
func (c *Client) ContainerLogs(ctx context.Context, name string, tail int) (string, error) {
	q := url.Values{
		"stdout": {"1"},
		"stderr": {"1"},
		"tail":   {strconv.Itoa(tail)},
	}
	body, err := c.get(ctx, "/containers/"+url.PathEscape(name)+"/logs", q)
	if err != nil {
		return "", fmt.Errorf("container logs %s: %w", name, err)
	}
	return string(demux(body)), nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	body, err := c.get(ctx, path, q)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if _, err := os.Stat(c.socket); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSocketNotFound, c.socket)
		}
		return nil, err
	}

	u := url.URL{Scheme: "http", Host: "docker", Path: path, RawQuery: q.Encode()}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}
	return io.ReadAll(resp.Body)
}

// demux strips the 8-byte frame headers the engine adds to log streams of
// containers without a TTY. Input that does not look framed is returned as is.
func demux(raw []byte) []byte {
	var out bytes.Buffer
	rest := raw
	for len(rest) > 0 {
		if len(rest) < 8 || rest[0] > 2 || rest[1] != 0 || rest[2] != 0 || rest[3] != 0 {
			return raw
		}
		n := int(binary.BigEndian.Uint32(rest[4:8]))
		if len(rest) < 8+n {
			return raw
		}
		out.Write(rest[8 : 8+n])
		rest = rest[8+n:]
	}
	return out.Bytes()
}
