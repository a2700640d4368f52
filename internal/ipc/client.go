package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

const (
	defaultDialTimeout = 200 * time.Millisecond
	defaultCallTimeout = 60 * time.Second
)

// Client sends single requests to the daemon. A fresh connection is dialled
// per request.
type Client struct {
	path        string
	dialTimeout time.Duration
	callTimeout time.Duration
}

// NewClient creates a client for the endpoint at path
func NewClient(path string) *Client {
	return &Client{
		path:        path,
		dialTimeout: defaultDialTimeout,
		callTimeout: defaultCallTimeout,
	}
}

// Do sends req and waits for its response. Any dial failure is ErrAbsent.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.path)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrAbsent, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.callTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	data, err := encodeLine(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if _, err := conn.Write(data); err != nil {
		return Response{}, fmt.Errorf("%w: failed to send request: %v", ErrTransport, err)
	}

	line, err := readLine(conn)
	if err != nil {
		return Response{}, err
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if !resp.Success && (resp.Error == nil || *resp.Error == "") {
		return Response{}, fmt.Errorf("%w: failed response without error text", ErrProtocol)
	}
	return resp, nil
}

// Call is Do followed by Response.Value.
func (c *Client) Call(ctx context.Context, req Request) (string, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Value()
}

// Reachable reports whether something accepts connections at path.
func Reachable(ctx context.Context, path string) bool {
	dialer := net.Dialer{Timeout: defaultDialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
