package demo

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"testrig/internal/resource"
)

// TCPClient is the comm handle of devices reachable over plain TCP. The
// address comes from the device's "address" property.
type TCPClient struct {
	Address string
	Timeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

// NewTCPClient is the comm factory for TCP devices.
func NewTCPClient(d *resource.Device) (any, error) {
	addr := d.Property("address")
	if addr == "" {
		return nil, fmt.Errorf("device %s has no address property", d.Name)
	}
	return &TCPClient{Address: addr, Timeout: 5 * time.Second}, nil
}

// Connect dials the device.
func (c *TCPClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}
	d := net.Dialer{Timeout: c.Timeout}
	conn, err := d.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// Connected reports whether Connect succeeded and Close has not been called.
func (c *TCPClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close drops the connection.
func (c *TCPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Console is an in-memory comm handle for simulated devices. It answers
// every command with a canned reply and keeps a transcript.
type Console struct {
	Device string

	mu         sync.Mutex
	transcript []string
}

// NewConsole is the comm factory for simulated devices.
func NewConsole(d *resource.Device) (any, error) {
	return &Console{Device: d.Name}, nil
}

// Exec runs a command on the simulated device.
func (c *Console) Exec(cmd string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = append(c.transcript, cmd)
	return fmt.Sprintf("%s: ok (%s)", c.Device, cmd)
}

// Transcript returns the commands run so far.
func (c *Console) Transcript() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.transcript...)
}
