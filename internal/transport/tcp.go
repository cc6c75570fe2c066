package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

type TCPConfig struct {
	Addr        string
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// TCPConn applies a fresh read deadline before every Read.
type TCPConn struct {
	conn        net.Conn
	readTimeout time.Duration
}

func DialTCP(ctx context.Context, cfg TCPConfig) (*TCPConn, error) {
	d := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", cfg.Addr, err)
	}
	return NewTCPConn(conn, cfg.ReadTimeout), nil
}

func NewTCPConn(conn net.Conn, readTimeout time.Duration) *TCPConn {
	return &TCPConn{conn: conn, readTimeout: readTimeout}
}

func (c *TCPConn) Read(b []byte) (int, error) {
	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}
	n, err := c.conn.Read(b)
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return n, fmt.Errorf("%w: %s: %w", ErrReadTimeout, c.conn.RemoteAddr(), err)
	}
	return n, err
}

func (c *TCPConn) Write(b []byte) (int, error) {
	return c.conn.Write(b)
}

func (c *TCPConn) Close() error {
	return c.conn.Close()
}
