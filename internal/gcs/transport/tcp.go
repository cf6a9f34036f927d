package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/groundlink-io/groundlink/internal/gcs/errdefs"
)

type tcpTransport struct {
	conn net.Conn
	opts TCPOptions

	closeOnce sync.Once
	closeErr  error
}

func openTCP(ctx context.Context, opts *TCPOptions) (Transport, error) {
	addr := net.JoinHostPort(opts.Host, fmt.Sprintf("%d", opts.Port))

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &errdefs.ConnectionError{Endpoint: addr, Err: err}
	}

	return &tcpTransport{conn: conn, opts: *opts}, nil
}

func (t *tcpTransport) Read(p []byte) (int, error)  { return t.conn.Read(p) }
func (t *tcpTransport) Write(p []byte) (int, error) { return t.conn.Write(p) }

func (t *tcpTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

func (t *tcpTransport) Kind() string { return "tcp" }

func (t *tcpTransport) Endpoint() string {
	return net.JoinHostPort(t.opts.Host, fmt.Sprintf("%d", t.opts.Port))
}
