package ssh

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// dial opens a TCP connection to addr, tunnelled through the HTTP CONNECT
// proxy when proxy is not empty.
func dial(ctx context.Context, addr, proxy string, timeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	if proxy == "" {
		return dialer.DialContext(ctx, "tcp", addr)
	}

	conn, err := dialer.DialContext(ctx, "tcp", proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to proxy %s: %w", proxy, err)
	}
	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: make(http.Header),
	}
	if err := req.Write(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to send CONNECT to proxy %s: %w", proxy, err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to read CONNECT response from proxy %s: %w", proxy, err)
	}
	// The body of a successful CONNECT is the tunnel itself and is left unread.
	if resp.StatusCode != http.StatusOK {
		_ = conn.Close()
		_ = resp.Body.Close()
		return nil, fmt.Errorf("proxy %s refused CONNECT to %s: %s", proxy, addr, resp.Status)
	}

	_ = conn.SetDeadline(time.Time{})
	if br.Buffered() > 0 {
		return &bufferedConn{Conn: conn, r: br}, nil
	}
	return conn, nil
}

// bufferedConn replays bytes the proxy sent right after its response.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}
