package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/groundlink-io/groundlink/internal/gcs/errdefs"
	"github.com/groundlink-io/groundlink/pkg/log"
)

// udpTransport binds a local socket and performs passive peer discovery:
// the source address of every inbound datagram is recorded in a client
// table, and sends fan out to every known client unless a fixed target was
// configured.
type udpTransport struct {
	conn   *net.UDPConn
	opts   UDPOptions
	target *net.UDPAddr // non-nil only when TargetIP is set

	mu      sync.Mutex
	clients map[string]*net.UDPAddr

	closeOnce sync.Once
	closeErr  error
}

func openUDP(opts *UDPOptions) (Transport, error) {
	bindIP, err := resolveBindIP(opts)
	if err != nil {
		return nil, &errdefs.ConnectionError{Endpoint: opts.Family, Err: err}
	}

	conn, err := net.ListenUDP(opts.Family, &net.UDPAddr{IP: bindIP, Port: opts.SourcePort})
	if err != nil {
		return nil, &errdefs.ConnectionError{
			Endpoint: fmt.Sprintf("%s:%v:%d", opts.Family, bindIP, opts.SourcePort),
			Err:      err,
		}
	}

	t := &udpTransport{
		conn:    conn,
		opts:    *opts,
		clients: make(map[string]*net.UDPAddr),
	}

	if opts.TargetIP != "" {
		t.target = &net.UDPAddr{IP: net.ParseIP(opts.TargetIP), Port: opts.TargetPort}
		if t.target.IP == nil {
			conn.Close()
			return nil, &errdefs.ConnectionError{
				Endpoint: opts.TargetIP,
				Err:      fmt.Errorf("unparsable target ip"),
			}
		}
	}

	log.Info("UDP socket bound", "addr", conn.LocalAddr().String(), "fixedTarget", opts.TargetIP != "")
	return t, nil
}

// resolveBindIP picks the local address: explicit source IP, else the first
// non-loopback interface address of the requested family, else wildcard.
func resolveBindIP(opts *UDPOptions) (net.IP, error) {
	if opts.SourceIP != "" {
		ip := net.ParseIP(opts.SourceIP)
		if ip == nil {
			return nil, fmt.Errorf("unparsable source ip %q", opts.SourceIP)
		}
		return ip, nil
	}

	if !opts.AutoBindInterface {
		return nil, nil // wildcard
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}

	wantV4 := opts.Family == "udp4"
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		isV4 := ipNet.IP.To4() != nil
		if isV4 == wantV4 {
			return ipNet.IP, nil
		}
	}

	// No suitable interface; fall back to wildcard rather than failing.
	return nil, nil
}

// Read returns the next inbound datagram and records its sender in the
// client table.
func (t *udpTransport) Read(p []byte) (int, error) {
	n, addr, err := t.conn.ReadFromUDP(p)
	if err != nil {
		return n, err
	}

	key := addr.String()
	t.mu.Lock()
	if _, known := t.clients[key]; !known {
		t.clients[key] = addr
		log.Info("UDP peer discovered", "peer", key)
	}
	t.mu.Unlock()

	return n, nil
}

// Write sends one datagram to the fixed target if configured, otherwise to
// every currently known client. With no peers yet the datagram is dropped;
// there is nowhere to send it until discovery has seen traffic.
func (t *udpTransport) Write(p []byte) (int, error) {
	if t.target != nil {
		return t.conn.WriteToUDP(p, t.target)
	}

	t.mu.Lock()
	peers := make([]*net.UDPAddr, 0, len(t.clients))
	for _, addr := range t.clients {
		peers = append(peers, addr)
	}
	t.mu.Unlock()

	// Best effort per peer; one unreachable client must not starve the
	// others of the fan-out.
	for _, addr := range peers {
		if _, err := t.conn.WriteToUDP(p, addr); err != nil {
			log.Warn("UDP send to peer failed", "peer", addr.String(), "err", err)
		}
	}
	return len(p), nil
}

func (t *udpTransport) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.clients = make(map[string]*net.UDPAddr)
		t.mu.Unlock()
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

func (t *udpTransport) Kind() string { return "udp" }

func (t *udpTransport) Endpoint() string {
	return t.conn.LocalAddr().String()
}

// Clients returns the discovered peer addresses.
func (t *udpTransport) Clients() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, len(t.clients))
	for key := range t.clients {
		out = append(out, key)
	}
	return out
}
