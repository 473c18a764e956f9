package network

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// UDPTransport exchanges envelopes with a single peer over UDP
type UDPTransport struct {
	mu         sync.Mutex
	conn       *net.UDPConn
	remoteAddr *net.UDPAddr
	isHost     bool
	closed     chan struct{}
}

// HostUDP listens for a peer on port; the first sender becomes the peer
func HostUDP(port int) (*UDPTransport, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &UDPTransport{conn: conn, isHost: true, closed: make(chan struct{})}, nil
}

// JoinUDP connects to a host
func JoinUDP(host string, port int) (*UDPTransport, error) {
	remote, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, err
	}
	local, err := net.ResolveUDPAddr("udp", ":0")
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, err
	}
	return &UDPTransport{conn: conn, remoteAddr: remote, closed: make(chan struct{})}, nil
}

// LocalAddr returns the bound address
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Send writes one frame to the peer. Before a host has heard from its peer
// frames are dropped.
func (t *UDPTransport) Send(frame []byte) error {
	t.mu.Lock()
	remote := t.remoteAddr
	t.mu.Unlock()
	if remote == nil {
		return nil
	}
	_, err := t.conn.WriteToUDP(frame, remote)
	return err
}

// Listen starts the receive loop
func (t *UDPTransport) Listen(fn func(frame []byte)) {
	go t.receiveLoop(fn)
}

func (t *UDPTransport) receiveLoop(fn func(frame []byte)) {
	buf := make([]byte, 4096)
	for {
		select {
		case <-t.closed:
			return
		default:
		}
		_ = t.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		t.mu.Lock()
		if t.isHost && t.remoteAddr == nil {
			t.remoteAddr = addr
		}
		t.mu.Unlock()

		frame := make([]byte, n)
		copy(frame, buf[:n])
		fn(frame)
	}
}

// Close shuts down the socket
func (t *UDPTransport) Close() error {
	select {
	case <-t.closed:
		return nil
	default:
		close(t.closed)
	}
	return t.conn.Close()
}
