package network

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 1 << 16
)

// WSTransport exchanges envelopes through a websocket relay
type WSTransport struct {
	ws   *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

// DialWS connects to a relay at url (ws://host:port/relay)
func DialWS(url string) (*WSTransport, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	t := &WSTransport{
		ws:   ws,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}
	go t.writePump()
	return t, nil
}

// Send queues a frame. Lockstep cannot tolerate silent loss, so unlike
// state broadcasts this blocks until the writer takes the frame.
func (t *WSTransport) Send(frame []byte) error {
	select {
	case <-t.done:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case t.send <- frame:
		return nil
	case <-t.done:
		return websocket.ErrCloseSent
	}
}

// Listen starts the read pump
func (t *WSTransport) Listen(fn func(frame []byte)) {
	go t.readPump(fn)
}

func (t *WSTransport) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg := <-t.send:
			t.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := t.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				t.Close()
				return
			}
		case <-ticker.C:
			t.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := t.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.Close()
				return
			}
		case <-t.done:
			return
		}
	}
}

func (t *WSTransport) readPump(fn func(frame []byte)) {
	defer t.Close()
	t.ws.SetReadLimit(wsReadLimit)
	t.ws.SetReadDeadline(time.Now().Add(wsPongWait))
	t.ws.SetPongHandler(func(string) error { t.ws.SetReadDeadline(time.Now().Add(wsPongWait)); return nil })
	for {
		kind, payload, err := t.ws.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		fn(payload)
	}
}

// Close tears down the connection; safe to call more than once
func (t *WSTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.done)
		err = t.ws.Close()
	})
	return err
}

// ---- Relay ----

// Relay is a websocket hub that forwards every frame from one peer to all
// other peers in arrival order. It does not decode envelopes.
type Relay struct {
	mu    sync.Mutex
	peers map[*relayPeer]struct{}
	log   *zap.SugaredLogger
	up    websocket.Upgrader
}

type relayPeer struct {
	ws   *websocket.Conn
	send chan []byte
}

// NewRelay creates an empty relay
func NewRelay(log *zap.SugaredLogger) *Relay {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Relay{
		peers: make(map[*relayPeer]struct{}),
		log:   log,
		up: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades a peer connection and pumps its frames
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ws, err := r.up.Upgrade(w, req, nil)
	if err != nil {
		r.log.Warnw("relay upgrade failed", "error", err)
		return
	}
	p := &relayPeer{ws: ws, send: make(chan []byte, 256)}
	r.mu.Lock()
	r.peers[p] = struct{}{}
	n := len(r.peers)
	r.mu.Unlock()
	r.log.Infow("relay peer joined", "remote", req.RemoteAddr, "peers", n)

	go r.writePump(p)
	r.readPump(p)
}

// Peers returns the number of connected peers
func (r *Relay) Peers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

func (r *Relay) readPump(p *relayPeer) {
	defer r.drop(p)
	p.ws.SetReadLimit(wsReadLimit)
	for {
		kind, payload, err := p.ws.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		r.broadcast(p, payload)
	}
}

func (r *Relay) writePump(p *relayPeer) {
	defer p.ws.Close()
	for msg := range p.send {
		p.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := p.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			return
		}
	}
}

func (r *Relay) broadcast(from *relayPeer, frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for p := range r.peers {
		if p == from {
			continue
		}
		select {
		case p.send <- frame:
		default:
			// a peer this far behind has lost lockstep anyway
			r.log.Warnw("relay peer backlog full, disconnecting")
			delete(r.peers, p)
			close(p.send)
		}
	}
}

func (r *Relay) drop(p *relayPeer) {
	r.mu.Lock()
	if _, ok := r.peers[p]; ok {
		delete(r.peers, p)
		close(p.send)
	}
	n := len(r.peers)
	r.mu.Unlock()
	p.ws.Close()
	r.log.Infow("relay peer left", "peers", n)
}
