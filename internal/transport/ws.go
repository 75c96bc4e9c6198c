package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/motion_bridge/internal/protocol"
	"github.com/relabs-tech/motion_bridge/internal/sample"
	"github.com/relabs-tech/motion_bridge/internal/sensors"
	"github.com/relabs-tech/motion_bridge/internal/stream"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// controlFrame is sent once on connect and for every rejected request.
type controlFrame struct {
	Session string `json:"session"`
	Error   string `json:"error,omitempty"`
}

// WSHandler gives every websocket connection its own registry, so each
// client owns its streams and a disconnect tears them all down.
type WSHandler struct {
	subsystem       sensors.Subsystem
	buffer          int
	observe         func(session string) stream.Observer
	defaultInterval int

	mu       sync.Mutex
	sessions map[string]*wsSession
	closed   bool
}

type wsSession struct {
	registry *stream.Registry
	out      *stream.ChannelSink
}

func NewWSHandler(subsystem sensors.Subsystem, buffer int) *WSHandler {
	return &WSHandler{
		subsystem:       subsystem,
		buffer:          buffer,
		defaultInterval: sample.DefaultInterval,
		sessions:        make(map[string]*wsSession),
	}
}

// SetObserver installs a factory that yields the observer for each new
// session's registry.
func (h *WSHandler) SetObserver(observe func(session string) stream.Observer) {
	h.observe = observe
}

// SetDefaultInterval sets the interval used by listen requests that carry
// none.
func (h *WSHandler) SetDefaultInterval(interval int) {
	h.defaultInterval = interval
}

// Close cancels the streams of every open session and ends its connection
// with a close frame. Later connections are refused.
func (h *WSHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, s := range h.sessions {
		s.registry.Close()
		s.out.Close()
		delete(h.sessions, id)
	}
}

// open registers a new session, or returns nil once the handler is closed.
func (h *WSHandler) open(id string) *wsSession {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	var opts []stream.Option
	if h.observe != nil {
		opts = append(opts, stream.WithObserver(h.observe(id)))
	}
	s := &wsSession{
		registry: stream.NewRegistry(h.subsystem, opts...),
		out:      stream.NewChannelSink(h.buffer),
	}
	h.sessions[id] = s
	return s
}

func (h *WSHandler) release(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session := uuid.NewString()
	s := h.open(session)
	if s == nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.release(session)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		s.registry.Close()
		s.out.Close()
		return
	}
	log.Printf("ws: session %s opened from %s", session, r.RemoteAddr)

	ctrl := make(chan controlFrame, 8)
	done := make(chan struct{})

	go func() {
		defer close(done)
		writeLoop(conn, s.out, ctrl)
	}()

	ctrl <- controlFrame{Session: session}
	h.readLoop(conn, session, s.registry, s.out, ctrl)

	s.registry.Close()
	s.out.Close()
	<-done
	conn.Close()
	if n := s.out.Dropped(); n > 0 {
		log.Printf("ws: session %s closed, %d samples dropped on a slow client", session, n)
	} else {
		log.Printf("ws: session %s closed", session)
	}
}

func (h *WSHandler) readLoop(conn *websocket.Conn, session string, registry *stream.Registry, out stream.Sink, ctrl chan<- controlFrame) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: session %s read error: %v", session, err)
			}
			return
		}
		req, err := protocol.Decode(data)
		if err == nil {
			err = protocol.Dispatch(registry, req, out, h.defaultInterval)
		}
		if err != nil {
			select {
			case ctrl <- controlFrame{Session: session, Error: err.Error()}:
			default:
				log.Debugf("ws: session %s error frame dropped: %v", session, err)
			}
		}
	}
}

// writeLoop is the connection's only writer. It returns once out is closed
// or a write fails.
func writeLoop(conn *websocket.Conn, out *stream.ChannelSink, ctrl <-chan controlFrame) {
	events := out.Events()
	for {
		var v interface{}
		select {
		case f := <-ctrl:
			v = f
		case s, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			v = s
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			log.Debugf("ws: write error: %v", err)
			// Unblocks the reader so the session tears down.
			conn.Close()
			return
		}
	}
}
