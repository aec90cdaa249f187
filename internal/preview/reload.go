package preview

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ReloadPath is the WebSocket endpoint used by the reload client.
const ReloadPath = "/_edgerules/reload"

// MessageType is the kind of message sent to reload clients.
type MessageType string

const (
	MessageReload MessageType = "reload"
	MessageError  MessageType = "error"
	MessageClear  MessageType = "clear"
)

// Message is sent to browsers over WebSocket.
type Message struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error,omitempty"`
}

// ReloadServer tracks connected browsers and notifies them when the
// rules change.
type ReloadServer struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	sendMu   sync.Mutex
	upgrader websocket.Upgrader
}

// NewReloadServer creates an empty reload hub.
func NewReloadServer() *ReloadServer {
	return &ReloadServer{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket upgrades the request and holds the connection until the
// client goes away.
func (s *ReloadServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.remove(conn)
}

// NotifyReload asks every client to reload the page.
func (s *ReloadServer) NotifyReload() {
	s.broadcast(Message{Type: MessageReload})
}

// NotifyError shows msg in every client's console.
func (s *ReloadServer) NotifyError(msg string) {
	s.broadcast(Message{Type: MessageError, Error: msg})
}

// ClearError clears a previously reported error.
func (s *ReloadServer) ClearError() {
	s.broadcast(Message{Type: MessageClear})
}

func (s *ReloadServer) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	// gorilla/websocket allows one concurrent writer per connection.
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	for _, c := range clients {
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			s.remove(c)
		}
	}
}

func (s *ReloadServer) remove(c *websocket.Conn) {
	s.mu.Lock()
	if s.clients[c] {
		delete(s.clients, c)
		c.Close()
	}
	s.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (s *ReloadServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close disconnects all clients.
func (s *ReloadServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		c.Close()
		delete(s.clients, c)
	}
}

// ClientScript is injected into HTML responses when live reload is on.
const ClientScript = `<script>
(function() {
    'use strict';
    var delay = 1000;
    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        var ws = new WebSocket(protocol + '//' + location.host + '` + ReloadPath + `');
        ws.onopen = function() { delay = 1000; };
        ws.onmessage = function(event) {
            var msg = JSON.parse(event.data);
            if (msg.type === 'reload') {
                location.reload();
            } else if (msg.type === 'error') {
                console.error('[edgerules] ' + msg.error);
            } else if (msg.type === 'clear') {
                console.info('[edgerules] rules rebuilt');
            }
        };
        ws.onclose = function() {
            setTimeout(connect, delay);
            delay = Math.min(delay * 2, 30000);
        };
    }
    connect();
})();
</script>
`

// InjectClient inserts ClientScript before the closing body tag, or
// appends it when the document has none.
func InjectClient(html []byte) []byte {
	i := bytes.LastIndex(bytes.ToLower(html), []byte("</body>"))
	if i < 0 {
		return append(html, ClientScript...)
	}
	out := make([]byte, 0, len(html)+len(ClientScript))
	out = append(out, html[:i]...)
	out = append(out, ClientScript...)
	return append(out, html[i:]...)
}
