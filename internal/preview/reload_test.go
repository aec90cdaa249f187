package preview

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestInjectClient(t *testing.T) {
	got := string(InjectClient([]byte("<html><BODY>x</BODY></html>")))
	if !strings.HasPrefix(got, "<html><BODY>x<script>") {
		t.Errorf("client not inserted before closing body: %q", got)
	}
	if !strings.HasSuffix(got, "</BODY></html>") {
		t.Errorf("document tail lost: %q", got)
	}

	got = string(InjectClient([]byte("fragment")))
	if !strings.HasPrefix(got, "fragment<script>") {
		t.Errorf("client should be appended to fragments: %q", got)
	}
}

func TestReloadServer_Broadcast(t *testing.T) {
	hub := NewReloadServer()
	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer ts.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount = %d, want 1", hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	hub.NotifyError("E105: invalid route manifest")
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msg.Type != MessageError || msg.Error != "E105: invalid route manifest" {
		t.Errorf("message = %+v", msg)
	}

	hub.NotifyReload()
	var reload Message
	if err := conn.ReadJSON(&reload); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if reload.Type != MessageReload || reload.Error != "" {
		t.Errorf("message = %+v", reload)
	}
}
