package live

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowdeck/flowdeck/internal/flow"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Count = %d, want %d", h.Count(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastReachesSubscribers(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitForCount(t, h, 1)

	h.Broadcast(flow.Summary{Flow: flow.Flow{ID: "f1", Name: "pushed"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got flow.Summary
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.ID != "f1" || got.Name != "pushed" {
		t.Errorf("got = %+v", got)
	}
}

func TestDisconnectDropsSubscriber(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitForCount(t, h, 1)

	conn.Close()
	waitForCount(t, h, 0)
}

func TestBroadcastWithNoSubscribers(t *testing.T) {
	h := NewHub()
	// Must not panic or block.
	h.Broadcast(flow.Summary{Flow: flow.Flow{ID: "f1"}})
	if h.Count() != 0 {
		t.Errorf("Count = %d", h.Count())
	}
}
