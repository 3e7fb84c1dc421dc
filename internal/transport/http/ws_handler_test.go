package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/linechat-server/internal/core"
)

type wsClient struct {
	t    *testing.T
	ctx  context.Context
	conn *websocket.Conn
}

func dialWS(t *testing.T, ctx context.Context, ts *testServer) *wsClient {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return &wsClient{t: t, ctx: ctx, conn: conn}
}

func (c *wsClient) send(line string) {
	c.t.Helper()
	if err := c.conn.Write(c.ctx, websocket.MessageText, []byte(line)); err != nil {
		c.t.Fatalf("write %q: %v", line, err)
	}
}

// expect reads frames until one contains want.
func (c *wsClient) expect(want string) string {
	c.t.Helper()
	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			c.t.Fatalf("waiting for %q: %v", want, err)
		}
		if strings.Contains(string(data), want) {
			return string(data)
		}
	}
}

func TestWebSocketLandingAndChat(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dialWS(t, ctx, ts)
	if got := alice.expect("Server active"); got != "Server active\nWelcome to the Messenger Server!\n" {
		t.Fatalf("unexpected banner frame: %q", got)
	}
	alice.expect("Please enter your username:\n> ")
	alice.send("alice")
	alice.expect("Welcome, alice!")

	bob := dialWS(t, ctx, ts)
	bob.send("bob\n")
	bob.expect("Welcome, bob!")
	alice.expect("bob has joined the chat room general")

	bob.send("hi there")
	if got := alice.expect("bob: hi there"); got != "bob: hi there\n> " {
		t.Fatalf("unexpected chat frame: %q", got)
	}

	bob.send("exit")
	bob.expect("Goodbye, bob!")
	alice.expect("bob has left the chat room general")

	if ts.deps.Directory.Exists("bob") {
		t.Fatal("bob should be removed after exit")
	}
}

func TestWebSocketSharesHandlerWithAPI(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The upgrade and the gin routes are served by the same handler.
	c := dialWS(t, ctx, ts)
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if string(data) != "Server active\nWelcome to the Messenger Server!\n" {
		t.Fatalf("unexpected first frame: %q", data)
	}

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected health status: %d", resp.StatusCode)
	}
}

func TestWSHandlerWithoutLoggerRejectsPlainRequest(t *testing.T) {
	h := NewWSHandler(&core.Hub{}, WSOptions{OutboundBuffer: 1, Overflow: core.OverflowDrop}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	if rec.Code < 400 {
		t.Fatalf("plain GET should be refused, got %d", rec.Code)
	}
}
