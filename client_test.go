package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &Config{}
	errs := make(chan error, 8)

	mux := httprouter.New()
	mux.GET("/healthz", serveHealthCheck(cfg, errs))
	registerRooms(cfg, mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("Error dialing test server: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// event covers every server message shape, for decoding on the client side.
type event struct {
	Type     string   `json:"type"`
	RoomCode string   `json:"room_code"`
	Players  []string `json:"players"`
	Message  string   `json:"message"`
}

func writeRequest(t *testing.T, conn *websocket.Conn, msgType, code, name string) {
	t.Helper()

	err := conn.WriteJSON(ClientMessage{
		Type:     msgType,
		RoomCode: code,
		Name:     name,
	})
	if err != nil {
		t.Fatalf("Error writing %s request: %v", msgType, err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) event {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var e event
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("Error reading event: %v", err)
	}
	return e
}

func TestWebSocketScenario(t *testing.T) {
	ts := newTestServer(t)

	ws1 := dialWS(t, ts)
	ws2 := dialWS(t, ts)

	// Codes are uppercased at the boundary.
	writeRequest(t, ws1, "create-room", "abcd", "")
	if e := readEvent(t, ws1); e.Type != "room-created" || e.RoomCode != "ABCD" {
		t.Fatalf("expected room-created for ABCD, got %#v", e)
	}

	writeRequest(t, ws1, "join-room", "ABCD", "Alice")
	if e := readEvent(t, ws1); e.Type != "player-joined" || !reflect.DeepEqual(e.Players, []string{"Alice"}) {
		t.Fatalf("expected snapshot [Alice], got %#v", e)
	}

	writeRequest(t, ws2, "join-room", "ABCD", "Bob")
	want := []string{"Alice", "Bob"}
	if e := readEvent(t, ws1); !reflect.DeepEqual(e.Players, want) {
		t.Fatalf("expected snapshot %v on first client, got %#v", want, e)
	}
	if e := readEvent(t, ws2); !reflect.DeepEqual(e.Players, want) {
		t.Fatalf("expected snapshot %v on second client, got %#v", want, e)
	}

	writeRequest(t, ws2, "start-game", "ABCD", "")
	if e := readEvent(t, ws1); e.Type != "start-game" || e.RoomCode != "ABCD" {
		t.Fatalf("expected start-game on first client, got %#v", e)
	}
	if e := readEvent(t, ws2); e.Type != "start-game" || e.RoomCode != "ABCD" {
		t.Fatalf("expected start-game on second client, got %#v", e)
	}

	// First player drops; the survivor sees the pruned snapshot.
	_ = ws1.Close()
	if e := readEvent(t, ws2); e.Type != "player-joined" || !reflect.DeepEqual(e.Players, []string{"Bob"}) {
		t.Fatalf("expected snapshot [Bob] after disconnect, got %#v", e)
	}

	// Last player drops; once cleanup lands, the code is free again.
	_ = ws2.Close()

	ws3 := dialWS(t, ts)
	deadline := time.Now().Add(2 * time.Second)
	for {
		writeRequest(t, ws3, "create-room", "ABCD", "")
		e := readEvent(t, ws3)
		if e.Type == "room-created" {
			break
		}
		if e.Type != "error" || e.Message != "Room already exists!" {
			t.Fatalf("unexpected event while waiting for room teardown: %#v", e)
		}
		if time.Now().After(deadline) {
			t.Fatalf("room ABCD was never deleted after its last member left")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketRejectsShortRoomCode(t *testing.T) {
	ts := newTestServer(t)
	ws := dialWS(t, ts)

	writeRequest(t, ws, "create-room", "ab", "")
	if e := readEvent(t, ws); e.Type != "error" || !strings.Contains(e.Message, "at least 4 characters") {
		t.Fatalf("expected short-code rejection, got %#v", e)
	}

	// The rejected code must not have created anything.
	writeRequest(t, ws, "create-room", "ABCD", "")
	if e := readEvent(t, ws); e.Type != "room-created" {
		t.Fatalf("expected room-created, got %#v", e)
	}
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("Error requesting health check: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "Ok\n" {
		t.Fatalf("expected body %q, got %q", "Ok\n", string(body))
	}
}

func TestQRCode(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/room/ABCD/qr")
	if err != nil {
		t.Fatalf("Error requesting QR code: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Fatalf("expected PNG payload, got empty body")
	}
}
