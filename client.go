package main

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one live device connection. The send channel is buffered and
// written to with non-blocking sends; a client that stops draining it is
// disconnected rather than allowed to stall a broadcast.
type Client struct {
	conn *websocket.Conn
	send chan any
	id   string

	// room codes this connection has joined, owned by the coordinator
	rooms map[string]bool
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		conn:  conn,
		send:  make(chan any, 8),
		id:    uuid.NewString(),
		rooms: make(map[string]bool),
	}
}

// serveWS upgrades the connection and runs the pumps. Requests from one
// connection reach the coordinator in the order the connection sent them.
func serveWS(cfg *Config, co *Coordinator) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ROOMS: Upgrade error from %s: %v", realIP(r), err)
			return
		}

		client := newClient(conn)

		co.register <- client

		go client.writePump()
		client.readPump(co)
	}
}

func (c *Client) readPump(co *Coordinator) {
	defer func() {
		co.unregister <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "create-room", "join-room", "start-game":
			code, ok := normalizeRoomCode(msg.RoomCode)
			if !ok {
				co.sendError(c, "Room code must be at least 4 characters.")
				continue
			}
			msg.RoomCode = code

			co.requests <- request{
				client: c,
				msg:    msg,
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// registerRooms wires up the coordination endpoints:
//   - $prefix/ws              → WebSocket carrying all room requests
//   - $prefix/room/:code/qr   → PNG QR code linking to a room
func registerRooms(cfg *Config, mux *httprouter.Router) {
	co := newCoordinator()
	go co.run(cfg)

	if cfg.roomTimeout > 0 {
		go co.reaperLoop(cfg, cfg.roomTimeout)
	}

	mux.GET(cfg.prefix+"/ws", serveWS(cfg, co))

	mux.GET(cfg.prefix+"/room/:code/qr", qrHandler)
}
