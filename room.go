// Dareroom coordination core
//
// Several devices join a shared room identified by a short code, see each
// other's names as they arrive, and receive a synchronized signal to begin
// the game.
//
// Features:
// - One persistent WebSocket per device; room codes travel inside messages
// - create-room / join-room / start-game requests, JSON-framed
// - Full player-list snapshots broadcast on every membership change
// - Rooms deleted when their last member disconnects
// - Empty rooms reaped after a configurable idle timeout
// - A connection may belong to multiple rooms; cleanup touches only those
// - In-browser QR code to share a room, backed by go-qrcode

package main

import (
	"strings"
	"sync"
	"time"
)

const defaultPlayerName = "Unknown Player"

const minRoomCodeLength = 4

// Player holds the data we store server-side for one room member.
type Player struct {
	ConnID string
	Name   string
}

// Room tracks members in join order. Join order is turn order.
type Room struct {
	Code    string
	Players []Player
	Started bool

	createdAt  time.Time
	lastActive time.Time
}

type request struct {
	client *Client
	msg    ClientMessage
}

// Coordinator owns every room and every live connection. All registry
// mutation runs on the coordinator goroutine; the mutex covers reads from
// the reaper and from request-path rejections.
type Coordinator struct {
	rooms   map[string]*Room
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	requests   chan request

	mu sync.RWMutex
}

func newCoordinator() *Coordinator {
	return &Coordinator{
		rooms:      make(map[string]*Room),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		requests:   make(chan request),
	}
}

// normalizeRoomCode uppercases a room code and reports whether it meets the
// minimum length. Codes are rejected here, before any registry state is
// touched.
func normalizeRoomCode(raw string) (string, bool) {
	code := strings.ToUpper(raw)
	return code, len(code) >= minRoomCodeLength
}

func (co *Coordinator) run(cfg *Config) {
	for {
		select {
		case c := <-co.register:
			co.mu.Lock()
			co.clients[c.id] = c
			co.mu.Unlock()

			logf(cfg, "ROOMS: Connection %s established", c.id)

		case c := <-co.unregister:
			co.handleDisconnect(cfg, c)

		case req := <-co.requests:
			switch req.msg.Type {
			case "create-room":
				co.handleCreate(cfg, req)
			case "join-room":
				co.handleJoin(cfg, req)
			case "start-game":
				co.handleStart(cfg, req)
			}
		}
	}
}

// trySendLocked delivers a message to one client, dropping the client from
// the connection registry if its send buffer is full. Membership entries are
// left for disconnect cleanup; broadcasts skip unregistered connections.
func (co *Coordinator) trySendLocked(c *Client, msg any) {
	if _, ok := co.clients[c.id]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(co.clients, c.id)
		close(c.send)
	}
}

// sendError reports a rejected request to the offending connection only.
// Errors are never broadcast.
func (co *Coordinator) sendError(c *Client, text string) {
	co.mu.Lock()
	defer co.mu.Unlock()

	co.trySendLocked(c, errorMessage(text))
}

// broadcastLocked delivers a message to every current member of a room.
// Fire-and-forget: members whose connection is already gone are skipped.
func (co *Coordinator) broadcastLocked(room *Room, msg any) {
	for _, p := range room.Players {
		c, ok := co.clients[p.ConnID]
		if !ok {
			continue
		}
		co.trySendLocked(c, msg)
	}
}

func (co *Coordinator) broadcastPlayersLocked(room *Room) {
	names := make([]string, 0, len(room.Players))
	for _, p := range room.Players {
		names = append(names, p.Name)
	}

	co.broadcastLocked(room, playerListMessage(room.Code, names))
}

// handleCreate processes "create-room" requests. The new room starts empty;
// the creator joins it with a separate join-room request.
func (co *Coordinator) handleCreate(cfg *Config, req request) {
	c := req.client
	code := req.msg.RoomCode

	co.mu.Lock()
	defer co.mu.Unlock()

	if _, exists := co.rooms[code]; exists {
		co.trySendLocked(c, errorMessage("Room already exists!"))
		return
	}

	now := time.Now()
	co.rooms[code] = &Room{
		Code:       code,
		createdAt:  now,
		lastActive: now,
	}

	co.trySendLocked(c, RoomCreatedMessage{
		Type:     "room-created",
		RoomCode: code,
	})

	logf(cfg, "ROOMS: Room %s created by %s", code, c.id)
}

// handleJoin processes "join-room" requests. A repeat join from the same
// connection updates that player's name in place rather than adding a
// second entry.
func (co *Coordinator) handleJoin(cfg *Config, req request) {
	c := req.client
	code := req.msg.RoomCode

	name := strings.TrimSpace(req.msg.Name)
	if name == "" {
		name = defaultPlayerName
	}

	co.mu.Lock()
	defer co.mu.Unlock()

	room, exists := co.rooms[code]
	if !exists {
		co.trySendLocked(c, errorMessage("Room does not exist!"))
		return
	}

	existingIndex := -1
	for i, p := range room.Players {
		if p.ConnID == c.id {
			existingIndex = i
			break
		}
	}

	if existingIndex >= 0 {
		room.Players[existingIndex].Name = name
	} else {
		room.Players = append(room.Players, Player{
			ConnID: c.id,
			Name:   name,
		})
		c.rooms[code] = true
		logf(cfg, "ROOMS: Player %q joined %s", name, code)
	}

	room.lastActive = time.Now()

	co.broadcastPlayersLocked(room)
}

// handleStart processes "start-game" requests. The signal carries no game
// content; each device generates its own prompts once started.
func (co *Coordinator) handleStart(cfg *Config, req request) {
	c := req.client
	code := req.msg.RoomCode

	co.mu.Lock()
	defer co.mu.Unlock()

	room, exists := co.rooms[code]
	if !exists {
		co.trySendLocked(c, errorMessage("Room not found."))
		return
	}

	if room.Started {
		co.trySendLocked(c, errorMessage("Game already started."))
		return
	}

	if len(room.Players) < 2 {
		co.trySendLocked(c, errorMessage("Not enough players to start the game!"))
		return
	}

	room.Started = true
	room.lastActive = time.Now()

	co.broadcastLocked(room, StartGameMessage{
		Type:     "start-game",
		RoomCode: code,
	})

	logf(cfg, "ROOMS: Game started in room %s", code)
}

// handleDisconnect removes the connection's player entry from every room it
// joined, broadcasting the updated list to each, and deletes any room left
// empty. Safe to call more than once for the same connection.
func (co *Coordinator) handleDisconnect(cfg *Config, c *Client) {
	co.mu.Lock()
	defer co.mu.Unlock()

	if _, ok := co.clients[c.id]; ok {
		delete(co.clients, c.id)
		close(c.send)
	}

	codes := c.rooms
	c.rooms = nil

	for code := range codes {
		room, ok := co.rooms[code]
		if !ok {
			continue
		}

		dst := room.Players[:0]
		changed := false
		for _, p := range room.Players {
			if p.ConnID == c.id {
				changed = true
				continue
			}
			dst = append(dst, p)
		}
		room.Players = dst

		if !changed {
			continue
		}

		room.lastActive = time.Now()

		if len(room.Players) == 0 {
			delete(co.rooms, code)
			logf(cfg, "ROOMS: Room %s deleted (empty)", code)
			continue
		}

		co.broadcastPlayersLocked(room)
	}

	logf(cfg, "ROOMS: Connection %s closed", c.id)
}

// reapIdle removes rooms with no members whose last activity predates the
// cutoff. Rooms with members are never reaped; their only deletion path is
// the last member leaving.
func (co *Coordinator) reapIdle(cfg *Config, cutoff time.Time) {
	co.mu.Lock()
	defer co.mu.Unlock()

	for code, room := range co.rooms {
		if len(room.Players) == 0 && room.lastActive.Before(cutoff) {
			delete(co.rooms, code)
			logf(cfg, "ROOMS: Room %s reaped (idle)", code)
		}
	}
}

// reaperLoop periodically removes empty rooms that were created but never
// joined, or whose creator never arrived.
func (co *Coordinator) reaperLoop(cfg *Config, idleTimeout time.Duration) {
	interval := idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		co.reapIdle(cfg, time.Now().Add(-idleTimeout))
	}
}
