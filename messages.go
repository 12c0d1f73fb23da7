package main

// Messages coming from clients
type ClientMessage struct {
	Type     string `json:"type"`                // "create-room", "join-room", "start-game"
	RoomCode string `json:"room_code,omitempty"` // all request types
	Name     string `json:"name,omitempty"`      // join-room
}

// RoomCreatedMessage is sent to the creating connection only.
type RoomCreatedMessage struct {
	Type     string `json:"type"` // "room-created"
	RoomCode string `json:"room_code"`
}

// PlayerListMessage restates the full membership of a room in join order.
// Sent to every member after each join and each departure, so receivers
// never depend on having seen prior updates.
type PlayerListMessage struct {
	Type     string   `json:"type"` // "player-joined"
	RoomCode string   `json:"room_code"`
	Players  []string `json:"players"`
}

// StartGameMessage is broadcast to a room when the game begins. It carries
// no payload beyond the room code; game content is generated client-side.
type StartGameMessage struct {
	Type     string `json:"type"` // "start-game"
	RoomCode string `json:"room_code"`
}

// Sent to a single client when a request is rejected.
type ErrorMessage struct {
	Type    string `json:"type"`    // "error"
	Message string `json:"message"` // user-facing text
}

func errorMessage(text string) ErrorMessage {
	return ErrorMessage{
		Type:    "error",
		Message: text,
	}
}

func playerListMessage(code string, players []string) PlayerListMessage {
	return PlayerListMessage{
		Type:     "player-joined",
		RoomCode: code,
		Players:  players,
	}
}
