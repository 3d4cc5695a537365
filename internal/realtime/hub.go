package realtime

import (
	"fmt"
	"sync"
)

// RecruitRoom names the broadcast room of a recruit's chat.
func RecruitRoom(recruitID uint64) string { return fmt.Sprintf("recruit:%d", recruitID) }

// UserRoom names a user's private notification room.  Every connection
// of the user is subscribed to it automatically on attach; clients can
// neither request nor leave it.
func UserRoom(userID uint64) string { return fmt.Sprintf("user:%d", userID) }

// Hub tracks live websocket sessions and the rooms they subscribe to.
// A user may hold several concurrent connections (two browser tabs);
// each is an independent session and each receives room broadcasts.
// The hub knows nothing about authorization: callers gate every room
// join against the store before calling Join.
type Hub struct {
	mu           sync.RWMutex
	sessions     map[string]*Connection            // sessionID -> connection
	rooms        map[string]map[string]*Connection // room -> sessionID -> connection
	sessionRooms map[string]map[string]struct{}    // sessionID -> set of rooms
}

// NewHub constructs an initialized Hub.
func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[string]*Connection),
		rooms:        make(map[string]map[string]*Connection),
		sessionRooms: make(map[string]map[string]struct{}),
	}
}

// Attach registers an authenticated connection and subscribes it to the
// user's private room.
func (h *Hub) Attach(conn *Connection) {
	h.mu.Lock()
	h.sessions[conn.ID] = conn
	h.sessionRooms[conn.ID] = make(map[string]struct{})
	h.joinLocked(UserRoom(conn.UserID), conn)
	h.mu.Unlock()
}

// Detach removes a connection and releases all of its room
// subscriptions.  No other state survives a disconnect.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	h.detachLocked(conn.ID)
	h.mu.Unlock()
}

// Join subscribes the connection to a room.  Unknown (already
// detached) connections are ignored.
func (h *Hub) Join(room string, conn *Connection) {
	h.mu.Lock()
	if _, ok := h.sessions[conn.ID]; ok {
		h.joinLocked(room, conn)
	}
	h.mu.Unlock()
}

// Leave unsubscribes the connection from a room.  Idempotent.
func (h *Hub) Leave(room string, conn *Connection) {
	h.mu.Lock()
	h.leaveLocked(room, conn.ID)
	h.mu.Unlock()
}

// InRoom reports whether the connection is currently subscribed to the
// room.
func (h *Hub) InRoom(room string, conn *Connection) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][conn.ID]
	return ok
}

// Broadcast writes payload to every connection currently subscribed to
// the room and returns how many sends were accepted.  There is no
// delivery guarantee beyond the attempt.
func (h *Hub) Broadcast(room string, payload []byte) int {
	h.mu.RLock()
	members := h.rooms[room]
	if len(members) == 0 {
		h.mu.RUnlock()
		return 0
	}
	delivered := 0
	for _, conn := range members {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	h.mu.RUnlock()
	return delivered
}

// NotifyUser delivers payload to all of the user's connections via the
// private room.
func (h *Hub) NotifyUser(userID uint64, payload []byte) int {
	return h.Broadcast(UserRoom(userID), payload)
}

// Close terminates all tracked connections and clears hub state.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Connection, 0, len(h.sessions))
	for _, conn := range h.sessions {
		sessions = append(sessions, conn)
	}
	h.sessions = make(map[string]*Connection)
	h.rooms = make(map[string]map[string]*Connection)
	h.sessionRooms = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(1001, "hub shutdown")
	}
}

func (h *Hub) joinLocked(room string, conn *Connection) {
	members := h.rooms[room]
	if members == nil {
		members = make(map[string]*Connection)
		h.rooms[room] = members
	}
	members[conn.ID] = conn

	subs := h.sessionRooms[conn.ID]
	if subs == nil {
		subs = make(map[string]struct{})
		h.sessionRooms[conn.ID] = subs
	}
	subs[room] = struct{}{}
}

func (h *Hub) leaveLocked(room, sessionID string) {
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	if subs, ok := h.sessionRooms[sessionID]; ok {
		delete(subs, room)
	}
}

func (h *Hub) detachLocked(sessionID string) {
	if _, ok := h.sessions[sessionID]; !ok {
		return
	}
	delete(h.sessions, sessionID)
	for room := range h.sessionRooms[sessionID] {
		h.leaveLocked(room, sessionID)
	}
	delete(h.sessionRooms, sessionID)
}
