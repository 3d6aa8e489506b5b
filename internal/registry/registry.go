// Package registry tracks rooms, their membership, and which connection in
// each room is the host.
//
// Any connection may declare itself host of any room; the last declaration
// wins. There is no identity check: callers that need authorization must add
// it outside this package.
package registry

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrEmptyRoomID       = errors.New("room id is empty")
	ErrUnknownConnection = errors.New("unknown connection")
)

// Role is the part a connection plays in its room.
type Role int

const (
	RoleUnassigned Role = iota
	RoleHost
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleClient:
		return "client"
	default:
		return "unassigned"
	}
}

type member struct {
	role   Role
	roomID string

	// joined is false for a host that declared a room without joining it.
	joined bool
}

type room struct {
	members map[string]struct{}
	host    string
}

// Registry owns all room state. Every method is safe for concurrent use;
// mutations are serialized by a single lock.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*member
	rooms map[string]*room
}

// JoinResult describes the room right after a join.
type JoinResult struct {
	RoomID string
	Size   int

	// HostID is the room's host, never the joiner itself. Empty if none.
	HostID string

	// Others lists every other member, sorted.
	Others []string
}

// HostResult describes the room right after a host declaration.
type HostResult struct {
	RoomID string

	// Clients are the current non-host members other than the declarer.
	Clients []string

	// Previous is the host that was displaced, if any.
	Previous string
}

// LeaveResult describes the room a connection just left.
type LeaveResult struct {
	RoomID    string
	Size      int
	Remaining []string
	WasHost   bool
}

func New() *Registry {
	return &Registry{
		conns: make(map[string]*member),
		rooms: make(map[string]*room),
	}
}

// Connect records a freshly connected, unassigned connection.
func (r *Registry) Connect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; !ok {
		r.conns[connID] = &member{}
	}
}

// Join adds connID to roomID, creating the room if needed. A connection
// that was a member of another room leaves it first.
func (r *Registry) Join(connID, roomID string) (JoinResult, error) {
	if roomID == "" {
		return JoinResult{}, ErrEmptyRoomID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.conns[connID]
	if !ok {
		return JoinResult{}, ErrUnknownConnection
	}

	if m.roomID != "" && m.roomID != roomID {
		r.detach(connID, m)
	}

	rm := r.roomLocked(roomID)
	rm.members[connID] = struct{}{}
	m.roomID = roomID
	m.joined = true
	if rm.host != connID {
		m.role = RoleClient
	}

	res := JoinResult{
		RoomID: roomID,
		Size:   len(rm.members),
		Others: othersLocked(rm, connID),
	}
	if rm.host != connID {
		res.HostID = rm.host
	}
	return res, nil
}

// DeclareHost marks connID as the host of roomID, replacing any previous
// host. The declarer does not become a member until it joins.
func (r *Registry) DeclareHost(connID, roomID string) (HostResult, error) {
	if roomID == "" {
		return HostResult{}, ErrEmptyRoomID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.conns[connID]
	if !ok {
		return HostResult{}, ErrUnknownConnection
	}

	if m.roomID != "" && m.roomID != roomID {
		r.detach(connID, m)
	}

	rm := r.roomLocked(roomID)

	res := HostResult{RoomID: roomID}
	if prev := rm.host; prev != "" && prev != connID {
		res.Previous = prev
		if pm, ok := r.conns[prev]; ok {
			if pm.joined {
				pm.role = RoleClient
			} else {
				pm.role = RoleUnassigned
				pm.roomID = ""
			}
		}
	}

	rm.host = connID
	m.role = RoleHost
	m.roomID = roomID

	for id := range rm.members {
		if id != connID {
			res.Clients = append(res.Clients, id)
		}
	}
	sort.Strings(res.Clients)
	return res, nil
}

// Leave removes connID from its room and forgets the connection. Leaving
// twice is harmless.
func (r *Registry) Leave(connID string) LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.conns[connID]
	if !ok {
		return LeaveResult{}
	}
	delete(r.conns, connID)

	if m.roomID == "" {
		return LeaveResult{}
	}
	return r.detach(connID, m)
}

// detach removes connID from its current room, collecting the room when it
// has neither members nor a host. Callers hold r.mu.
func (r *Registry) detach(connID string, m *member) LeaveResult {
	res := LeaveResult{RoomID: m.roomID}

	rm, ok := r.rooms[m.roomID]
	if ok {
		delete(rm.members, connID)
		if rm.host == connID {
			rm.host = ""
			res.WasHost = true
		}
		res.Size = len(rm.members)
		res.Remaining = othersLocked(rm, "")

		if len(rm.members) == 0 && rm.host == "" {
			delete(r.rooms, m.roomID)
		}
	}

	m.roomID = ""
	m.role = RoleUnassigned
	m.joined = false
	return res
}

// Host returns the host of roomID.
func (r *Registry) Host(roomID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok || rm.host == "" {
		return "", false
	}
	return rm.host, true
}

// Members returns the sorted member ids of roomID.
func (r *Registry) Members(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return othersLocked(rm, "")
}

// Size returns the number of members in roomID.
func (r *Registry) Size(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rm, ok := r.rooms[roomID]; ok {
		return len(rm.members)
	}
	return 0
}

// RoomOf returns the room connID belongs to or hosts.
func (r *Registry) RoomOf(connID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.conns[connID]; ok {
		return m.roomID
	}
	return ""
}

// Role returns the role of connID.
func (r *Registry) Role(connID string) Role {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.conns[connID]; ok {
		return m.role
	}
	return RoleUnassigned
}

// Exists reports whether roomID currently has members or a host.
func (r *Registry) Exists(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.rooms[roomID]
	return ok
}

// Rooms returns the number of live rooms.
func (r *Registry) Rooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *Registry) roomLocked(roomID string) *room {
	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{members: make(map[string]struct{})}
		r.rooms[roomID] = rm
	}
	return rm
}

func othersLocked(rm *room, exclude string) []string {
	ids := make([]string, 0, len(rm.members))
	for id := range rm.members {
		if id != exclude {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
