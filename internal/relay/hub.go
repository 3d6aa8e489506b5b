// Package relay implements the signaling relay: a hub that owns every live
// websocket connection and routes messages between the members of a room.
package relay

import (
	"context"
	"log/slog"

	"github.com/yasincandan35/remotedesk/internal/protocol"
	"github.com/yasincandan35/remotedesk/internal/registry"
)

type inbound struct {
	client *Client
	msg    *protocol.Message
}

// Hub is the central brain of the relay.
//
// All connection and routing state is touched only by the goroutine running
// Run. Room membership lives in the registry, which is safe to query from
// anywhere.
type Hub struct {
	registry *registry.Registry

	// clients maps connection ids to live clients.
	clients map[string]*Client

	// dropped collects clients whose send buffer overflowed during the
	// current event. They are removed once the event has been handled.
	dropped []*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan *inbound

	// done is closed when Run returns.
	done chan struct{}
}

// NewHub creates a Hub backed by reg. A nil reg gets a fresh registry.
func NewHub(reg *registry.Registry) *Hub {
	if reg == nil {
		reg = registry.New()
	}
	return &Hub{
		registry:   reg,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *inbound),
		done:       make(chan struct{}),
	}
}

// Registry exposes the room state for read-only inspection.
func (h *Hub) Registry() *registry.Registry {
	return h.registry
}

// Run starts the hub's main processing loop. It is the single goroutine that
// manages clients and routing, and returns when ctx is cancelled, closing
// every client's send channel on the way out.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.remove(client)

		case in := <-h.inbound:
			h.handle(in.client, in.msg)
		}

		h.flushDropped()
	}
}

// Register hands a freshly upgraded client to the hub. It reports false when
// the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave hands c back to the hub for removal.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) deliver(in *inbound) bool {
	select {
	case h.inbound <- in:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	for id, c := range h.clients {
		close(c.Send)
		h.registry.Leave(id)
		delete(h.clients, id)
	}
}

func (h *Hub) add(c *Client) {
	h.clients[c.ID] = c
	h.registry.Connect(c.ID)
	slog.Info("client registered", "client", c.ID)

	h.sendTo(c.ID, protocol.TypeConnected, protocol.ConnectedPayload{ID: c.ID})
}

// remove forgets c, closes its send channel and tells the rest of its room.
// Removing a client twice is a no-op.
func (h *Hub) remove(c *Client) {
	if cur, ok := h.clients[c.ID]; !ok || cur != c {
		return
	}
	delete(h.clients, c.ID)
	close(c.Send)

	res := h.registry.Leave(c.ID)
	slog.Info("client unregistered", "client", c.ID, "room", res.RoomID, "was_host", res.WasHost)

	if res.RoomID == "" {
		return
	}
	for _, id := range res.Remaining {
		h.sendTo(id, protocol.TypePeerLeft, protocol.PeerLeftPayload{UserID: c.ID})
	}
	h.BroadcastRoomSize(res.RoomID)
}

func (h *Hub) flushDropped() {
	for len(h.dropped) > 0 {
		c := h.dropped[0]
		h.dropped = h.dropped[1:]
		slog.Warn("client send buffer full, dropping", "client", c.ID)
		h.remove(c)
	}
}

// handle is the routing table. It runs on the hub goroutine.
func (h *Hub) handle(c *Client, msg *protocol.Message) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	slog.Debug("message received", "client", c.ID, "type", msg.Type)

	switch {
	case msg.Type == protocol.TypeIAmHost:
		h.handleHost(c, msg)

	case msg.Type == protocol.TypeJoinRoom:
		h.handleJoin(c, msg)

	case protocol.IsSignal(msg.Type):
		roomID, err := msg.RoomID()
		if err != nil || roomID == "" {
			slog.Warn("signal without room", "client", c.ID, "type", msg.Type)
			return
		}
		n := h.RelayToRoom(roomID, c.ID, msg.WithSender(c.ID))
		slog.Debug("signal relayed", "client", c.ID, "type", msg.Type, "room", roomID, "recipients", n)

	case protocol.IsInput(msg.Type):
		h.handleInput(c, msg)

	default:
		slog.Warn("unknown message type", "client", c.ID, "type", msg.Type)
	}
}

func (h *Hub) handleHost(c *Client, msg *protocol.Message) {
	roomID, err := msg.RoomID()
	if err != nil || roomID == "" {
		slog.Warn("i-am-host without room", "client", c.ID)
		return
	}

	res, err := h.registry.DeclareHost(c.ID, roomID)
	if err != nil {
		slog.Warn("declare host failed", "client", c.ID, "room", roomID, "error", err)
		return
	}
	if res.Previous != "" {
		slog.Info("host replaced", "room", roomID, "previous", res.Previous, "host", c.ID)
	} else {
		slog.Info("host declared", "room", roomID, "host", c.ID)
	}

	if len(res.Clients) > 0 {
		h.sendTo(c.ID, protocol.TypeExistingClients, protocol.ExistingClientsPayload{Clients: res.Clients})
	}

	ready, err := protocol.New(protocol.TypeHostReady, protocol.HostReadyPayload{HostID: c.ID})
	if err != nil {
		slog.Error("encode host-ready", "error", err)
		return
	}
	h.RelayToRoom(roomID, c.ID, ready)
}

func (h *Hub) handleJoin(c *Client, msg *protocol.Message) {
	roomID, err := msg.RoomID()
	if err != nil && err != protocol.ErrNoRoomID {
		slog.Warn("malformed join-room", "client", c.ID, "error", err)
		return
	}

	if roomID == "" {
		roomID, err = h.generateRoomID()
		if err != nil {
			slog.Error("generate room id", "error", err)
			return
		}
		h.sendTo(c.ID, protocol.TypeRoomCreated, protocol.RoomCreatedPayload{RoomID: roomID})
	}

	res, err := h.registry.Join(c.ID, roomID)
	if err != nil {
		slog.Warn("join failed", "client", c.ID, "room", roomID, "error", err)
		return
	}
	slog.Info("client joined room", "client", c.ID, "room", roomID, "size", res.Size)

	joined, err := protocol.New(protocol.TypeUserJoined, protocol.UserJoinedPayload{UserID: c.ID, RoomSize: res.Size})
	if err != nil {
		slog.Error("encode user-joined", "error", err)
		return
	}
	h.RelayToRoom(roomID, c.ID, joined)

	if res.Size > 1 {
		h.sendTo(c.ID, protocol.TypeExistingUsers, protocol.ExistingUsersPayload{
			Users:    res.Others,
			RoomSize: res.Size,
			HostID:   res.HostID,
		})
		if res.HostID != "" {
			h.sendTo(res.HostID, protocol.TypeClientJoined, protocol.ClientJoinedPayload{ClientID: c.ID})
		}
	}

	h.BroadcastRoomSize(roomID)
}

// handleInput forwards a control event to the room's host only.
func (h *Hub) handleInput(c *Client, msg *protocol.Message) {
	roomID, err := msg.RoomID()
	if err != nil || roomID == "" {
		slog.Debug("input without room", "client", c.ID, "type", msg.Type)
		return
	}

	role := h.registry.Role(c.ID)
	host, ok := h.registry.Host(roomID)
	if !ok || host == c.ID {
		slog.Debug("input dropped", "client", c.ID, "role", role, "type", msg.Type, "room", roomID)
		return
	}

	stamped := msg.WithSender(c.ID)
	stamped.Type = protocol.RemoteType(msg.Type)
	if h.RelayToConnection(host, stamped) {
		slog.Debug("input forwarded", "client", c.ID, "role", role, "type", stamped.Type, "host", host)
	}
}

// RelayToRoom enqueues msg for every member of roomID except excludeID and
// returns the number of members it was queued for. Must be called on the hub
// goroutine.
func (h *Hub) RelayToRoom(roomID, excludeID string, msg *protocol.Message) int {
	n := 0
	for _, id := range h.registry.Members(roomID) {
		if id == excludeID {
			continue
		}
		if h.RelayToConnection(id, msg) {
			n++
		}
	}
	return n
}

// RelayToConnection enqueues msg for a single connection without blocking.
// A connection whose buffer is full is scheduled for removal. Must be called
// on the hub goroutine.
func (h *Hub) RelayToConnection(connID string, msg *protocol.Message) bool {
	c, ok := h.clients[connID]
	if !ok {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		h.dropped = append(h.dropped, c)
		return false
	}
}

// BroadcastRoomSize sends the current member count to every member of roomID.
func (h *Hub) BroadcastRoomSize(roomID string) {
	size := h.registry.Size(roomID)
	msg, err := protocol.New(protocol.TypeRoomSize, size)
	if err != nil {
		slog.Error("encode room-size", "error", err)
		return
	}
	h.RelayToRoom(roomID, "", msg)
}

func (h *Hub) sendTo(connID, typ string, payload any) {
	msg, err := protocol.New(typ, payload)
	if err != nil {
		slog.Error("encode message", "type", typ, "error", err)
		return
	}
	h.RelayToConnection(connID, msg)
}
