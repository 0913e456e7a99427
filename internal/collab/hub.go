package collab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/presemt/presemt/backend-go/internal/document"
	"github.com/presemt/presemt/backend-go/internal/engine"
)

var ErrRoomNotFound = errors.New("room not found")

type roomEntry struct {
	room   *Room
	cancel context.CancelFunc
}

// Hub owns the rooms of all open sessions, each running on its own
// goroutine.
type Hub struct {
	ctx  context.Context
	opts engine.Options
	log  *slog.Logger

	mu    sync.RWMutex
	rooms map[string]roomEntry // sessionID -> room
}

// NewHub creates a hub whose rooms live until ctx is done or they are
// closed. opts configures the engine of every room.
func NewHub(ctx context.Context, opts engine.Options) *Hub {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		ctx:   ctx,
		opts:  opts,
		log:   log,
		rooms: make(map[string]roomEntry),
	}
}

// Open starts a room for sessionID seeded with doc. Opening an open
// session is a no-op.
func (h *Hub) Open(sessionID string, doc *document.Document) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[sessionID]; ok {
		return nil
	}

	room, err := NewRoom(sessionID, doc, h.opts)
	if err != nil {
		return fmt.Errorf("open room %s: %w", sessionID, err)
	}
	ctx, cancel := context.WithCancel(h.ctx)
	h.rooms[sessionID] = roomEntry{room: room, cancel: cancel}
	go room.Run(ctx)

	h.log.Info("room opened", "session", sessionID)
	return nil
}

// Close stops the room of sessionID and disconnects its clients. The room
// stays listed until Run has returned; until then only the room closes its
// clients.
func (h *Hub) Close(sessionID string) {
	h.mu.RLock()
	entry, ok := h.rooms[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.stop(sessionID, entry)
}

// Stop closes every room.
func (h *Hub) Stop() {
	h.mu.RLock()
	entries := make(map[string]roomEntry, len(h.rooms))
	for id, entry := range h.rooms {
		entries[id] = entry
	}
	h.mu.RUnlock()

	for id, entry := range entries {
		h.stop(id, entry)
	}
}

func (h *Hub) stop(sessionID string, entry roomEntry) {
	entry.cancel()
	<-entry.room.Done()

	h.mu.Lock()
	if cur, ok := h.rooms[sessionID]; ok && cur.room == entry.room {
		delete(h.rooms, sessionID)
	}
	h.mu.Unlock()
}

func (h *Hub) Room(sessionID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entry, ok := h.rooms[sessionID]
	return entry.room, ok
}

// Do runs fn against the engine of sessionID on its room goroutine.
func (h *Hub) Do(ctx context.Context, sessionID string, fn func(*engine.Engine)) error {
	room, ok := h.Room(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, sessionID)
	}
	return room.Do(ctx, fn)
}

// Register joins client to the room of its session. The join is queued
// before Register returns, so messages read afterwards follow it.
func (h *Hub) Register(client *Client) error {
	room, ok := h.Room(client.SessionID)
	if !ok || !room.Submit(func() { room.join(client) }) {
		client.close()
		return fmt.Errorf("%w: %s", ErrRoomNotFound, client.SessionID)
	}
	return nil
}

func (h *Hub) Unregister(client *Client) {
	room, ok := h.Room(client.SessionID)
	if !ok || !room.Submit(func() { room.leave(client) }) {
		client.close()
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	room, ok := h.Room(sender.SessionID)
	if !ok {
		h.log.Debug("message for closed session", "session", sender.SessionID, "type", msg.Type)
		return
	}
	room.Submit(func() { room.handle(sender, msg) })
}

// Document snapshots the plane of sessionID.
func (h *Hub) Document(ctx context.Context, sessionID string) (*document.Document, error) {
	done := make(chan *document.Document, 1)
	if err := h.Do(ctx, sessionID, func(e *engine.Engine) { done <- e.Document() }); err != nil {
		return nil, err
	}
	return <-done, nil
}
