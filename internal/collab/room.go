package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"golang.org/x/mobile/event/touch"

	"github.com/presemt/presemt/backend-go/internal/document"
	"github.com/presemt/presemt/backend-go/internal/engine"
	"github.com/presemt/presemt/backend-go/internal/panel"
)

var ErrRoomClosed = errors.New("room closed")

const inboxSize = 256

type touchKey struct {
	client string
	id     int64
}

// Room hosts the engine of one session. Run is the only goroutine that
// touches the engine, the clients and the presence state; everything
// else submits closures through the inbox.
type Room struct {
	id     string
	engine *engine.Engine
	log    *slog.Logger

	inbox chan func()
	done  chan struct{}

	clients   map[string]*Client // clientID -> client
	presence  *PresenceManager
	touches   map[touchKey]touch.Sequence
	nextSeq   touch.Sequence
	serverSeq int64
}

// NewRoom creates the room and its engine. The document seeds the plane;
// nil starts empty.
func NewRoom(id string, doc *document.Document, opts engine.Options) (*Room, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("session", id)
	opts.Logger = log

	r := &Room{
		id:       id,
		log:      log,
		inbox:    make(chan func(), inboxSize),
		done:     make(chan struct{}),
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
		touches:  make(map[touchKey]touch.Sequence),
	}
	opts.OnPanel = r.onPanel

	e, err := engine.NewEngine(opts)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = document.NewEmptyDocument(id, "")
	}
	if err := e.LoadDocument(doc); err != nil {
		e.Close()
		return nil, err
	}
	r.engine = e
	return r, nil
}

func (r *Room) ID() string { return r.id }

// Run processes the inbox until ctx is done. Every closure is followed by
// a frame broadcast when it changed what clients see.
func (r *Room) Run(ctx context.Context) {
	defer func() {
		for _, c := range r.clients {
			c.close()
		}
		r.engine.Close()
		close(r.done)
		r.log.Info("room stopped")
	}()

	for {
		select {
		case fn := <-r.inbox:
			fn()
			r.flush()
		case <-ctx.Done():
			return
		}
	}
}

// Submit queues fn for the room goroutine. It reports false once the room
// has stopped.
func (r *Room) Submit(fn func()) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.inbox <- fn:
		return true
	case <-r.done:
		return false
	}
}

// Do runs fn with the engine on the room goroutine and waits for it.
// After an error fn may still run later, so it must not write to
// anything the caller reads on failure.
func (r *Room) Do(ctx context.Context, fn func(*engine.Engine)) error {
	finished := make(chan struct{})
	if !r.Submit(func() {
		defer close(finished)
		fn(r.engine)
	}) {
		return ErrRoomClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrRoomClosed
	}
}

// Done is closed when Run has returned.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) join(c *Client) {
	r.clients[c.ClientID] = c

	welcome, _ := json.Marshal(WelcomePayload{
		ClientID:  c.ClientID,
		Document:  r.engine.Document(),
		Selection: r.engine.Selection(),
		Armed:     r.engine.SelectionArmed(),
	})
	c.Send(&Message{Type: TypeWelcome, SessionID: r.id, ClientID: c.ClientID, Payload: welcome})
	c.Send(r.frameMessage())
	if st := r.engine.Panel(); st.Open {
		c.Send(panelMessage(st))
	}

	// Send current presence state to new client
	if stateMsg := r.presence.StateMessage(); stateMsg != nil {
		c.Send(stateMsg)
	}

	// Broadcast join to other clients
	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      c.UserID,
		DisplayName: c.DisplayName,
	})
	r.broadcast(&Message{
		Type:    TypePresenceJoin,
		UserID:  c.UserID,
		Payload: joinPayload,
	}, c.ClientID)

	r.log.Info("client joined", "user", c.UserID, "client", c.ClientID)
}

func (r *Room) leave(c *Client) {
	if _, ok := r.clients[c.ClientID]; !ok {
		c.close()
		return
	}

	// Touches still down end where they are.
	for key, seq := range r.touches {
		if key.client == c.ClientID {
			r.engine.HandleTouch(touch.Event{Sequence: seq, Type: touch.TypeEnd})
			delete(r.touches, key)
		}
	}

	delete(r.clients, c.ClientID)
	c.close()
	r.presence.Remove(c.UserID)

	// Broadcast leave to remaining clients
	leavePayload, _ := json.Marshal(PresenceLeavePayload{
		UserID: c.UserID,
	})
	r.broadcast(&Message{
		Type:    TypePresenceLeave,
		UserID:  c.UserID,
		Payload: leavePayload,
	}, "")

	r.log.Info("client left", "user", c.UserID, "client", c.ClientID)
}

// flush broadcasts a frame when the engine has changed. Without clients
// the engine stays dirty until someone looks.
func (r *Room) flush() {
	if len(r.clients) == 0 || !r.engine.Dirty() {
		return
	}
	r.broadcast(r.frameMessage(), "")
}

func (r *Room) frameMessage() *Message {
	r.serverSeq++
	return &Message{
		Type:      TypeFrame,
		SessionID: r.id,
		Seq:       r.serverSeq,
		Payload:   json.RawMessage(r.engine.Render()),
	}
}

func (r *Room) onPanel(st panel.State) {
	r.broadcast(panelMessage(st), "")
}

func panelMessage(st panel.State) *Message {
	payload, _ := json.Marshal(st)
	return &Message{Type: TypePanel, Payload: payload}
}

func (r *Room) broadcast(msg *Message, excludeClientID string) {
	for id, c := range r.clients {
		if id != excludeClientID {
			c.Send(msg)
		}
	}
}

func (r *Room) sendError(c *Client, ref string, err error) {
	payload, _ := json.Marshal(ErrorPayload{Ref: ref, Message: err.Error()})
	c.Send(&Message{Type: TypeError, SessionID: r.id, Payload: payload})
}
