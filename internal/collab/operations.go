package collab

import (
	"encoding/json"
	"fmt"

	"golang.org/x/mobile/event/touch"

	"github.com/presemt/presemt/backend-go/internal/engine"
	"github.com/presemt/presemt/backend-go/internal/plane"
)

// handle applies one client message to the room's engine. It runs on the
// room goroutine.
func (r *Room) handle(sender *Client, msg *Message) {
	if _, ok := r.clients[sender.ClientID]; !ok {
		r.log.Debug("message from client not in room", "client", sender.ClientID, "type", msg.Type)
		return
	}
	if err := r.apply(sender, msg); err != nil {
		r.log.Warn("message rejected", "type", msg.Type, "user", sender.UserID, "error", err)
		r.sendError(sender, msg.Type, err)
	}
}

func (r *Room) apply(sender *Client, msg *Message) error {
	e := r.engine

	switch msg.Type {
	case TypePresenceUpdate:
		return r.applyPresence(sender, msg)

	case TypeTouch:
		var p TouchPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return r.applyTouch(sender, p)

	case TypeObjectCreate:
		var p CreatePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return r.applyCreate(sender, p)

	case TypeObjectRemove:
		var p ObjectPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		e.RemoveObject(p.ObjectID)
		return nil

	case TypeObjectText:
		var p ObjectPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return e.UpdateText(p.ObjectID, p.Text, p.FontSize)

	case TypeObjectSource:
		var p ObjectPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return e.UpdateSource(p.ObjectID, p.Source)

	case TypeObjectConfigure:
		var p ObjectPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return e.Configure(p.ObjectID)

	case TypeSelectionArm:
		var p ArmPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		e.SetSelectionArmed(p.Armed)
		return nil

	case TypeSelectionCancel:
		e.CancelSelection()
		return nil

	case TypeSelectionAlign:
		e.AlignSelected()
		return nil

	case TypePanelToggle:
		var p PanelTogglePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return e.TogglePanel(p.Name)

	case TypeViewportReset:
		e.ResetViewport()
		return nil

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func decode(msg *Message, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", msg.Type, err)
	}
	return nil
}

func (r *Room) applyPresence(sender *Client, msg *Message) error {
	var presence PresencePayload
	if err := decode(msg, &presence); err != nil {
		return err
	}
	presence.DisplayName = sender.DisplayName
	r.presence.Update(sender.UserID, &presence)

	// Broadcast to other clients in room
	outPayload, _ := json.Marshal(presence)
	r.broadcast(&Message{
		Type:    TypePresenceUpdate,
		UserID:  sender.UserID,
		Payload: outPayload,
	}, sender.ClientID)
	return nil
}

// applyTouch maps the client's touch id onto a room sequence, allocated
// on begin and released on end.
func (r *Room) applyTouch(sender *Client, p TouchPayload) error {
	key := touchKey{client: sender.ClientID, id: p.ID}
	seq, down := r.touches[key]

	ev := touch.Event{X: p.X, Y: p.Y}
	switch p.Phase {
	case TouchBegin:
		if !down {
			r.nextSeq++
			seq = r.nextSeq
			r.touches[key] = seq
		}
		ev.Type = touch.TypeBegin
	case TouchMove:
		if !down {
			return nil
		}
		ev.Type = touch.TypeMove
	case TouchEnd:
		if !down {
			return nil
		}
		ev.Type = touch.TypeEnd
		delete(r.touches, key)
	default:
		return fmt.Errorf("unknown touch phase %q", p.Phase)
	}

	ev.Sequence = seq
	r.engine.HandleTouch(ev)
	return nil
}

func (r *Room) applyCreate(sender *Client, p CreatePayload) error {
	pl := engine.Placement{At: p.At}
	if p.Follow {
		seq, down := r.touches[touchKey{client: sender.ClientID, id: p.TouchID}]
		pl.Follow, pl.Seq = down, seq
	}

	var err error
	switch p.Kind {
	case "text":
		_, err = r.engine.CreateText(pl, p.Text, p.FontSize)
	case "image":
		_, err = r.engine.CreateImage(pl, p.Source)
	case "video":
		_, err = r.engine.CreateVideo(pl, p.Source)
	case "localfile":
		_, err = r.engine.FromLocalFile(pl, p.Source)
	default:
		err = fmt.Errorf("%w: %q", plane.ErrUnsupportedKind, p.Kind)
	}
	return err
}
