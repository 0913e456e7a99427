package collab

import (
	"encoding/json"

	"github.com/presemt/presemt/backend-go/internal/document"
	"github.com/presemt/presemt/backend-go/internal/plane"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Server → client state
	TypeFrame = "frame"
	TypePanel = "panel"

	// Client → server commands
	TypeTouch           = "touch"
	TypeObjectCreate    = "object.create"
	TypeObjectRemove    = "object.remove"
	TypeObjectText      = "object.text"
	TypeObjectSource    = "object.source"
	TypeObjectConfigure = "object.configure"
	TypeSelectionArm    = "selection.arm"
	TypeSelectionCancel = "selection.cancel"
	TypeSelectionAlign  = "selection.align"
	TypePanelToggle     = "panel.toggle"
	TypeViewportReset   = "viewport.reset"
)

// Touch phases of TouchPayload.
const (
	TouchBegin = "begin"
	TouchMove  = "move"
	TouchEnd   = "end"
)

// WelcomePayload is the first message a client receives.
type WelcomePayload struct {
	ClientID string             `json:"clientId"`
	Document *document.Document `json:"document"`
	// Selection is live state; documents never carry it.
	Selection []string `json:"selection"`
	Armed     bool     `json:"armed"`
}

// TouchPayload is one raw touch event in viewport coordinates. ID is the
// client's own touch identifier; the room maps it to a sequence of its
// own so touches of different clients never collide.
type TouchPayload struct {
	Phase string  `json:"phase"`
	ID    int64   `json:"id"`
	X     float32 `json:"x"`
	Y     float32 `json:"y"`
}

// CreatePayload places a new object. Kind is "text", "image", "video" or
// "localfile" (image or video by extension). With Follow set the object
// tracks the client's touch TouchID until it ends.
type CreatePayload struct {
	Kind     string      `json:"kind"`
	At       plane.Point `json:"at"`
	Follow   bool        `json:"follow,omitempty"`
	TouchID  int64       `json:"touchId,omitempty"`
	Text     string      `json:"text,omitempty"`
	FontSize float64     `json:"fontSize,omitempty"`
	Source   string      `json:"source,omitempty"`
}

// ObjectPayload names one object and, depending on the message, its new
// text or source.
type ObjectPayload struct {
	ObjectID string  `json:"objectId"`
	Text     string  `json:"text,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`
	Source   string  `json:"source,omitempty"`
}

type ArmPayload struct {
	Armed bool `json:"armed"`
}

type PanelTogglePayload struct {
	Name string `json:"name"`
}

type ErrorPayload struct {
	Ref     string `json:"ref,omitempty"` // type of the rejected message
	Message string `json:"message"`
}
