package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/presemt/presemt/backend-go/internal/auth"
	"github.com/presemt/presemt/backend-go/internal/document"
	"github.com/presemt/presemt/backend-go/internal/typeid"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrForbidden = errors.New("forbidden")
)

const defaultDisplayName = "Anonymous"

// Rooms hosts the live canvas of each session.
type Rooms interface {
	Open(sessionID string, doc *document.Document) error
	Close(sessionID string)
	Document(ctx context.Context, sessionID string) (*document.Document, error)
}

// Service is the registry of open sessions. Sessions live in memory for
// as long as their room does.
type Service struct {
	rooms Rooms
	auth  *auth.Service
	now   func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewService(rooms Rooms, authService *auth.Service) *Service {
	return &Service{
		rooms:    rooms,
		auth:     authService,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId,omitempty"`
	Protected bool      `json:"protected"`
	CreatedAt time.Time `json:"createdAt"`

	passcodeHash string
}

// Admission is what a participant needs to connect: the session and a
// token scoped to it.
type Admission struct {
	Session *Session `json:"session"`
	UserID  string   `json:"userId"`
	Token   string   `json:"token"`
}

type CreateParams struct {
	Name        string
	DisplayName string
	Passcode    string
	Sample      bool // seed the canvas with the sample document
}

// Create opens a new session owned by its creator.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Admission, error) {
	hash, err := auth.HashPasscode(p.Passcode)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:           typeid.NewSessionID(),
		Name:         p.Name,
		OwnerID:      typeid.NewUserID(),
		Protected:    hash != "",
		CreatedAt:    s.now(),
		passcodeHash: hash,
	}

	var doc *document.Document
	if p.Sample {
		doc = document.NewSampleDocument(sess.ID)
		doc.Name = p.Name
	} else {
		doc = document.NewEmptyDocument(sess.ID, p.Name)
	}
	if err := s.rooms.Open(sess.ID, doc); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return s.admit(sess, sess.OwnerID, p.DisplayName, auth.RoleOwner)
}

// Host registers a session with a fixed id and no owner, open to anyone.
// Hosting an existing id is a no-op.
func (s *Service) Host(id, name string, doc *document.Document) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	if err := s.rooms.Open(id, doc); err != nil {
		return nil, fmt.Errorf("host session: %w", err)
	}
	sess := &Session{ID: id, Name: name, CreatedAt: s.now()}
	s.sessions[id] = sess
	return sess, nil
}

// Join admits a guest who knows the passcode, if the session has one.
func (s *Service) Join(ctx context.Context, sessionID, displayName, passcode string) (*Admission, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPasscode(sess.passcodeHash, passcode); err != nil {
		return nil, err
	}
	return s.admit(sess, typeid.NewUserID(), displayName, auth.RoleGuest)
}

func (s *Service) admit(sess *Session, userID, displayName, role string) (*Admission, error) {
	if displayName = strings.TrimSpace(displayName); displayName == "" {
		displayName = defaultDisplayName
	}
	token, err := s.auth.IssueToken(sess.ID, userID, displayName, role)
	if err != nil {
		return nil, err
	}
	return &Admission{Session: sess, UserID: userID, Token: token}, nil
}

func (s *Service) Get(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// List returns every session, oldest first.
func (s *Service) List() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Authorize checks that claims were issued for sessionID. Hosted
// sessions have no owner and admit anyone, claims or not.
func (s *Service) Authorize(claims *auth.Claims, sessionID string) (*Session, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.OwnerID == "" {
		return sess, nil
	}
	if claims == nil || claims.SessionID != sessionID {
		return nil, ErrForbidden
	}
	return sess, nil
}

// Delete closes the session. Only its owner may delete it.
func (s *Service) Delete(ctx context.Context, sessionID string, claims *auth.Claims) error {
	sess, err := s.Authorize(claims, sessionID)
	if err != nil {
		return err
	}
	if sess.OwnerID == "" || claims == nil || claims.UserID() != sess.OwnerID {
		return ErrForbidden
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.rooms.Close(sessionID)
	return nil
}

// Document returns the current canvas of the session.
func (s *Service) Document(ctx context.Context, sessionID string, claims *auth.Claims) (*document.Document, error) {
	if _, err := s.Authorize(claims, sessionID); err != nil {
		return nil, err
	}
	doc, err := s.rooms.Document(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session document: %w", err)
	}
	return doc, nil
}
