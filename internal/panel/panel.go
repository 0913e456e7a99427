// Package panel switches between the configuration panels of an editor.
// At most one panel is shown at a time.
package panel

import (
	"errors"
	"fmt"

	"github.com/presemt/presemt/backend-go/internal/plane"
)

var ErrUnknownPanel = errors.New("unknown panel")

// Panel is a configuration surface shown by the frontend. Target is the
// object being configured, nil when the panel creates new objects.
type Panel interface {
	Open(target *plane.Object)
	Close()
}

// Factory builds a panel the first time it is needed.
type Factory func() Panel

// Switcher owns the panels of one controller.
type Switcher struct {
	factories map[string]Factory
	panels    map[string]Panel

	active string
	target *plane.Object
}

func NewSwitcher(factories map[string]Factory) *Switcher {
	return &Switcher{
		factories: factories,
		panels:    make(map[string]Panel),
	}
}

func (s *Switcher) get(name string) (Panel, error) {
	if p, ok := s.panels[name]; ok {
		return p, nil
	}
	f, ok := s.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPanel, name)
	}
	p := f()
	s.panels[name] = p
	return p, nil
}

// Toggle closes the shown panel, then opens name unless it was the one
// shown. An empty name only closes.
func (s *Switcher) Toggle(name string) error {
	var next Panel
	if name != "" {
		p, err := s.get(name)
		if err != nil {
			return err
		}
		next = p
	}

	same := s.active != "" && s.active == name
	s.Close()
	if same || next == nil {
		return nil
	}
	s.active = name
	next.Open(nil)
	return nil
}

// Open shows name for target, closing whatever was shown first, even when
// it is the same panel.
func (s *Switcher) Open(name string, target *plane.Object) error {
	p, err := s.get(name)
	if err != nil {
		return err
	}
	s.Close()
	s.active = name
	s.target = target
	p.Open(target)
	return nil
}

// Close hides the shown panel, if any.
func (s *Switcher) Close() {
	if s.active == "" {
		return
	}
	p := s.panels[s.active]
	s.active = ""
	s.target = nil
	p.Close()
}

// Active returns the shown panel's name and target; name is empty when
// nothing is shown.
func (s *Switcher) Active() (string, *plane.Object) {
	return s.active, s.target
}

// Forget drops target from the shown panel when that object goes away.
func (s *Switcher) Forget(target *plane.Object) {
	if s.target == target && s.active != "" {
		s.Close()
	}
}
