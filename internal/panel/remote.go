package panel

import "github.com/presemt/presemt/backend-go/internal/plane"

// State is what a frontend needs to draw a panel.
type State struct {
	Name   string   `json:"name"`
	Open   bool     `json:"open"`
	Target string   `json:"target,omitempty"`
	Accept []string `json:"accept,omitempty"`
}

// Remote is a Panel drawn by a frontend: opening and closing publish the
// new State.
type Remote struct {
	name    string
	accept  []string
	publish func(State)
}

// NewRemote returns a factory for a remote panel. accept lists the file
// extensions a file picker panel offers.
func NewRemote(name string, accept []string, publish func(State)) Factory {
	return func() Panel {
		return &Remote{name: name, accept: accept, publish: publish}
	}
}

func (r *Remote) Open(target *plane.Object) {
	st := State{Name: r.name, Open: true, Accept: r.accept}
	if target != nil {
		st.Target = target.ID()
	}
	r.publish(st)
}

func (r *Remote) Close() {
	r.publish(State{Name: r.name})
}
