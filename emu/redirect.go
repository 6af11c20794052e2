package emu

import (
	"fmt"
)

// Route selects one target of a Redirector.
type Route int

// NoRoute makes the transaction behave as an unmapped access.
const NoRoute Route = -1

// ChooseFunc picks the route for one transaction from live control state.
type ChooseFunc func(cs *ControlState, dir Direction, offset uint32) Route

// Target is one destination of a Redirector. Bias is added to the
// incoming offset before forwarding.
type Target struct {
	Name    string
	Handler Handler
	Bias    int32
}

// Redirector is a handler that forwards each transaction to one of
// several targets. The choice is made on every call from the current
// ControlState; nothing is cached between transactions.
type Redirector struct {
	name    string
	cs      *ControlState
	choose  ChooseFunc
	targets []Target
	openBus uint8

	misses uint64
}

// NewRedirector returns a redirector over targets, indexed by Route.
func NewRedirector(name string, cs *ControlState, choose ChooseFunc, targets ...Target) (*Redirector, error) {
	if cs == nil || choose == nil {
		return nil, fmt.Errorf("redirector %s: missing control state or chooser: %w", name, ErrNilHandler)
	}
	for _, t := range targets {
		if t.Handler == nil {
			return nil, fmt.Errorf("redirector %s: target %q: %w", name, t.Name, ErrNilHandler)
		}
	}
	return &Redirector{
		name:    name,
		cs:      cs,
		choose:  choose,
		targets: targets,
		openBus: DefaultOpenBus,
	}, nil
}

// Choose returns the target a transaction would take right now.
func (r *Redirector) Choose(dir Direction, offset uint32) (Target, bool) {
	route := r.choose(r.cs, dir, offset)
	if route < 0 || int(route) >= len(r.targets) {
		return Target{}, false
	}
	return r.targets[route], true
}

func (r *Redirector) Read(offset uint32) uint8 {
	t, ok := r.Choose(DirRead, offset)
	if !ok {
		r.misses++
		return r.openBus
	}
	return t.Handler.Read(uint32(int64(offset) + int64(t.Bias)))
}

func (r *Redirector) Write(offset uint32, val uint8) {
	t, ok := r.Choose(DirWrite, offset)
	if !ok {
		r.misses++
		return
	}
	t.Handler.Write(uint32(int64(offset)+int64(t.Bias)), val)
}

// Misses returns how many transactions had no route.
func (r *Redirector) Misses() uint64 {
	return r.misses
}
