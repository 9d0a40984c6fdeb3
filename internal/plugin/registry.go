package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"relaybot/pkg/cmd"
)

// ErrStaleHandle is returned when a handle no longer refers to a live slot.
var ErrStaleHandle = errors.New("stale plugin handle")

// Scope is where a plugin is active. Scans visit scopes in declaration order.
type Scope int

const (
	ScopeNetwork Scope = iota
	ScopeUser
	ScopeBuiltin
)

func (s Scope) String() string {
	switch s {
	case ScopeNetwork:
		return "network"
	case ScopeUser:
		return "user"
	case ScopeBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// ParseScope maps a scope name to a Scope.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "network", "":
		return ScopeNetwork, nil
	case "user":
		return ScopeUser, nil
	case "builtin":
		return ScopeBuiltin, nil
	}
	return 0, fmt.Errorf("unknown plugin scope %q", s)
}

// Handle identifies a registered plugin instance. The generation makes a
// handle to a freed slot detectable after the slot is reused.
type Handle struct {
	index      uint32
	generation uint32
}

type slot struct {
	plugin     Plugin
	scope      Scope
	seq        uint64
	generation uint32
	live       bool
}

// Registry holds active plugins in an arena of slots. Hosts populate it with
// explicit Register/Unregister calls.
type Registry struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32
	seq   uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register activates p in scope and returns its handle.
func (r *Registry) Register(scope Scope, p Plugin) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]
		s := &r.slots[idx]
		s.generation++
		s.plugin, s.scope, s.seq, s.live = p, scope, r.seq, true
		return Handle{index: idx, generation: s.generation}
	}

	r.slots = append(r.slots, slot{plugin: p, scope: scope, seq: r.seq, live: true})
	return Handle{index: uint32(len(r.slots) - 1)}
}

// Unregister deactivates the plugin behind h.
func (r *Registry) Unregister(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.slot(h)
	if err != nil {
		return err
	}
	s.live = false
	s.plugin = nil
	r.free = append(r.free, h.index)
	return nil
}

// Lookup returns the plugin behind h.
func (r *Registry) Lookup(h Handle) (Plugin, Scope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, err := r.slot(h)
	if err != nil {
		return nil, 0, err
	}
	return s.plugin, s.scope, nil
}

func (r *Registry) slot(h Handle) (*slot, error) {
	if int(h.index) >= len(r.slots) {
		return nil, ErrStaleHandle
	}
	s := &r.slots[h.index]
	if !s.live || s.generation != h.generation {
		return nil, ErrStaleHandle
	}
	return s, nil
}

// Plugins returns a snapshot of active plugins: network scope, then user
// scope, then built-ins, each in registration order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Plugin
	for _, scope := range []Scope{ScopeNetwork, ScopeUser, ScopeBuiltin} {
		out = append(out, r.scoped(scope)...)
	}
	return out
}

func (r *Registry) scoped(scope Scope) []Plugin {
	var live []*slot
	for i := range r.slots {
		s := &r.slots[i]
		if s.live && s.scope == scope {
			live = append(live, s)
		}
	}
	// Reused slots can sit before older ones; order by registration sequence.
	sort.Slice(live, func(i, j int) bool { return live[i].seq < live[j].seq })
	out := make([]Plugin, len(live))
	for i, s := range live {
		out[i] = s.plugin
	}
	return out
}

// FindPlugin returns the first active plugin named name.
func (r *Registry) FindPlugin(name string) (Plugin, bool) {
	for _, p := range r.Plugins() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Resolution is a command found during a scan, with its owning plugin.
type Resolution struct {
	Plugin  Plugin
	Command cmd.Descriptor
}

// Commands lists every command of every active plugin in scan order.
func (r *Registry) Commands() []Resolution {
	var out []Resolution
	for _, p := range r.Plugins() {
		for _, d := range p.ListCommands() {
			out = append(out, Resolution{Plugin: p, Command: d})
		}
	}
	return out
}

// FindCommand returns the first command called name in scan order. When two
// plugins expose the same name the earlier scope wins; callers should not
// rely on that.
func (r *Registry) FindCommand(name string) (Resolution, bool) {
	for _, p := range r.Plugins() {
		for _, d := range p.ListCommands() {
			if d.Name == name {
				return Resolution{Plugin: p, Command: d}, true
			}
		}
	}
	return Resolution{}, false
}
