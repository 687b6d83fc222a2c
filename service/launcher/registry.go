package launcher

import (
	"sync"
)

// Registry holds launchers by name in registration order.
type Registry struct {
	launchers map[string]Launcher
	names     []string
	mux       sync.RWMutex
}

// Lookup returns a launcher by name.
func (r *Registry) Lookup(name string) Launcher {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.launchers[name]
}

// Register adds or replaces a launcher.
func (r *Registry) Register(l Launcher) {
	r.mux.Lock()
	defer r.mux.Unlock()
	name := l.Name()
	if _, ok := r.launchers[name]; !ok {
		r.names = append(r.names, name)
	}
	r.launchers[name] = l
}

// Names returns launcher names in registration order.
func (r *Registry) Names() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return append([]string(nil), r.names...)
}

// List returns launchers in registration order.
func (r *Registry) List() []Launcher {
	r.mux.RLock()
	defer r.mux.RUnlock()
	ret := make([]Launcher, 0, len(r.names))
	for _, name := range r.names {
		ret = append(ret, r.launchers[name])
	}
	return ret
}

// Len returns the number of registered launchers.
func (r *Registry) Len() int {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return len(r.names)
}

// NewRegistry creates a registry.
func NewRegistry(launchers ...Launcher) *Registry {
	ret := &Registry{launchers: make(map[string]Launcher)}
	for _, l := range launchers {
		if l != nil {
			ret.Register(l)
		}
	}
	return ret
}
