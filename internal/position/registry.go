package position

import (
	"sync"

	"empire/internal/types"
)

// Registry is the cross-symbol read view of position state. Each symbol's
// manager is the single writer for its own entry; other cycles (correlation
// and risk gates) only ever read snapshots.
type Registry struct {
	mu        sync.RWMutex
	positions map[string]types.Position
	classes   map[string]types.AssetClass
}

func NewRegistry(symbols []types.Symbol) *Registry {
	classes := make(map[string]types.AssetClass, len(symbols))
	for _, s := range symbols {
		classes[s.Name] = s.Class
	}
	return &Registry{
		positions: make(map[string]types.Position, len(symbols)),
		classes:   classes,
	}
}

// ActivePositions returns a copy of every non-flat position.
func (r *Registry) ActivePositions() map[string]types.Position {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]types.Position, len(r.positions))
	for sym, pos := range r.positions {
		if pos.Active() {
			out[sym] = pos
		}
	}
	return out
}

// ActiveCountByClass counts non-flat positions in one asset class.
func (r *Registry) ActiveCountByClass(class types.AssetClass) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for sym, pos := range r.positions {
		if pos.Active() && r.classes[sym] == class {
			n++
		}
	}
	return n
}

// Get returns the stored position for a symbol.
func (r *Registry) Get(symbol string) types.Position {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.positions[symbol]
}

func (r *Registry) put(symbol string, pos types.Position) {
	r.mu.Lock()
	r.positions[symbol] = pos
	r.mu.Unlock()
}
