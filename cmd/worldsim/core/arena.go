package core

// Registry owns the authoritative nation set. Nation ids are dense indices
// assigned at world generation, so lookup is a slice index.
type Registry struct {
	nations []*Nation
}

// NewRegistry builds a registry from nations already carrying dense ids.
func NewRegistry(nations []*Nation) *Registry {
	return &Registry{nations: nations}
}

// Get returns the nation with the given id.
func (r *Registry) Get(id int) (*Nation, bool) {
	if id < 0 || id >= len(r.nations) {
		return nil, false
	}
	return r.nations[id], true
}

// All returns every nation, living or extinct, in ascending id order.
func (r *Registry) All() []*Nation {
	return r.nations
}

// Living returns the living nations in ascending id order. Every phase
// iterates this order so random draw sequences are reproducible.
func (r *Registry) Living() []*Nation {
	out := make([]*Nation, 0, len(r.nations))
	for _, n := range r.nations {
		if n.Alive() {
			out = append(out, n)
		}
	}
	return out
}

// LivingCount returns the number of living nations.
func (r *Registry) LivingCount() int {
	count := 0
	for _, n := range r.nations {
		if n.Alive() {
			count++
		}
	}
	return count
}

// Snapshot returns a frozen deep copy of all nations in ascending id order.
// Phases read only from the snapshot and write only through a buffer, so
// every nation within a phase observes the same coherent world.
func (r *Registry) Snapshot() []*Nation {
	snap := make([]*Nation, len(r.nations))
	for i, n := range r.nations {
		snap[i] = n.Clone()
	}
	return snap
}

// UpdateBuffer collects mutations produced while a phase runs against a
// frozen snapshot. Commit applies them in queue order, which is
// deterministic because phases enqueue in ascending id order.
type UpdateBuffer struct {
	pending []bufferedMutation
}

type bufferedMutation struct {
	nationID int
	apply    func(*Nation)
}

// NewUpdateBuffer creates an empty buffer.
func NewUpdateBuffer() *UpdateBuffer {
	return &UpdateBuffer{}
}

// Queue records a mutation against a nation to apply at commit time.
func (b *UpdateBuffer) Queue(nationID int, apply func(*Nation)) {
	b.pending = append(b.pending, bufferedMutation{nationID: nationID, apply: apply})
}

// Len returns the number of queued mutations.
func (b *UpdateBuffer) Len() int {
	return len(b.pending)
}

// Commit applies all queued mutations to the registry and clears the buffer.
// Mutations addressed to extinct or unknown nations are dropped: a phase
// computed against a snapshot may race a collapse that a previous commit
// already applied, and the write simply no longer has a target.
func (b *UpdateBuffer) Commit(r *Registry) {
	for _, m := range b.pending {
		n, ok := r.Get(m.nationID)
		if !ok || !n.Alive() {
			continue
		}
		m.apply(n)
	}
	b.pending = b.pending[:0]
}
