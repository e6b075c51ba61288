package supervisor

import (
	"slices"
	"time"
)

// descriptor is the supervisor's record of one process. Guarded by Supervisor.mu.
type descriptor struct {
	name    string
	seq     uint64
	factory Factory
	policy  RestartPolicy

	state       State
	pending     bool // registered but never spawned
	handle      Handle
	incarnation uint64
	instanceID  string
	startedAt   time.Time
	restarts    int
	lastErr     error

	detach chan struct{} // closed to release the current monitor
}

// invalidate bumps the incarnation so outstanding exit reports and
// in-flight spawns for this descriptor are discarded.
func (d *descriptor) invalidate() {
	d.incarnation++
	if d.detach != nil {
		close(d.detach)
		d.detach = nil
	}
}

// registry holds descriptors in registration order.
type registry struct {
	seq    uint64
	byName map[string]*descriptor
	order  []*descriptor
}

func newRegistry() *registry {
	return &registry{byName: make(map[string]*descriptor)}
}

func (r *registry) get(name string) *descriptor {
	return r.byName[name]
}

func (r *registry) add(d *descriptor) {
	r.seq++
	d.seq = r.seq
	r.byName[d.name] = d
	r.order = append(r.order, d)
}

func (r *registry) remove(name string) {
	d, ok := r.byName[name]
	if !ok {
		return
	}
	delete(r.byName, name)
	r.order = slices.DeleteFunc(r.order, func(o *descriptor) bool { return o == d })
}

func (r *registry) all() []*descriptor {
	return r.order
}
