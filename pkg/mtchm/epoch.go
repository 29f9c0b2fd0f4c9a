package mtchm

import (
	"sync"
	"sync/atomic"
)

// numEpochs is the size of the epoch-based reclamation ring. Three epochs
// (current, previous, retiring) is the smallest size that lets the
// reclaimer always have one epoch with zero active pins to harvest from,
// the same bound used by most EBR schemes (Rust's crossbeam-epoch included,
// which the original GNS/MTCHM implementation in
// original_source/server/src/engine/sync/{cell,queue}.rs builds on).
const numEpochs = 3

// Domain is an epoch-reclamation domain shared by every node belonging to
// one Tree. A reader "pins" the domain for the duration of an operation
// (spec §4.1: "a reader pins an epoch for the duration of an operation");
// retired nodes are only released for garbage collection once every pin
// taken at or before their retirement epoch has released (spec: "retired
// nodes are deferred until all pins from the retire epoch have advanced").
//
// Go's runtime GC ultimately reclaims memory; this domain's job is to
// uphold the *protocol* — a retired node must not be mutated or reused
// while a concurrent reader might still be dereferencing it — not to do
// manual freeing. Dropping the last reference from the retired-list lets
// the garbage collector do the rest.
type Domain struct {
	epoch   atomic.Uint64
	pins    [numEpochs]atomic.Int64
	mu      sync.Mutex
	retired [numEpochs][]any
}

// NewDomain creates a fresh epoch domain, starting at epoch 0.
func NewDomain() *Domain {
	return &Domain{}
}

// Guard represents one pinned epoch. Obtain with Domain.Pin, release with
// Guard.Unpin (or the convenience defer pattern guard.Unpin()). A Guard
// must not be shared across goroutines.
type Guard struct {
	domain *Domain
	epoch  uint64
	done   bool
}

// Pin pins the domain's current epoch for the caller. Every lookup or
// iteration must hold a Guard for its duration.
func (d *Domain) Pin() *Guard {
	e := d.epoch.Load()
	d.pins[e%numEpochs].Add(1)
	return &Guard{domain: d, epoch: e}
}

// Unpin releases the pin. Safe to call once; a second call is a no-op.
func (g *Guard) Unpin() {
	if g.done {
		return
	}
	g.done = true
	g.domain.pins[g.epoch%numEpochs].Add(-1)
}

// retire queues a structurally-removed node for reclamation once no pin
// from the current epoch (or earlier) remains outstanding.
func (d *Domain) retire(node any) {
	e := d.epoch.Load()
	d.mu.Lock()
	d.retired[e%numEpochs] = append(d.retired[e%numEpochs], node)
	d.mu.Unlock()
}

// tryAdvance attempts to move the global epoch forward by one and harvest
// the oldest retired list once it is safe (i.e. has zero active pins).
// Writers call this opportunistically after a structural change; it never
// blocks — if the epoch can't be advanced yet, it's a no-op and the next
// writer will try again.
func (d *Domain) tryAdvance() {
	cur := d.epoch.Load()
	// The epoch that would become "two behind" after advancing is the one
	// we'd harvest. It's only safe to harvest an epoch with zero pins.
	oldest := (cur + 1) % numEpochs
	if d.pins[oldest].Load() != 0 {
		return
	}
	if !d.epoch.CompareAndSwap(cur, cur+1) {
		return
	}
	d.mu.Lock()
	d.retired[oldest] = nil
	d.mu.Unlock()
}
