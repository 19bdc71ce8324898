package poller

import (
	"sync"

	"pharmaorder/internal/model"
)

// EntryState is the per-pharmacy state of the local order view. An entry
// is pending-optimistic between the local "place order" action and the
// server's response, confirmed once the server record is adopted, and
// errored when the create failed and was rolled back.
type EntryState string

const (
	StatePendingOptimistic EntryState = "pending-optimistic"
	StateConfirmed         EntryState = "confirmed-by-server"
	StateError             EntryState = "error"
)

type Entry struct {
	State EntryState
	Order model.Order
	Err   string
}

// View holds the patient's latest-order-per-pharmacy map and applies the
// state transitions for optimistic placement and poll reconciliation.
// Snapshots carry a generation number; one that is older than the last
// applied snapshot is discarded, so a slow poll cannot overwrite the
// result of a newer one.
type View struct {
	mu          sync.Mutex
	entries     map[string]Entry
	lastApplied uint64
}

func NewView() *View {
	return &View{entries: make(map[string]Entry)}
}

// BeginOptimistic records a local placeholder before the create request
// is sent.
func (v *View) BeginOptimistic(pharmacyID string, placeholder model.Order) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries[pharmacyID] = Entry{State: StatePendingOptimistic, Order: placeholder}
}

// Commit replaces the placeholder with the server's authoritative record.
// The same transition serves both a fresh create and adoption of the
// existing order from a conflict response.
func (v *View) Commit(pharmacyID string, order model.Order) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries[pharmacyID] = Entry{State: StateConfirmed, Order: order}
}

// Rollback removes the placeholder after a failed create, keeping the
// failure visible until the next snapshot replaces it.
func (v *View) Rollback(pharmacyID string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	e, ok := v.entries[pharmacyID]
	if !ok || e.State != StatePendingOptimistic {
		return
	}
	v.entries[pharmacyID] = Entry{State: StateError, Err: err.Error()}
}

// ApplySnapshot reconciles a server snapshot into the view and reports
// whether it was applied. Optimistic entries survive a snapshot that
// does not mention their pharmacy: the snapshot may have been taken
// before the in-flight create landed.
func (v *View) ApplySnapshot(generation uint64, orders []model.Order) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if generation <= v.lastApplied {
		return false
	}
	v.lastApplied = generation

	seen := make(map[string]bool, len(orders))
	for _, o := range orders {
		seen[o.PharmacyID] = true
		v.entries[o.PharmacyID] = Entry{State: StateConfirmed, Order: o}
	}
	for pharmacyID, e := range v.entries {
		if !seen[pharmacyID] && e.State != StatePendingOptimistic {
			delete(v.entries, pharmacyID)
		}
	}
	return true
}

// Entries returns a copy of the current view keyed by pharmacy id.
func (v *View) Entries() map[string]Entry {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make(map[string]Entry, len(v.entries))
	for k, e := range v.entries {
		out[k] = e
	}
	return out
}

// Get returns the entry for one pharmacy.
func (v *View) Get(pharmacyID string) (Entry, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[pharmacyID]
	return e, ok
}
