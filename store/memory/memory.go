// Package memory provides in-memory store implementations (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/field-engine/schedule"
	"github.com/warp/field-engine/tree"
)

// =============================================================================
// MEMORY SINK - In-memory VisitSink implementation
// =============================================================================

// Sink collects generated visits, ordered by time. It implements
// schedule.VisitSink the way the sqlite store does, minus persistence:
// ids are assigned on insert and the same validation gate applies.
type Sink struct {
	mu     sync.RWMutex
	nextID schedule.VisitID
	visits []schedule.ForceVisit
}

func NewSink() *Sink {
	return &Sink{nextID: 1}
}

// CreateVisit validates, assigns an id, and inserts in time order.
func (m *Sink) CreateVisit(_ context.Context, v *schedule.ForceVisit) error {
	if err := v.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v.ID = m.nextID
	m.nextID++

	// Binary search for the insertion point; generators emit in order
	// so this is normally an append.
	i := sort.Search(len(m.visits), func(i int) bool {
		return m.visits[i].At.After(v.At)
	})
	m.visits = append(m.visits, schedule.ForceVisit{})
	copy(m.visits[i+1:], m.visits[i:])
	m.visits[i] = *v
	return nil
}

// Visits returns every collected visit, in time order.
func (m *Sink) Visits() []schedule.ForceVisit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]schedule.ForceVisit, len(m.visits))
	copy(out, m.visits)
	return out
}

// ListVisits returns a node's visits within [from, to), in time order.
// A zero node lists every node.
func (m *Sink) ListVisits(_ context.Context, node tree.ID, from, to time.Time) ([]schedule.ForceVisit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []schedule.ForceVisit
	for _, v := range m.visits {
		if v.At.Before(from) || !v.At.Before(to) {
			continue
		}
		if node != 0 && v.Node != node {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Reset drops every collected visit and restarts id assignment.
func (m *Sink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visits = nil
	m.nextID = 1
}
