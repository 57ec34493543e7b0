package state

import (
	"slices"
	"time"
)

// RouterId identifies a router in the simulated network, 1..64000.
type RouterId uint16

// Phase is the lifecycle of a table entry. An entry is Active while it is
// being refreshed, and Condemned from the moment its metric is forced to
// Infinity until the garbage window elapses and it is deleted.
type Phase int

const (
	PhaseActive Phase = iota
	PhaseCondemned
)

// RouteEntry is the per-destination state unit. Entries are owned exclusively
// by the RouterState table and are only ever mutated on the main loop.
type RouteEntry struct {
	Dest    RouterId
	NextHop RouterId
	Metric  uint32
	// Changed is set whenever metric or next hop changed since the last
	// broadcast that cleared it.
	Changed bool
	Phase   Phase
	// LastHeard drives the timeout window.
	LastHeard time.Time
	// CondemnedAt drives the garbage window; valid only while Phase is
	// PhaseCondemned.
	CondemnedAt time.Time
}

func (e *RouteEntry) Condemned() bool {
	return e.Phase == PhaseCondemned
}

// Condemn forces the entry unreachable and starts the garbage window. A
// second condemnation does not restart the window.
func (e *RouteEntry) Condemn(now time.Time) {
	if e.Phase == PhaseCondemned {
		return
	}
	e.Phase = PhaseCondemned
	e.Metric = Infinity
	e.CondemnedAt = now
	e.Changed = true
}

// Resurrect replaces a condemned entry with a fresh advertisement.
func (e *RouteEntry) Resurrect(nh RouterId, metric uint32, now time.Time) {
	e.Phase = PhaseActive
	e.CondemnedAt = time.Time{}
	e.NextHop = nh
	e.Metric = metric
	e.Changed = true
	e.LastHeard = now
}

// Neighbour is a directly configured peer.
type Neighbour struct {
	Id   RouterId
	Port uint16
	Cost uint32
}

// RouterState holds the routing table and the parameters its maintenance
// depends on. Access must be done only on the main loop goroutine.
type RouterState struct {
	Id         RouterId
	Routes     map[RouterId]*RouteEntry
	Neighbours []Neighbour

	RouteTimeout   time.Duration
	GarbageTimeout time.Duration
	// StaleRefreshFraction is the share of RouteTimeout after which an
	// equal-metric route from a different neighbour displaces the current one.
	StaleRefreshFraction float64
}

func (s *RouterState) GetNeighbour(id RouterId) *Neighbour {
	nIdx := slices.IndexFunc(s.Neighbours, func(n Neighbour) bool {
		return n.Id == id
	})
	if nIdx == -1 {
		return nil
	}
	return &s.Neighbours[nIdx]
}

// SortedDests returns the table's destinations in ascending order, for
// deterministic broadcasts and rendering.
func (s *RouterState) SortedDests() []RouterId {
	dests := make([]RouterId, 0, len(s.Routes))
	for dest := range s.Routes {
		dests = append(dests, dest)
	}
	slices.Sort(dests)
	return dests
}

// SeedNeighbours pre-populates the table with the directly configured
// neighbours at their link cost.
func (s *RouterState) SeedNeighbours(now time.Time) {
	for _, n := range s.Neighbours {
		s.Routes[n.Id] = &RouteEntry{
			Dest:      n.Id,
			NextHop:   n.Id,
			Metric:    n.Cost,
			Changed:   true,
			LastHeard: now,
		}
	}
}
