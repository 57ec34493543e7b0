package core

// This file makes references to RFC 2453:
// https://datatracker.ietf.org/doc/html/rfc2453

import (
	"time"

	"github.com/solred/ripd/protocol"
	"github.com/solred/ripd/state"
)

type RouterEvent int

// trace events

const (
	RouteAdded RouterEvent = iota
	RouteUpdated
	RouteRefreshed
	RouteResurrected
	RouteCondemned
	RouteTimedOut
	RoutePurged
)

func (e RouterEvent) String() string {
	switch e {
	case RouteAdded:
		return "RouteAdded"
	case RouteUpdated:
		return "RouteUpdated"
	case RouteRefreshed:
		return "RouteRefreshed"
	case RouteResurrected:
		return "RouteResurrected"
	case RouteCondemned:
		return "RouteCondemned"
	case RouteTimedOut:
		return "RouteTimedOut"
	case RoutePurged:
		return "RoutePurged"
	default:
		return "Unknown"
	}
}

// Router is an interface that observes the side effects of the routing
// algorithm.
type Router interface {
	Log(event RouterEvent, desc string, args ...any)
}

func staleEnough(rs *state.RouterState, e *state.RouteEntry, now time.Time) bool {
	window := time.Duration(rs.StaleRefreshFraction * float64(rs.RouteTimeout))
	return now.Sub(e.LastHeard) > window
}

// ApplyUpdate merges a neighbour's advertisement into the table, per
// RFC 2453 §3.9.2. The neighbour is authoritative for routes it currently
// supplies, even to report degradation; third-party advertisements only
// displace the current route when strictly better, or on an equal metric once
// the current route has gone stale. Returns the destinations whose entries
// changed and whether a route was condemned, which warrants a triggered
// broadcast.
func ApplyUpdate(rs *state.RouterState, r Router, from state.RouterId, linkCost uint32, records []protocol.Record, now time.Time) (changed []state.RouterId, condemned bool) {
	for _, rec := range records {
		dest := state.RouterId(rec.Dest)
		if dest == rs.Id {
			// never accept a route to ourselves
			continue
		}
		cand := AddMetric(rec.Metric, linkCost)

		cur, ok := rs.Routes[dest]
		if !ok {
			if cand >= state.Infinity {
				// a retraction of a route we do not know about
				continue
			}
			rs.Routes[dest] = &state.RouteEntry{
				Dest:      dest,
				NextHop:   from,
				Metric:    cand,
				Changed:   true,
				LastHeard: now,
			}
			changed = append(changed, dest)
			r.Log(RouteAdded, "route added", "dest", dest, "via", from, "metric", cand)
			continue
		}

		if cur.Condemned() {
			// a condemned route accepts any valid replacement, regardless
			// of source
			if cand < state.Infinity {
				cur.Resurrect(from, cand, now)
				changed = append(changed, dest)
				r.Log(RouteResurrected, "route resurrected", "dest", dest, "via", from, "metric", cand)
			}
			continue
		}

		switch {
		case cand == cur.Metric:
			if cur.NextHop == from {
				// keepalive
				cur.LastHeard = now
			} else if staleEnough(rs, cur, now) {
				// tie-break favours freshness once the current route has
				// aged past the stale window
				cur.NextHop = from
				cur.Changed = true
				cur.LastHeard = now
				changed = append(changed, dest)
				r.Log(RouteRefreshed, "stale route taken over", "dest", dest, "via", from, "metric", cand)
			}
		case cur.NextHop == from || cand < cur.Metric:
			cur.NextHop = from
			cur.Metric = cand
			cur.Changed = true
			cur.LastHeard = now
			changed = append(changed, dest)
			if cand >= state.Infinity {
				cur.Condemn(now)
				condemned = true
				r.Log(RouteCondemned, "route condemned by neighbour", "dest", dest, "via", from)
			} else {
				r.Log(RouteUpdated, "route updated", "dest", dest, "via", from, "metric", cand)
			}
		}
	}
	return changed, condemned
}

// SweepTimeouts condemns every active entry that has gone unrefreshed for the
// route timeout. Condemned destinations warrant a triggered broadcast.
func SweepTimeouts(rs *state.RouterState, r Router, now time.Time) (condemned []state.RouterId) {
	for dest, e := range rs.Routes {
		if e.Condemned() {
			continue
		}
		if now.Sub(e.LastHeard) >= rs.RouteTimeout {
			e.Condemn(now)
			condemned = append(condemned, dest)
			r.Log(RouteTimedOut, "route timed out", "dest", dest, "via", e.NextHop)
		}
	}
	return condemned
}

// SweepGarbage deletes every condemned entry whose garbage window has elapsed.
func SweepGarbage(rs *state.RouterState, r Router, now time.Time) (removed []state.RouterId) {
	for dest, e := range rs.Routes {
		if e.Condemned() && now.Sub(e.CondemnedAt) >= rs.GarbageTimeout {
			delete(rs.Routes, dest)
			removed = append(removed, dest)
			r.Log(RoutePurged, "route purged", "dest", dest)
		}
	}
	return removed
}

// SnapshotForNeighbour builds the records to advertise to one neighbour:
// every entry for a periodic broadcast, or only the changed ones for a
// triggered broadcast. Routes learned through that neighbour are poisoned to
// Infinity rather than omitted (split horizon with poisoned reverse,
// RFC 2453 §3.4.3). A full broadcast also carries the synthesized self route
// at metric 0. The second return value lists the table destinations included,
// so the caller can clear their changed flags once every neighbour has been
// sent to.
func SnapshotForNeighbour(rs *state.RouterState, neigh state.RouterId, changedOnly bool) ([]protocol.Record, []state.RouterId) {
	records := make([]protocol.Record, 0, len(rs.Routes)+1)
	sent := make([]state.RouterId, 0, len(rs.Routes))
	if !changedOnly {
		records = append(records, protocol.Record{Dest: uint16(rs.Id), Metric: 0})
	}
	for _, dest := range rs.SortedDests() {
		e := rs.Routes[dest]
		if changedOnly && !e.Changed {
			continue
		}
		metric := e.Metric
		if e.NextHop == neigh {
			metric = state.Infinity
		}
		records = append(records, protocol.Record{Dest: uint16(dest), Metric: metric})
		sent = append(sent, dest)
	}
	return records, sent
}

// ClearChanged resets the changed flag of the given destinations, after they
// have been broadcast.
func ClearChanged(rs *state.RouterState, dests []state.RouterId) {
	for _, dest := range dests {
		if e, ok := rs.Routes[dest]; ok {
			e.Changed = false
		}
	}
}
