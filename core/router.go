package core

import (
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/solred/ripd/protocol"
	"github.com/solred/ripd/state"
)

// RipRouter drives the routing engine: it owns the update scheduler, applies
// inbound advertisements, runs the timeout and garbage sweeps on every
// maintenance pass, and constructs the periodic and triggered broadcasts.
type RipRouter struct {
	*state.State
	sched *state.UpdateScheduler

	// pendingTriggered is set whenever a table change warrants a triggered
	// broadcast that the scheduler has not yet permitted.
	pendingTriggered bool
	// dirty marks the table as mutated since the presenter last rendered.
	dirty bool

	// warnDedup suppresses repeated warnings about the same unknown source.
	warnDedup *ttlcache.Cache[state.RouterId, struct{}]
}

func (r *RipRouter) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.State = s
	now := time.Now()
	r.sched = state.NewUpdateScheduler(s.Cfg.PeriodicInterval, now)
	r.warnDedup = ttlcache.New[state.RouterId, struct{}](
		ttlcache.WithTTL[state.RouterId, struct{}](state.WarnSuppressTTL))

	s.RouterState = &state.RouterState{
		Id:                   s.Cfg.Id,
		Routes:               make(map[state.RouterId]*state.RouteEntry),
		Neighbours:           make([]state.Neighbour, 0, len(s.Cfg.Neighbours)),
		RouteTimeout:         s.Cfg.RouteTimeout,
		GarbageTimeout:       s.Cfg.GarbageTimeout,
		StaleRefreshFraction: s.Cfg.StaleRefreshFraction,
	}
	for _, n := range s.Cfg.Neighbours {
		s.RouterState.Neighbours = append(s.RouterState.Neighbours, state.Neighbour{
			Id:   n.Id,
			Port: n.Port,
			Cost: n.Cost,
		})
	}
	s.RouterState.SeedNeighbours(now)
	r.dirty = true

	// the scheduler is armed to fire immediately, so the first maintenance
	// pass sends the initial full broadcast
	s.Env.RepeatTask(r.maintain, state.PollInterval)
	return nil
}

func (r *RipRouter) Cleanup(s *state.State) error {
	r.State = nil
	return nil
}

func (r *RipRouter) Log(event RouterEvent, desc string, args ...any) {
	r.Env.Log.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
}

// maintain is one maintenance pass: sweeps, then the triggered gate, then the
// periodic tick. It runs at the poll bound and again after every applied
// update, so timer-driven work is never starved by inbound traffic.
func (r *RipRouter) maintain(s *state.State) error {
	now := time.Now()

	if timedOut := SweepTimeouts(s.RouterState, r, now); len(timedOut) > 0 {
		routeChanges.Add(float64(len(timedOut)))
		r.pendingTriggered = true
		r.dirty = true
	}
	if purged := SweepGarbage(s.RouterState, r, now); len(purged) > 0 {
		routeChanges.Add(float64(len(purged)))
		r.dirty = true
	}

	if r.pendingTriggered && r.sched.TriggeredAllowed(now) {
		r.sendTriggered(s, now)
	}
	if r.sched.PeriodicDue(now) {
		r.sendPeriodic(s)
		r.dirty = true
	}

	routeCount.Set(float64(len(s.Routes)))
	r.warnDedup.DeleteExpired()

	if r.dirty {
		Get[*Presenter](s).Render(s, now)
		r.dirty = false
	}
	return nil
}

// sendPeriodic advertises the full table, plus the self route, to every
// neighbour, then clears all changed flags.
func (r *RipRouter) sendPeriodic(s *state.State) {
	t := Get[*Transport](s)
	var sent []state.RouterId
	for _, n := range s.RouterState.Neighbours {
		records, dests := SnapshotForNeighbour(s.RouterState, n.Id, false)
		for _, buf := range protocol.Encode(uint16(s.RouterState.Id), records) {
			t.Send(buf, n.Port)
		}
		sent = dests
	}
	ClearChanged(s.RouterState, sent)
	r.pendingTriggered = false
	periodicBroadcasts.Inc()
	s.Log.Debug("periodic broadcast", "routes", len(sent))
}

// sendTriggered advertises only the changed entries, then clears the flags of
// exactly the entries that were sent.
func (r *RipRouter) sendTriggered(s *state.State, now time.Time) {
	anyChanged := false
	for _, e := range s.RouterState.Routes {
		if e.Changed {
			anyChanged = true
			break
		}
	}
	if !anyChanged {
		r.pendingTriggered = false
		return
	}

	t := Get[*Transport](s)
	var sent []state.RouterId
	for _, n := range s.RouterState.Neighbours {
		records, dests := SnapshotForNeighbour(s.RouterState, n.Id, true)
		for _, buf := range protocol.Encode(uint16(s.RouterState.Id), records) {
			t.Send(buf, n.Port)
		}
		sent = dests
	}
	ClearChanged(s.RouterState, sent)
	r.pendingTriggered = false
	r.sched.MarkTriggered(now)
	triggeredBroadcasts.Inc()
	s.Log.Debug("triggered broadcast", "routes", len(sent))
}

func (r *RipRouter) warnUnknown(sender state.RouterId) {
	if r.warnDedup.Has(sender) {
		return
	}
	r.warnDedup.Set(sender, struct{}{}, ttlcache.DefaultTTL)
	r.Env.Log.Warn("update from unconfigured neighbour", "from", sender)
}

// handleInbound processes one decoded datagram on the main loop, then runs a
// maintenance pass so sweeps and broadcasts are evaluated this iteration.
func handleInbound(s *state.State, pkt *protocol.Packet) error {
	r := Get[*RipRouter](s)

	if pkt.Command != protocol.CommandResponse {
		// requests are decoded but unused by this protocol variant
		packetsIgnored.Inc()
		return nil
	}
	neigh := s.RouterState.GetNeighbour(state.RouterId(pkt.Sender))
	if neigh == nil {
		packetsIgnored.Inc()
		r.warnUnknown(state.RouterId(pkt.Sender))
		return nil
	}

	changed, condemned := ApplyUpdate(s.RouterState, r, neigh.Id, neigh.Cost, pkt.Records, time.Now())
	if len(changed) > 0 || condemned {
		routeChanges.Add(float64(len(changed)))
		r.pendingTriggered = true
		r.dirty = true
	}
	return r.maintain(s)
}
