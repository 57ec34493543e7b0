package core

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solred/ripd/protocol"
	"github.com/solred/ripd/state"
)

var ignoreTimes = cmpopts.IgnoreFields(state.RouteEntry{}, "LastHeard", "CondemnedAt")

func TestDirectNeighbourAdvertisement(t *testing.T) {
	// Router A (id 1) has neighbour B (id 2, cost 5); B advertises itself
	// at metric 0, A adopts dest 2 via 2 at metric 5.
	h := &RouterHarness{}
	rs := MakeRouterState(1, 2)
	rs.Neighbours[0].Cost = 5
	now := time.Now()

	changed, condemned := ApplyUpdate(rs, h, 2, 5, []protocol.Record{Advert(2, 0)}, now)
	assert.Equal(t, []state.RouterId{2}, changed)
	assert.False(t, condemned)

	want := map[state.RouterId]*state.RouteEntry{
		2: {Dest: 2, NextHop: 2, Metric: 5, Changed: true},
	}
	if diff := cmp.Diff(want, rs.Routes, ignoreTimes); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
	h.GetEvents().AssertContains(t, RouteAdded)
}

func TestOwnIdIgnored(t *testing.T) {
	h := &RouterHarness{}
	rs := MakeRouterState(1, 2)

	changed, _ := ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(1, 3)}, time.Now())
	assert.Empty(t, changed)
	assert.NotContains(t, rs.Routes, state.RouterId(1))
}

func TestUnreachableRouteNotCreated(t *testing.T) {
	h := &RouterHarness{}
	rs := MakeRouterState(1, 2)

	// 15 + 1 clamps to Infinity, a retraction of a route we do not know
	changed, condemned := ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(9, 15)}, time.Now())
	assert.Empty(t, changed)
	assert.False(t, condemned)
	assert.NotContains(t, rs.Routes, state.RouterId(9))
}

func TestCountToInfinityBound(t *testing.T) {
	h := &RouterHarness{}
	rs := MakeRouterState(1, 2)
	now := time.Now()

	ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(9, 4)}, now)
	require.Contains(t, rs.Routes, state.RouterId(9))

	// the same neighbour reports degradation, always applied
	for _, adv := range []uint32{8, 12, 15, 16} {
		ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(9, adv)}, now)
		assert.LessOrEqual(t, rs.Routes[9].Metric, uint32(state.Infinity))
	}
	assert.Equal(t, uint32(state.Infinity), rs.Routes[9].Metric)
	assert.True(t, rs.Routes[9].Condemned())
}

func TestSameSourceAuthoritative(t *testing.T) {
	h := &RouterHarness{}
	rs := MakeRouterState(1, 2, 3)
	now := time.Now()

	ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(9, 2)}, now)
	require.Equal(t, uint32(3), rs.Routes[9].Metric)

	// worse metric from the supplying neighbour still takes effect
	changed, _ := ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(9, 7)}, now)
	assert.Equal(t, []state.RouterId{9}, changed)
	assert.Equal(t, uint32(8), rs.Routes[9].Metric)

	// worse metric from a third party does not
	changed, _ = ApplyUpdate(rs, h, 3, 1, []protocol.Record{Advert(9, 10)}, now)
	assert.Empty(t, changed)
	assert.Equal(t, state.RouterId(2), rs.Routes[9].NextHop)

	// strictly better from a third party displaces
	changed, _ = ApplyUpdate(rs, h, 3, 1, []protocol.Record{Advert(9, 2)}, now)
	assert.Equal(t, []state.RouterId{9}, changed)
	assert.Equal(t, state.RouterId(3), rs.Routes[9].NextHop)
	assert.Equal(t, uint32(3), rs.Routes[9].Metric)
}

func TestNeighbourRetraction(t *testing.T) {
	h := &RouterHarness{}
	rs := MakeRouterState(1, 2)
	now := time.Now()

	ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(9, 4)}, now)
	changed, condemned := ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(9, state.Infinity)}, now)

	assert.Equal(t, []state.RouterId{9}, changed)
	assert.True(t, condemned, "a retraction warrants a triggered broadcast")
	e := rs.Routes[9]
	assert.True(t, e.Condemned())
	assert.Equal(t, uint32(state.Infinity), e.Metric)
	assert.True(t, e.Changed)
	h.GetEvents().AssertContains(t, RouteCondemned)
}

func TestCondemnedRouteResurrected(t *testing.T) {
	h := &RouterHarness{}
	rs := MakeRouterState(1, 2, 3)
	now := time.Now()

	ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(9, 4)}, now)
	ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(9, state.Infinity)}, now)
	require.True(t, rs.Routes[9].Condemned())

	// any valid replacement is accepted, regardless of source or metric
	changed, _ := ApplyUpdate(rs, h, 3, 1, []protocol.Record{Advert(9, 12)}, now)
	assert.Equal(t, []state.RouterId{9}, changed)
	e := rs.Routes[9]
	assert.False(t, e.Condemned())
	assert.Equal(t, state.RouterId(3), e.NextHop)
	assert.Equal(t, uint32(13), e.Metric)
	h.GetEvents().AssertContains(t, RouteResurrected)
}

func TestEqualMetricKeepalive(t *testing.T) {
	h := &RouterHarness{}
	rs := MakeRouterState(1, 2)
	t0 := time.Now()

	ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(9, 4)}, t0)
	rs.Routes[9].Changed = false

	t1 := t0.Add(30 * time.Second)
	changed, _ := ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(9, 4)}, t1)
	assert.Empty(t, changed)
	e := rs.Routes[9]
	assert.False(t, e.Changed, "keepalive must not set the changed flag")
	assert.Equal(t, t1, e.LastHeard, "keepalive must refresh the timestamp")
}

func TestEqualMetricStaleTakeover(t *testing.T) {
	h := &RouterHarness{}
	rs := MakeRouterState(1, 2, 3)
	t0 := time.Now()

	ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(9, 4)}, t0)
	rs.Routes[9].Changed = false

	// equal metric from a different neighbour, current entry still fresh
	fresh := t0.Add(10 * time.Second)
	changed, _ := ApplyUpdate(rs, h, 3, 1, []protocol.Record{Advert(9, 4)}, fresh)
	assert.Empty(t, changed)
	assert.Equal(t, state.RouterId(2), rs.Routes[9].NextHop)

	// past half the timeout window the fresher advertiser takes over
	stale := t0.Add(91 * time.Second)
	changed, _ = ApplyUpdate(rs, h, 3, 1, []protocol.Record{Advert(9, 4)}, stale)
	assert.Equal(t, []state.RouterId{9}, changed)
	assert.Equal(t, state.RouterId(3), rs.Routes[9].NextHop)
	assert.Equal(t, uint32(5), rs.Routes[9].Metric)
	h.GetEvents().AssertContains(t, RouteRefreshed)
}

func TestApplyUpdateIdempotent(t *testing.T) {
	h := &RouterHarness{}
	rs := MakeRouterState(1, 2)
	now := time.Now()
	adv := []protocol.Record{Advert(5, 2), Advert(9, 4), Advert(12, 0)}

	changed, _ := ApplyUpdate(rs, h, 2, 1, adv, now)
	require.Len(t, changed, 3)
	for _, e := range rs.Routes {
		e.Changed = false
	}

	// a static topology stabilizes: identical input changes nothing
	for i := 0; i < 3; i++ {
		changed, condemned := ApplyUpdate(rs, h, 2, 1, adv, now.Add(time.Duration(i)*time.Second))
		assert.Empty(t, changed)
		assert.False(t, condemned)
		for dest, e := range rs.Routes {
			assert.False(t, e.Changed, "dest %d changed flag re-set", dest)
		}
	}
}

func TestSweepTimeouts(t *testing.T) {
	h := &RouterHarness{}
	rs := MakeRouterState(1, 2)
	t0 := time.Now()

	ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(3, 1)}, t0)

	// not yet timed out
	assert.Empty(t, SweepTimeouts(rs, h, t0.Add(rs.RouteTimeout-time.Second)))

	condemned := SweepTimeouts(rs, h, t0.Add(rs.RouteTimeout))
	assert.Equal(t, []state.RouterId{3}, condemned)
	e := rs.Routes[3]
	assert.True(t, e.Condemned())
	assert.Equal(t, uint32(state.Infinity), e.Metric)
	assert.Equal(t, state.RouterId(2), e.NextHop)
	assert.True(t, e.Changed)
	h.GetEvents().AssertContains(t, RouteTimedOut)

	// a second sweep does not re-condemn
	assert.Empty(t, SweepTimeouts(rs, h, t0.Add(rs.RouteTimeout+time.Minute)))
}

func TestTimeoutGarbageRemovalCycle(t *testing.T) {
	h := &RouterHarness{}
	rs := MakeRouterState(1, 2)
	t0 := time.Now()

	ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(3, 1)}, t0)

	tTimeout := t0.Add(rs.RouteTimeout)
	require.Len(t, SweepTimeouts(rs, h, tTimeout), 1)

	// still advertised as unreachable during the garbage window
	assert.Empty(t, SweepGarbage(rs, h, tTimeout.Add(rs.GarbageTimeout-time.Second)))
	assert.Contains(t, rs.Routes, state.RouterId(3))

	removed := SweepGarbage(rs, h, tTimeout.Add(rs.GarbageTimeout))
	assert.Equal(t, []state.RouterId{3}, removed)
	assert.NotContains(t, rs.Routes, state.RouterId(3))
	h.GetEvents().AssertContains(t, RoutePurged)
}

func TestSplitHorizonPoisonedReverse(t *testing.T) {
	h := &RouterHarness{}
	rs := MakeRouterState(1, 2, 3)
	now := time.Now()

	ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(5, 2), Advert(9, 4)}, now)
	ApplyUpdate(rs, h, 3, 1, []protocol.Record{Advert(7, 1)}, now)

	records, _ := SnapshotForNeighbour(rs, 2, false)
	byDest := make(map[uint16]uint32)
	for _, rec := range records {
		byDest[rec.Dest] = rec.Metric
	}
	// self route synthesized at metric 0
	assert.Equal(t, uint32(0), byDest[1])
	// routes via neighbour 2 are poisoned, never advertised at true metric
	assert.Equal(t, uint32(state.Infinity), byDest[5])
	assert.Equal(t, uint32(state.Infinity), byDest[9])
	// routes via neighbour 3 carry their true metric
	assert.Equal(t, uint32(2), byDest[7])

	// the same table advertised to neighbour 3 poisons only 3's routes
	records, _ = SnapshotForNeighbour(rs, 3, false)
	byDest = make(map[uint16]uint32)
	for _, rec := range records {
		byDest[rec.Dest] = rec.Metric
	}
	assert.Equal(t, uint32(3), byDest[5])
	assert.Equal(t, uint32(state.Infinity), byDest[7])
}

func TestTriggeredSnapshotChangedOnly(t *testing.T) {
	h := &RouterHarness{}
	rs := MakeRouterState(1, 2)
	now := time.Now()

	ApplyUpdate(rs, h, 2, 1, []protocol.Record{Advert(5, 2), Advert(9, 4)}, now)
	rs.Routes[5].Changed = false

	records, sent := SnapshotForNeighbour(rs, 2, true)
	require.Len(t, records, 1)
	assert.Equal(t, uint16(9), records[0].Dest)
	assert.Equal(t, []state.RouterId{9}, sent)

	// triggered broadcasts clear only the flags of the entries sent
	ClearChanged(rs, sent)
	assert.False(t, rs.Routes[9].Changed)

	records, _ = SnapshotForNeighbour(rs, 2, true)
	assert.Empty(t, records)
}
