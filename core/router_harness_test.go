package core

import (
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/solred/ripd/protocol"
	"github.com/solred/ripd/state"
)

type HarnessEvent struct {
	Event RouterEvent
	Args  []any
}

// RouterHarness records the events emitted by the routing algorithm so tests
// can assert on them.
type RouterHarness struct {
	events []HarnessEvent
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	h.events = append(h.events, HarnessEvent{Event: event, Args: args})
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, ev := range h {
		cur := ev.Event.String()
		for _, arg := range ev.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

func (h *RouterHarness) GetEvents() HarnessEvents {
	x := HarnessEvents(h.events)
	h.events = nil
	return x
}

func (e HarnessEvents) contains(event RouterEvent, args ...any) bool {
	for _, ev := range e {
		if ev.Event != event || len(ev.Args) < len(args) {
			continue
		}
		match := true
		for i, arg := range args {
			if !cmp.Equal(ev.Args[i], arg) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, event RouterEvent, args ...any) {
	t.Helper()
	if e.contains(event, args...) {
		return
	}
	t.Fatal("Expected event not found: ", event, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, event RouterEvent, args ...any) {
	t.Helper()
	if e.contains(event, args...) {
		t.Fatal("Unexpected event found: ", event, " with args: ", args, " in ", e)
	}
}

// MakeRouterState builds an empty table for router id with the given
// neighbours configured at cost 1.
func MakeRouterState(id state.RouterId, neighbours ...state.RouterId) *state.RouterState {
	rs := &state.RouterState{
		Id:                   id,
		Routes:               make(map[state.RouterId]*state.RouteEntry),
		RouteTimeout:         180 * time.Second,
		GarbageTimeout:       120 * time.Second,
		StaleRefreshFraction: 0.5,
	}
	for i, n := range neighbours {
		rs.Neighbours = append(rs.Neighbours, state.Neighbour{
			Id:   n,
			Port: uint16(20000 + i),
			Cost: 1,
		})
	}
	return rs
}

func Advert(dest state.RouterId, metric uint32) protocol.Record {
	return protocol.Record{Dest: uint16(dest), Metric: metric}
}
