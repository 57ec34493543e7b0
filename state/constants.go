package state

import (
	"time"

	"github.com/solred/ripd/protocol"
)

// Infinity is the metric at which a destination is unreachable.
const Infinity = protocol.Infinity

const (
	MinRouterId = 1
	MaxRouterId = 64000
	MinPort     = 1024
	MaxPort     = 64000
	MinLinkCost = 1
	MaxLinkCost = 15
)

var (
	DefaultPeriodicInterval = 30 * time.Second
	DefaultRouteTimeout     = 180 * time.Second
	DefaultGarbageTimeout   = 120 * time.Second

	// PollInterval bounds how long the loop may go without running the
	// timeout and garbage sweeps.
	PollInterval = 100 * time.Millisecond

	// PeriodicJitterFraction desynchronizes periodic broadcasts across
	// routers, +-10% of the interval.
	PeriodicJitterFraction = 0.1

	// TriggeredSpacingDivisor derives the minimum spacing between triggered
	// broadcasts from the periodic interval. Must stay above 1 so triggered
	// updates can never be starved down to the periodic rate.
	TriggeredSpacingDivisor = 6

	// DefaultStaleRefreshFraction is the share of the route timeout after
	// which an equal-metric advertisement from a different neighbour may take
	// over a route. A local anti-flapping policy, not a protocol requirement.
	DefaultStaleRefreshFraction = 0.5

	// WarnSuppressTTL rate-limits repeated warnings about the same source.
	WarnSuppressTTL = 30 * time.Second
)
