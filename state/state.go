package state

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Module is a unit of the daemon with a managed lifecycle.
type Module interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// State access must be done only on the main loop goroutine.
type State struct {
	*Env
	Modules map[string]Module
	*RouterState

	Started  atomic.Bool
	Stopping atomic.Bool
}

// Env can be read from any goroutine.
type Env struct {
	DispatchChannel chan<- func(s *State) error
	Cfg             Config
	Context         context.Context
	Cancel          context.CancelCauseFunc
	Log             *slog.Logger
}
