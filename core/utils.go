package core

import (
	"reflect"

	"github.com/solred/ripd/state"
)

// AddMetric clamps metric addition at Infinity, bounding count-to-infinity.
func AddMetric(a, b uint32) uint32 {
	return min(a+b, state.Infinity)
}

func Get[T state.Module](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}
