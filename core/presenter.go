package core

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/solred/ripd/state"
)

// Presenter renders the routing table for the operator after any mutating
// loop iteration. It performs no routing logic.
type Presenter struct {
	out io.Writer
}

func (p *Presenter) Init(s *state.State) error {
	p.out = os.Stdout
	return nil
}

func (p *Presenter) Cleanup(s *state.State) error {
	return nil
}

func (p *Presenter) Render(s *state.State, now time.Time) {
	fmt.Fprintf(p.out, "routing table for router %d\n", s.RouterState.Id)
	w := tabwriter.NewWriter(p.out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "dest\tnext hop\tmetric\tage\tstate")
	for _, dest := range s.RouterState.SortedDests() {
		e := s.RouterState.Routes[dest]
		metric := fmt.Sprint(e.Metric)
		if e.Metric == state.Infinity {
			metric = "inf"
		}
		phase := "active"
		age := now.Sub(e.LastHeard).Round(time.Second)
		if e.Condemned() {
			phase = "condemned"
			age = now.Sub(e.CondemnedAt).Round(time.Second)
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", e.Dest, e.NextHop, metric, age, phase)
	}
	_ = w.Flush()
}
