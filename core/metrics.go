package core

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solred/ripd/state"
)

var (
	packetsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripd_packets_received_total",
		Help: "datagrams successfully decoded",
	})
	packetsMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripd_packets_malformed_total",
		Help: "datagrams dropped at the decode boundary",
	})
	packetsIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripd_packets_ignored_total",
		Help: "decoded datagrams ignored (requests, unknown neighbours)",
	})
	routeChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripd_route_changes_total",
		Help: "table entries created, updated, condemned or purged",
	})
	periodicBroadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripd_periodic_broadcasts_total",
		Help: "full periodic broadcasts sent",
	})
	triggeredBroadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripd_triggered_broadcasts_total",
		Help: "triggered broadcasts sent",
	})
	routeCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ripd_routes",
		Help: "current routing table size",
	})
)

// Metrics optionally exposes the prometheus registry over HTTP when
// metrics_bind is configured.
type Metrics struct {
	srv *http.Server
}

func (m *Metrics) Init(s *state.State) error {
	if s.Cfg.MetricsBind == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	m.srv = &http.Server{Addr: s.Cfg.MetricsBind, Handler: mux}
	s.Log.Info("serving metrics", "bind", s.Cfg.MetricsBind)
	go func() {
		if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Log.Warn("metrics server stopped", "err", err)
		}
	}()
	return nil
}

func (m *Metrics) Cleanup(s *state.State) error {
	if m.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return m.srv.Shutdown(ctx)
}
