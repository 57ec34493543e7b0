package state

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/goccy/go-yaml"
)

// NeighbourCfg describes one directly connected peer: the loopback port its
// router listens on, the cost of the link, and its router id.
type NeighbourCfg struct {
	Port uint16   `yaml:"port"`
	Cost uint32   `yaml:"cost"`
	Id   RouterId `yaml:"id"`
}

// Config is the per-router configuration file.
type Config struct {
	Id         RouterId       `yaml:"router_id"`
	InputPorts []uint16       `yaml:"input_ports"`
	Neighbours []NeighbourCfg `yaml:"neighbours"`

	PeriodicInterval time.Duration `yaml:"periodic_interval,omitempty"`
	RouteTimeout     time.Duration `yaml:"route_timeout,omitempty"`
	GarbageTimeout   time.Duration `yaml:"garbage_timeout,omitempty"`

	// StaleRefreshFraction overrides the equal-metric takeover policy, see
	// DefaultStaleRefreshFraction.
	StaleRefreshFraction float64 `yaml:"stale_refresh_fraction,omitempty"`

	LogPath     string `yaml:"log_path,omitempty"`
	MetricsBind string `yaml:"metrics_bind,omitempty"`
}

func ReadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.PeriodicInterval == 0 {
		c.PeriodicInterval = DefaultPeriodicInterval
	}
	if c.RouteTimeout == 0 {
		c.RouteTimeout = DefaultRouteTimeout
	}
	if c.GarbageTimeout == 0 {
		c.GarbageTimeout = DefaultGarbageTimeout
	}
	if c.StaleRefreshFraction == 0 {
		c.StaleRefreshFraction = DefaultStaleRefreshFraction
	}
}

func (c *Config) GetNeighbour(id RouterId) *NeighbourCfg {
	nIdx := slices.IndexFunc(c.Neighbours, func(n NeighbourCfg) bool {
		return n.Id == id
	})
	if nIdx == -1 {
		return nil
	}
	return &c.Neighbours[nIdx]
}

func portValidator(port uint16) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("port %d outside %d..%d", port, MinPort, MaxPort)
	}
	return nil
}

func routerIdValidator(id RouterId) error {
	if id < MinRouterId || RouterId(MaxRouterId) < id {
		return fmt.Errorf("router id %d outside %d..%d", id, MinRouterId, MaxRouterId)
	}
	return nil
}

func ConfigValidator(cfg *Config) error {
	if err := routerIdValidator(cfg.Id); err != nil {
		return err
	}
	if len(cfg.InputPorts) == 0 {
		return fmt.Errorf("no input ports configured")
	}
	seen := make(map[uint16]struct{})
	for _, port := range cfg.InputPorts {
		if err := portValidator(port); err != nil {
			return fmt.Errorf("input port: %w", err)
		}
		if _, dup := seen[port]; dup {
			return fmt.Errorf("duplicate input port %d", port)
		}
		seen[port] = struct{}{}
	}
	if len(cfg.Neighbours) == 0 {
		return fmt.Errorf("no neighbours configured")
	}
	seenIds := make(map[RouterId]struct{})
	for _, n := range cfg.Neighbours {
		if err := routerIdValidator(n.Id); err != nil {
			return fmt.Errorf("neighbour: %w", err)
		}
		if n.Id == cfg.Id {
			return fmt.Errorf("neighbour %d has our own router id", n.Id)
		}
		if _, dup := seenIds[n.Id]; dup {
			return fmt.Errorf("duplicate neighbour id %d", n.Id)
		}
		seenIds[n.Id] = struct{}{}
		if err := portValidator(n.Port); err != nil {
			return fmt.Errorf("neighbour %d: %w", n.Id, err)
		}
		if _, overlap := seen[n.Port]; overlap {
			return fmt.Errorf("neighbour %d port %d is also an input port", n.Id, n.Port)
		}
		if n.Cost < MinLinkCost || n.Cost > MaxLinkCost {
			return fmt.Errorf("neighbour %d cost %d outside %d..%d", n.Id, n.Cost, MinLinkCost, MaxLinkCost)
		}
	}
	if cfg.RouteTimeout <= 0 || cfg.GarbageTimeout <= 0 || cfg.PeriodicInterval <= 0 {
		return fmt.Errorf("timers must be positive")
	}
	if TriggeredSpacingDivisor <= 1 {
		return fmt.Errorf("triggered spacing must be strictly below the periodic interval")
	}
	if cfg.StaleRefreshFraction < 0 || cfg.StaleRefreshFraction > 1 {
		return fmt.Errorf("stale_refresh_fraction %v outside 0..1", cfg.StaleRefreshFraction)
	}
	return nil
}
