package offline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ConnectivityMonitor polls a ConnectivityChecker and publishes
// EventConnectivityChanged on every transition.
type ConnectivityMonitor struct {
	checker  ConnectivityChecker
	bus      *Bus
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	online atomic.Bool
}

func NewConnectivityMonitor(checker ConnectivityChecker, bus *Bus, interval, timeout time.Duration, logger zerolog.Logger) *ConnectivityMonitor {
	return &ConnectivityMonitor{
		checker:  checker,
		bus:      bus,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With().Str("component", "connectivity").Logger(),
	}
}

// Online reports the last observed state.
func (m *ConnectivityMonitor) Online() bool { return m.online.Load() }

// Probe checks connectivity synchronously and records the result without
// publishing. Used to seed state before the driver starts.
func (m *ConnectivityMonitor) Probe(ctx context.Context) bool {
	online := m.check(ctx)
	m.online.Store(online)
	return online
}

// Set records a state and publishes when it differs from the previous one.
func (m *ConnectivityMonitor) Set(online bool) {
	if m.online.Swap(online) == online {
		return
	}
	m.logger.Info().Bool("online", online).Msg("connectivity changed")
	m.bus.Publish(Event{Kind: EventConnectivityChanged, Online: online})
}

// Run polls until ctx is cancelled.
func (m *ConnectivityMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Set(m.check(ctx))
		}
	}
}

func (m *ConnectivityMonitor) check(ctx context.Context) bool {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	if err := m.checker.Check(ctx); err != nil {
		m.logger.Debug().Err(err).Msg("connectivity probe failed")
		return false
	}
	return true
}
