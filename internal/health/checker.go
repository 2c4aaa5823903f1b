// Package health runs the periodic liveness reconciler for the neighbour
// table.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"peermesh/pkg/logging"
)

const (
	// sweepProbeTimeout bounds each probe during the periodic sweep.
	sweepProbeTimeout = 10 * time.Second

	// immediateProbeTimeout bounds the probe fired when a peer registers.
	immediateProbeTimeout = 5 * time.Second

	// defaultPruneTTL applies when the config omits a neighbour TTL.
	defaultPruneTTL = 5 * time.Minute
)

// PeerState is the slice of the state manager the checker drives.
type PeerState interface {
	ListPeers() []string
	MarkHealthy(url string)
	MarkFailed(url string)
	Prune(ttl time.Duration) int
	Stats() map[string]int
}

// MetricsSink receives the neighbour table gauges after every sweep.
type MetricsSink interface {
	UpdatePeerCounts(known, healthy int)
}

// CheckerConfig configures a health Checker.
type CheckerConfig struct {
	SelfURL  string
	Interval time.Duration
	State    PeerState
	Metrics  MetricsSink
	Logger   logging.Logger

	// PruneTTL is how long an unseen neighbour survives before eviction.
	PruneTTL time.Duration

	// Client overrides the probe transport, used by tests.
	Client *http.Client
}

// Checker probes every known neighbour on a fixed cadence, reconciles the
// health flags and evicts peers that stay silent past the prune TTL.
type Checker struct {
	cfg    CheckerConfig
	client *http.Client

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewChecker builds a Checker. Start must be called to begin sweeping.
func NewChecker(cfg CheckerConfig) *Checker {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	if cfg.PruneTTL <= 0 {
		cfg.PruneTTL = defaultPruneTTL
	}
	return &Checker{
		cfg:    cfg,
		client: client,
		done:   make(chan struct{}),
	}
}

// Start launches the sweep loop. Sweeps never overlap; the next interval
// starts counting only after the previous sweep finishes.
func (c *Checker) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.done:
				return
			case <-time.After(c.cfg.Interval):
				c.checkAllPeers()
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for an in-flight sweep to finish.
func (c *Checker) Stop() {
	c.once.Do(func() { close(c.done) })
	c.wg.Wait()
}

// checkAllPeers snapshots the neighbour table, probes everyone but self in
// parallel, applies the results and prunes. No lock is held across probes.
func (c *Checker) checkAllPeers() {
	peers := c.cfg.State.ListPeers()

	var wg sync.WaitGroup
	for _, url := range peers {
		if url == c.cfg.SelfURL {
			continue
		}
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			if c.probe(url, sweepProbeTimeout) {
				c.cfg.State.MarkHealthy(url)
			} else {
				c.cfg.State.MarkFailed(url)
			}
		}(url)
	}
	wg.Wait()

	if pruned := c.cfg.State.Prune(c.cfg.PruneTTL); pruned > 0 {
		c.cfg.Logger.WithField("pruned", pruned).Info("Evicted silent peers")
	}

	if c.cfg.Metrics != nil {
		stats := c.cfg.State.Stats()
		c.cfg.Metrics.UpdatePeerCounts(stats["total_peers"], stats["healthy_peers"])
	}
}

// ProbeNow performs one immediate probe with the short timeout, used when a
// peer registers. The caller applies the result to the state manager.
func (c *Checker) ProbeNow(url string) bool {
	return c.probe(url, immediateProbeTimeout)
}

func (c *Checker) probe(url string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", url), nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.cfg.Logger.WithError(err).WithField("peer", url).Debug("Health probe failed")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
