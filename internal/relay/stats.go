package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats tracks the interception counters. Both counters are lock-free
// and safe to increment from any number of concurrent pipeline threads.
// They start at zero, only ever grow, and are read as a point-in-time
// snapshot at shutdown.
type Stats struct {
	seen       atomic.Uint64
	dispatched atomic.Uint64

	seenTotal       prometheus.Counter
	dispatchedTotal prometheus.Counter

	registerer prometheus.Registerer
	mu         sync.Mutex
	registered bool
}

// StatsSnapshot is a point-in-time view of the interception counters.
type StatsSnapshot struct {
	MessagesSeen       uint64    `json:"messages_seen"`
	MessagesDispatched uint64    `json:"messages_dispatched"`
	CollectedAt        time.Time `json:"collected_at"`
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "meshrelay",
		Subsystem: "interceptor",
		Name:      name,
		Help:      help,
	})
}

// NewStats creates the counter pair. A nil registerer falls back to the
// Prometheus default registerer; collectors are not registered until
// Register is called.
func NewStats(registerer prometheus.Registerer) *Stats {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Stats{
		registerer:      registerer,
		seenTotal:       newCounter("messages_seen_total", "Total number of pipeline messages inspected by the interceptor"),
		dispatchedTotal: newCounter("messages_dispatched_total", "Total number of events relayed to the mesh sender"),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (s *Stats) Register() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registered {
		return nil
	}

	for _, c := range []prometheus.Collector{s.seenTotal, s.dispatchedTotal} {
		if err := s.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	s.registered = true
	return nil
}

// RecordSeen counts one inspected message.
func (s *Stats) RecordSeen() {
	s.seen.Add(1)
	s.seenTotal.Inc()
}

// RecordDispatched counts one mesh dispatch attempt.
func (s *Stats) RecordDispatched() {
	s.dispatched.Add(1)
	s.dispatchedTotal.Inc()
}

// Seen returns the number of messages inspected so far.
func (s *Stats) Seen() uint64 { return s.seen.Load() }

// Dispatched returns the number of dispatch attempts so far.
func (s *Stats) Dispatched() uint64 { return s.dispatched.Load() }

// Snapshot returns a point-in-time view of both counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		MessagesSeen:       s.seen.Load(),
		MessagesDispatched: s.dispatched.Load(),
		CollectedAt:        time.Now().UTC(),
	}
}
