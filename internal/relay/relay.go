package relay

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	configpkg "github.com/tacmesh/meshrelay/internal/relay/config"
	errspkg "github.com/tacmesh/meshrelay/internal/relay/errors"
	loggingpkg "github.com/tacmesh/meshrelay/internal/relay/logging"
	transportpkg "github.com/tacmesh/meshrelay/internal/relay/transport"
)

// Dependencies holds the optional collaborators that a Relay can use.
// Leave fields nil to get the built-in implementations.
type Dependencies struct {
	// Dispatcher overrides the process-spawning dispatcher.
	Dispatcher Dispatcher
	// Stats overrides the counter pair (shared counters, tests).
	Stats *Stats
	// Registerer receives the Prometheus collectors when metrics are
	// enabled. Nil falls back to the default registerer.
	Registerer prometheus.Registerer
	// TransportFactory overrides how the pipeline transport is built.
	TransportFactory transportpkg.Factory
	// Middlewares are registered on the router after the interceptor.
	Middlewares []message.HandlerMiddleware
}

// Relay hosts the interceptor inside a Watermill router: it subscribes
// to the configured consume topic, mounts the interception middleware,
// and optionally forwards every message unchanged to a forward topic.
// Construction reads the immutable Config once; Shutdown reports the
// counters.
type Relay struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	stats       *Stats
	interceptor *Interceptor

	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router

	httpServers map[int]*http.ServeMux
}

// New constructs a Relay for the supplied configuration. The returned
// Relay is fully initialised: call Run to drive the router and Shutdown
// to stop it and collect the counters.
func New(ctx context.Context, conf *configpkg.Config, log loggingpkg.ServiceLogger, deps Dependencies) (*Relay, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if conf.ConsumeTopic == "" {
		return nil, errspkg.ErrConsumeTopicRequired
	}

	log.Info("Starting mesh relay", loggingpkg.LogFields{
		"interface": conf.Interface,
		"port":      conf.Port,
		"enabled":   conf.Enabled,
	})

	stats := deps.Stats
	if stats == nil {
		stats = NewStats(deps.Registerer)
	}

	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = NewProcessDispatcher(conf, log)
	}

	r := &Relay{
		Conf:        conf,
		Logger:      log,
		stats:       stats,
		interceptor: NewInterceptor(conf, log, stats, dispatcher),
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	transport, err := factory.Build(ctx, conf, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("build transport: %w", err)
	}
	r.publisher = transport.Publisher
	r.subscriber = transport.Subscriber

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	r.router = router

	router.AddMiddleware(r.interceptor.Middleware())
	for _, mw := range deps.Middlewares {
		router.AddMiddleware(mw)
	}
	router.AddMiddleware(middleware.Recoverer)

	r.addPipelineHandler()

	if conf.MetricsEnabled {
		if err := stats.Register(); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		if conf.MetricsPort > 0 {
			r.registerHTTPHandler(conf.MetricsPort, "/metrics", promhttp.Handler())
		}
	}

	return r, nil
}

// addPipelineHandler wires the normal delivery path. With a forward
// topic configured every consumed message is re-published unchanged;
// otherwise the relay only observes the stream.
func (r *Relay) addPipelineHandler() {
	if r.Conf.ForwardTopic != "" {
		r.router.AddHandler(
			"mesh_relay_forwarder",
			r.Conf.ConsumeTopic,
			r.subscriber,
			r.Conf.ForwardTopic,
			r.publisher,
			func(msg *message.Message) ([]*message.Message, error) {
				out := message.NewMessage(msg.UUID, msg.Payload)
				out.Metadata = msg.Metadata
				return []*message.Message{out}, nil
			},
		)
		return
	}

	r.router.AddNoPublisherHandler(
		"mesh_relay_observer",
		r.Conf.ConsumeTopic,
		r.subscriber,
		func(msg *message.Message) error { return nil },
	)
}

// Intercept exposes the per-message entry point for hosts that embed
// the relay in their own pipeline instead of running the router.
func (r *Relay) Intercept(msg *message.Message) *message.Message {
	return r.interceptor.Intercept(msg)
}

// Middleware exposes the interception middleware for mounting on an
// external Watermill router.
func (r *Relay) Middleware() message.HandlerMiddleware {
	return r.interceptor.Middleware()
}

// Running is closed once the router is up and the consume topic is
// subscribed.
func (r *Relay) Running() <-chan struct{} {
	return r.router.Running()
}

// Run starts the metrics endpoint, if any, and drives the router until
// the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	r.startHTTPServers()
	return r.router.Run(ctx)
}

// Stats returns a point-in-time view of the interception counters.
func (r *Relay) Stats() StatsSnapshot {
	return r.stats.Snapshot()
}

// Shutdown closes the router, logs both counters, and returns their
// final snapshot.
func (r *Relay) Shutdown() StatsSnapshot {
	if err := r.router.Close(); err != nil {
		r.Logger.Error("failed to close router", err, nil)
	}

	snapshot := r.stats.Snapshot()
	r.Logger.Info("Mesh relay stopping", loggingpkg.LogFields{
		"messages_seen":       snapshot.MessagesSeen,
		"messages_dispatched": snapshot.MessagesDispatched,
	})
	return snapshot
}

func (r *Relay) registerHTTPHandler(port int, pattern string, handler http.Handler) {
	if r.httpServers == nil {
		r.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := r.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		r.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (r *Relay) startHTTPServers() {
	for port, mux := range r.httpServers {
		addr := fmt.Sprintf(":%d", port)
		r.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": addr})
		go func(addr string, handler http.Handler) {
			if err := http.ListenAndServe(addr, handler); err != nil {
				r.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": addr})
			}
		}(addr, mux)
	}
}
