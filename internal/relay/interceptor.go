package relay

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	configpkg "github.com/tacmesh/meshrelay/internal/relay/config"
	"github.com/tacmesh/meshrelay/internal/relay/cot"
	loggingpkg "github.com/tacmesh/meshrelay/internal/relay/logging"
)

// Interceptor is the per-message entry point. It inspects every message
// flowing through the host pipeline and relays marked events to the
// mesh, returning the original message unchanged under every
// circumstance. No fault raised during inspection or dispatch may
// escape to the caller.
type Interceptor struct {
	conf       *configpkg.Config
	logger     loggingpkg.ServiceLogger
	stats      *Stats
	dispatcher Dispatcher
	tracer     trace.Tracer
}

// NewInterceptor wires the interceptor against its collaborators.
func NewInterceptor(conf *configpkg.Config, logger loggingpkg.ServiceLogger, stats *Stats, dispatcher Dispatcher) *Interceptor {
	return &Interceptor{
		conf:       conf,
		logger:     logger,
		stats:      stats,
		dispatcher: dispatcher,
		tracer:     otel.Tracer("meshrelay-interceptor"),
	}
}

// Intercept examines one pipeline message and returns it unmodified.
// When the interceptor is enabled it counts the message; when the
// message carries an event whose detail contains the mesh marker it
// additionally counts and performs exactly one dispatch attempt.
func (i *Interceptor) Intercept(msg *message.Message) *message.Message {
	if !i.conf.Enabled {
		return msg
	}

	i.stats.RecordSeen()
	i.relay(msg)

	return msg
}

// relay holds the fallible part of interception behind a recover
// boundary so nothing propagates past Intercept.
func (i *Interceptor) relay(msg *message.Message) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("panic while processing intercepted message",
				fmt.Errorf("%v", r),
				loggingpkg.LogFields{"message_uuid": msg.UUID})
		}
	}()

	event, err := cot.Decode(msg.Payload)
	if err != nil {
		// Not an event envelope; the message simply isn't relayable.
		i.logger.Debug("message payload carries no decodable event", loggingpkg.LogFields{
			"message_uuid": msg.UUID,
			"reason":       err.Error(),
		})
		return
	}
	if !event.WantsMeshRelay() {
		return
	}

	i.stats.RecordDispatched()

	text := cot.Encode(event)

	// The message itself stays untouched: the span context is not
	// written back onto it.
	_, span := i.tracer.Start(msg.Context(), "DispatchEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.uid", event.UID),
		attribute.String("event.type", event.Type),
		attribute.Int("event.encoded_bytes", len(text)),
	)

	i.dispatcher.Dispatch(text)

	i.logger.Debug("relayed event to mesh", loggingpkg.LogFields{
		"event_uid":        event.UID,
		"dispatched_total": i.stats.Dispatched(),
	})
}

// Middleware exposes the interceptor as a Watermill handler middleware.
// The wrapped handler always receives the untouched message.
func (i *Interceptor) Middleware() message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			return h(i.Intercept(msg))
		}
	}
}
