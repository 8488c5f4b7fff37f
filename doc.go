// Package meshrelay bridges a Watermill-based CoT (Cursor on Target)
// message pipeline to an external mesh radio transport such as a
// Meshtastic node. It inspects every message flowing through the host
// pipeline, detects the __meshtastic marker inside an event's detail
// payload, rebuilds a compact canonical XML form of the event, and hands
// that text to the configured sender process over stdin, without ever
// mutating or delaying the message's normal delivery path.
//
// The entry point for host pipelines is the Interceptor, available both
// as a plain Intercept(msg) call and as a message.HandlerMiddleware for
// mounting on a Watermill router. Relay wraps the interceptor in a full
// lifecycle: New reads an immutable Config, builds the pipeline
// transport (Kafka, RabbitMQ, NATS, HTTP, or in-memory Go channels),
// registers the middleware chain, Run drives the router, and Shutdown
// returns a point-in-time snapshot of the interception counters.
//
// # Dispatch contract
//
// Each marked event triggers exactly one invocation of the sender
// executable with --interface/--port (or --host for TCP) and --channel
// arguments. The canonical text is written to the sender's stdin, its
// combined stdout/stderr is drained line by line at debug level, and a
// non-zero exit is logged as a warning. Dispatch failures never reach
// the host pipeline; the only externally visible effects are log
// entries and the counters.
//
// # Counters
//
// Stats carries two lock-free monotonic counters, messages seen and
// messages dispatched, mirrored as Prometheus counters and optionally
// exposed on a /metrics endpoint.
package meshrelay
