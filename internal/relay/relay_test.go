package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"

	configpkg "github.com/tacmesh/meshrelay/internal/relay/config"
	errspkg "github.com/tacmesh/meshrelay/internal/relay/errors"
	idspkg "github.com/tacmesh/meshrelay/internal/relay/ids"
	transportpkg "github.com/tacmesh/meshrelay/internal/relay/transport"
)

// pubSubFactory hands the relay a pre-built gochannel pub/sub so tests
// can publish into the pipeline and observe the forward topic.
type pubSubFactory struct {
	pubSub *gochannel.GoChannel
}

func (f *pubSubFactory) Build(context.Context, *configpkg.Config, watermill.LoggerAdapter) (transportpkg.Transport, error) {
	return transportpkg.Transport{Publisher: f.pubSub, Subscriber: f.pubSub}, nil
}

func relayTestConfig() *configpkg.Config {
	conf := configpkg.DefaultConfig()
	conf.PubSubSystem = "channel"
	conf.ConsumeTopic = "cot.events"
	conf.ForwardTopic = "cot.forward"
	return conf
}

func TestNewValidations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := &recordingServiceLogger{}

	t.Run("nil config", func(t *testing.T) {
		if _, err := New(ctx, nil, logger, Dependencies{}); !errors.Is(err, errspkg.ErrConfigRequired) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("nil logger", func(t *testing.T) {
		if _, err := New(ctx, relayTestConfig(), nil, Dependencies{}); !errors.Is(err, errspkg.ErrLoggerRequired) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("missing consume topic", func(t *testing.T) {
		conf := relayTestConfig()
		conf.ConsumeTopic = ""
		if _, err := New(ctx, conf, logger, Dependencies{}); !errors.Is(err, errspkg.ErrConsumeTopicRequired) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		conf := relayTestConfig()
		conf.Channel = 9
		if _, err := New(ctx, conf, logger, Dependencies{}); err == nil {
			t.Fatal("expected validation error")
		}
	})
}

func TestRelayEndToEnd(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	dispatcher := &fakeDispatcher{}
	logger := &recordingServiceLogger{}

	relay, err := New(ctx, relayTestConfig(), logger, Dependencies{
		Dispatcher:       dispatcher,
		Stats:            NewStats(prometheus.NewRegistry()),
		TransportFactory: &pubSubFactory{pubSub: pubSub},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	forwarded, err := pubSub.Subscribe(ctx, "cot.forward")
	if err != nil {
		t.Fatalf("subscribe forward topic: %v", err)
	}

	go func() {
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("router stopped", err, nil)
		}
	}()

	select {
	case <-relay.Running():
	case <-time.After(10 * time.Second):
		t.Fatal("router did not start")
	}

	payload := markedPayload()
	msg := message.NewMessage(idspkg.New(), payload)
	if err := pubSub.Publish("cot.events", msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case out := <-forwarded:
		out.Ack()
		if string(out.Payload) != string(payload) {
			t.Fatalf("forwarded payload altered: %q", out.Payload)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("message never reached the forward topic")
	}

	waitFor(t, func() bool { return len(dispatcher.dispatched()) == 1 })

	snapshot := relay.Stats()
	if snapshot.MessagesSeen != 1 || snapshot.MessagesDispatched != 1 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}

	cancel()
	final := relay.Shutdown()
	if final.MessagesSeen != 1 || final.MessagesDispatched != 1 {
		t.Fatalf("unexpected final snapshot: %+v", final)
	}
}

func TestRelayObserverModeWithoutForwardTopic(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	dispatcher := &fakeDispatcher{}

	conf := relayTestConfig()
	conf.ForwardTopic = ""

	relay, err := New(ctx, conf, &recordingServiceLogger{}, Dependencies{
		Dispatcher:       dispatcher,
		Stats:            NewStats(prometheus.NewRegistry()),
		TransportFactory: &pubSubFactory{pubSub: pubSub},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	go func() { _ = relay.Run(ctx) }()

	select {
	case <-relay.Running():
	case <-time.After(10 * time.Second):
		t.Fatal("router did not start")
	}

	msg := message.NewMessage(idspkg.New(), markedPayload())
	if err := pubSub.Publish("cot.events", msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, func() bool { return len(dispatcher.dispatched()) == 1 })

	cancel()
	relay.Shutdown()
}

func TestRelayShutdownLogsCounters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	logger := &recordingServiceLogger{}

	relay, err := New(ctx, relayTestConfig(), logger, Dependencies{
		Dispatcher:       &fakeDispatcher{},
		Stats:            NewStats(prometheus.NewRegistry()),
		TransportFactory: &pubSubFactory{pubSub: pubSub},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	relay.Shutdown()

	found := false
	for _, msg := range logger.infos {
		if msg == "Mesh relay stopping" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected shutdown log, got %v", logger.infos)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never met")
}
