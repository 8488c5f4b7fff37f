package transport

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tacmesh/meshrelay/internal/relay/config"
)

// Transport combines the publisher and subscriber pair the relay uses
// to join the host pipeline.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Factory abstracts how the relay initialises its pipeline transport.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)
}

// DefaultFactory returns the built-in factory selecting the transport
// from Config.PubSubSystem.
func DefaultFactory() Factory {
	return defaultFactory{}
}

type defaultFactory struct{}

func (defaultFactory) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	if conf == nil {
		return Transport{}, fmt.Errorf("config is required")
	}

	switch conf.PubSubSystem {
	case "", "channel":
		return channelTransport(conf, logger)
	case "kafka":
		return kafkaTransport(conf, logger)
	case "nats":
		return natsTransport(conf, logger)
	case "rabbitmq":
		return rabbitTransport(conf, logger)
	case "http":
		return httpTransport(conf, logger)
	default:
		return Transport{}, fmt.Errorf("unknown pubsub system: %q", conf.PubSubSystem)
	}
}
