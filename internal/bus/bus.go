package bus

import (
	"fmt"

	"github.com/idtrace/idtrace/internal/domain"
)

// New creates an event bus from configuration. Channel suits a single
// node; NATS connects multiple nodes.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
