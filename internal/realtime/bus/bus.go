package bus

import (
	"context"

	"github.com/gatherhub/gatherhub-backend/internal/realtime"
)

// Bus fans notification feed messages out across service instances.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
