package notify

import (
	"context"

	"github.com/driftwatch/driftwatch/pkg/types"
)

// Notifier delivers a built notification to a chat channel. Implementations
// own formatting and transport; the core never constructs transport payloads.
type Notifier interface {
	Emit(ctx context.Context, n *types.Notification) error
}
