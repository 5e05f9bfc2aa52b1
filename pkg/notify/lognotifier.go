package notify

import (
	"context"

	"github.com/driftwatch/driftwatch/pkg/log"
	"github.com/driftwatch/driftwatch/pkg/types"
)

// LogNotifier writes notifications to the structured log. Used when no
// webhook is configured.
type LogNotifier struct{}

// Emit implements Notifier
func (LogNotifier) Emit(_ context.Context, n *types.Notification) error {
	ev := log.WithComponent("notify").Info().
		Str("kind", string(n.Kind)).
		Str("domain", n.Domain).
		Str("color", string(n.Color))
	for _, f := range n.Fields {
		ev = ev.Str(f.Name, f.Value)
	}
	ev.Msg(n.Title)
	return nil
}
