package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/supervisor/internal/api/models"
	"github.com/smazurov/supervisor/internal/events"
)

// registerSSERoutes registers the supervision event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "A snapshot of every process, followed by live state changes, budget exhaustion and config reloads",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"processes":        models.ProcessListData{},
		"process-state":    events.ProcessStateChangedEvent{},
		"budget-exhausted": events.BudgetExhaustedEvent{},
		"config-reloaded":  events.ConfigReloadedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 64)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.ProcessStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.BudgetExhaustedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ConfigReloadedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Subscribed before the snapshot so no transition falls in between.
		if err := send.Data(processList(s.sup.Processes())); err != nil {
			return
		}

		forward(ctx, eventCh, send)
	})
}

func forward(ctx context.Context, eventCh <-chan any, send sse.Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eventCh:
			if err := send.Data(event); err != nil {
				return
			}
		}
	}
}
