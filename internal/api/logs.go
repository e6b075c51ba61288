package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/supervisor/internal/api/models"
	"github.com/smazurov/supervisor/internal/events"
	"github.com/smazurov/supervisor/internal/logging"
)

func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Get the most recent entries from the in-memory log buffer",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, input *models.LogsRequest) (*models.LogsResponse, error) {
		entries := logging.GetBuffer().Tail(input.Limit)
		data := models.LogsData{
			Entries: make([]models.LogEntryData, 0, len(entries)),
			Count:   len(entries),
		}
		for _, e := range entries {
			data.Entries = append(data.Entries, models.LogEntryData{
				Timestamp:  e.Timestamp,
				Level:      e.Level,
				Module:     e.Module,
				Message:    e.Message,
				Attributes: e.Attributes,
			})
		}
		return &models.LogsResponse{Body: data}, nil
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends buffered logs first, then new ones.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		for _, entry := range logging.GetBuffer().ReadAll() {
			if err := send.Data(LogEvent(entry)); err != nil {
				return
			}
		}

		forward(ctx, eventCh, send)
	})
}

// LogEvent converts a buffered log entry into its bus event.
func LogEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}
