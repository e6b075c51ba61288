package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/supervisor/internal/api/models"
	"github.com/smazurov/supervisor/pkg/supervisor"
)

func (s *Server) registerProcessRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-processes",
		Method:      http.MethodGet,
		Path:        "/api/processes",
		Summary:     "List Processes",
		Description: "Get every supervised process with its state and restart history",
		Tags:        []string{"processes"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ProcessListResponse, error) {
		return &models.ProcessListResponse{Body: processList(s.sup.Processes())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-process",
		Method:      http.MethodGet,
		Path:        "/api/processes/{name}",
		Summary:     "Get Process",
		Description: "Get a single supervised process",
		Tags:        []string{"processes"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.ProcessRequest) (*models.ProcessResponse, error) {
		info, ok := s.sup.Info(input.Name)
		if !ok {
			return nil, huma.Error404NotFound(fmt.Sprintf("Process %s does not exist", input.Name))
		}
		return &models.ProcessResponse{Body: toProcessData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-process",
		Method:      http.MethodPost,
		Path:        "/api/processes/{name}/stop",
		Summary:     "Stop Process",
		Description: "Stop a process permanently. It is not restarted and does not trigger a cascade. Stopping a stopped process is a no-op.",
		Tags:        []string{"processes"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409},
	}, func(_ context.Context, input *models.ProcessRequest) (*models.ProcessResponse, error) {
		if err := s.sup.StopProcess(input.Name); err != nil {
			return nil, mapSupervisorError(err)
		}
		info, ok := s.sup.Info(input.Name)
		if !ok {
			return nil, huma.Error404NotFound(fmt.Sprintf("Process %s does not exist", input.Name))
		}
		return &models.ProcessResponse{Body: toProcessData(info)}, nil
	})
}

func processList(infos []supervisor.Info) models.ProcessListData {
	data := models.ProcessListData{
		Processes: make([]models.ProcessData, 0, len(infos)),
		Count:     len(infos),
	}
	for _, info := range infos {
		data.Processes = append(data.Processes, toProcessData(info))
	}
	return data
}

func toProcessData(info supervisor.Info) models.ProcessData {
	deps := info.Dependencies
	if deps == nil {
		deps = []string{}
	}
	data := models.ProcessData{
		Name:           info.Name,
		State:          string(info.State),
		Policy:         string(info.Policy),
		Dependencies:   deps,
		Restarts:       info.Restarts,
		RecentRestarts: info.RecentRestarts,
		Incarnation:    info.Incarnation,
		InstanceID:     info.InstanceID,
		StartedAt:      info.StartedAt,
	}
	if info.LastError != nil {
		data.LastError = info.LastError.Error()
	}
	return data
}

// mapSupervisorError maps supervisor errors to HTTP errors.
func mapSupervisorError(err error) error {
	var supErr *supervisor.Error
	if !errors.As(err, &supErr) {
		return huma.Error500InternalServerError("internal server error", err)
	}
	switch supErr.Code {
	case supervisor.ErrCodeUnknownProcess:
		return huma.Error404NotFound(supErr.Message, err)
	case supervisor.ErrCodeDuplicateName, supervisor.ErrCodeShutdown:
		return huma.Error409Conflict(supErr.Message, err)
	case supervisor.ErrCodeCycleDetected, supervisor.ErrCodeInvalidConfig:
		return huma.Error422UnprocessableEntity(supErr.Message, err)
	default:
		return huma.Error500InternalServerError(supErr.Message, err)
	}
}
