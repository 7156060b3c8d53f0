package console

import (
	"context"

	"github.com/examai/pipeline-console/internal/api"
)

// Backend is the part of api.Client the console needs.
type Backend interface {
	ListDatasets(ctx context.Context) ([]api.Dataset, error)
	CreateDataset(ctx context.Context, req api.CreateDatasetRequest) (*api.Dataset, error)
	ListRuns(ctx context.Context) ([]api.Run, error)
	GetRun(ctx context.Context, id int64) (*api.Run, error)
	GetRunLogs(ctx context.Context, id int64, maxLines int) (string, error)
	CreateRun(ctx context.Context, req api.CreateRunRequest) (*api.Run, error)
}

var _ Backend = api.Client{}
