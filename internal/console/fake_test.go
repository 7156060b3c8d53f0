package console

import (
	"context"
	"errors"
	"sync"

	"github.com/examai/pipeline-console/internal/api"
)

// fakeBackend is an in-process Backend with call accounting and hooks for
// interleaving tests.
type fakeBackend struct {
	mu       sync.Mutex
	datasets []api.Dataset
	runs     []api.Run
	details  map[int64]api.Run
	logs     map[int64]string

	listErr error
	logErr  error

	listCalls   int
	getRunCalls map[int64]int
	logCalls    map[int64]int
	logLines    []int

	// onGetRun runs inside GetRun before it returns.
	onGetRun func(id int64)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		datasets:    []api.Dataset{},
		runs:        []api.Run{},
		details:     map[int64]api.Run{},
		logs:        map[int64]string{},
		getRunCalls: map[int64]int{},
		logCalls:    map[int64]int{},
	}
}

func (f *fakeBackend) addRun(r api.Run, tail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := r
	list.Steps = nil
	f.runs = append([]api.Run{list}, f.runs...)
	if r.Steps == nil {
		r.Steps = []api.Step{}
	}
	f.details[r.ID] = r
	f.logs[r.ID] = tail
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeBackend) counts() (lists int, getRun map[int64]int, logs map[int64]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	getRun = map[int64]int{}
	for k, v := range f.getRunCalls {
		getRun[k] = v
	}
	logs = map[int64]int{}
	for k, v := range f.logCalls {
		logs[k] = v
	}
	return f.listCalls, getRun, logs
}

func (f *fakeBackend) ListDatasets(ctx context.Context) ([]api.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]api.Dataset{}, f.datasets...), nil
}

func (f *fakeBackend) ListRuns(ctx context.Context) ([]api.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]api.Run{}, f.runs...), nil
}

func (f *fakeBackend) GetRun(ctx context.Context, id int64) (*api.Run, error) {
	f.mu.Lock()
	f.getRunCalls[id]++
	r, ok := f.details[id]
	hook := f.onGetRun
	f.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	if !ok {
		return nil, &api.RequestError{Method: "GET", Path: "/runs", StatusCode: 404, Message: "run not found"}
	}
	return &r, nil
}

func (f *fakeBackend) GetRunLogs(ctx context.Context, id int64, maxLines int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logCalls[id]++
	f.logLines = append(f.logLines, maxLines)
	if f.logErr != nil {
		return "", f.logErr
	}
	return f.logs[id], nil
}

func (f *fakeBackend) CreateDataset(ctx context.Context, req api.CreateDatasetRequest) (*api.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds := api.Dataset{ID: int64(len(f.datasets) + 1), Name: req.Name, SourcePath: req.SourcePath, Meta: req.Meta}
	f.datasets = append([]api.Dataset{ds}, f.datasets...)
	return &ds, nil
}

func (f *fakeBackend) CreateRun(ctx context.Context, req api.CreateRunRequest) (*api.Run, error) {
	return nil, errors.New("not supported by fake")
}
