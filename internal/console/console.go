package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/examai/pipeline-console/internal/api"
)

const DefaultModelType = "baseline_sklearn"

// ErrInvalidInput is returned for mutations missing required fields.
var ErrInvalidInput = errors.New("invalid input")

// DefaultDatasetMeta is attached to datasets created without meta.
func DefaultDatasetMeta() map[string]any {
	return map[string]any{"note": "created from console"}
}

type Options struct {
	Backend      Backend
	PollInterval time.Duration
	LogLines     int
	ModelType    string
	InitialTab   Tab
	Logger       zerolog.Logger
}

// Console ties the store, the reconciliation loop, selection and the two
// mutation workflows together. All methods are safe for concurrent use.
type Console struct {
	store     *Store
	backend   Backend
	details   DetailFetcher
	rec       *Reconciler
	loop      *Loop
	modelType string
	log       zerolog.Logger
}

func New(opts Options) *Console {
	modelType := strings.TrimSpace(opts.ModelType)
	if modelType == "" {
		modelType = DefaultModelType
	}
	store := NewStore(opts.InitialTab)
	details := DetailFetcher{Backend: opts.Backend, LogLines: opts.LogLines, Log: opts.Logger}
	rec := &Reconciler{Store: store, Backend: opts.Backend, Details: details, Log: opts.Logger}
	return &Console{
		store:     store,
		backend:   opts.Backend,
		details:   details,
		rec:       rec,
		loop:      &Loop{Reconciler: rec, Interval: opts.PollInterval, Log: opts.Logger},
		modelType: modelType,
		log:       opts.Logger,
	}
}

func (c *Console) Snapshot() Snapshot { return c.store.Snapshot() }

func (c *Console) Subscribe() (<-chan Snapshot, func()) { return c.store.Subscribe() }

func (c *Console) ModelType() string { return c.modelType }

// Run polls until ctx is done.
func (c *Console) Run(ctx context.Context) error { return c.loop.Run(ctx) }

// Refresh runs one reconciliation cycle outside the timer.
func (c *Console) Refresh(ctx context.Context) error {
	_, err := c.rec.Refresh(ctx)
	return err
}

// SetTab switches the active tab. A change refreshes immediately and
// restarts the poll timer.
func (c *Console) SetTab(tab Tab) {
	if c.store.SetTab(tab) {
		c.loop.Reschedule(true)
	}
}

// SelectRun selects id and fetches its detail right away. Selecting from the
// dashboard also moves to the runs tab.
func (c *Console) SelectRun(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: run id must be positive", ErrInvalidInput)
	}
	if c.store.Select(id) {
		c.loop.Reschedule(false)
	}
	if c.store.Snapshot().Tab == TabDashboard {
		c.SetTab(TabRuns)
	}
	d, err := c.details.Fetch(ctx, id)
	if err != nil {
		return err
	}
	c.store.ApplyDetail(id, d.Run, d.LogTail)
	return nil
}

// CreateDataset registers a dataset, refreshes and shows the datasets tab.
// Only the create call can fail the workflow.
func (c *Console) CreateDataset(ctx context.Context, name, sourcePath string, meta map[string]any) (*api.Dataset, error) {
	name = strings.TrimSpace(name)
	sourcePath = strings.TrimSpace(sourcePath)
	if name == "" || sourcePath == "" {
		return nil, fmt.Errorf("%w: name and source_path are required", ErrInvalidInput)
	}
	if meta == nil {
		meta = DefaultDatasetMeta()
	}
	ds, err := c.backend.CreateDataset(ctx, api.CreateDatasetRequest{Name: name, SourcePath: sourcePath, Meta: meta})
	if err != nil {
		return nil, fmt.Errorf("create dataset: %w", err)
	}
	c.forceRefresh(ctx)
	if c.store.SetTab(TabDatasets) {
		c.loop.Reschedule(false)
	}
	return ds, nil
}

// CreateRun starts a run with the default model type.
func (c *Console) CreateRun(ctx context.Context, datasetID int64) (*api.Run, error) {
	return c.CreateRunWithModel(ctx, datasetID, "")
}

// CreateRunWithModel starts a run, selects it, shows the runs tab and
// refreshes. The refresh fetches the new run's detail.
func (c *Console) CreateRunWithModel(ctx context.Context, datasetID int64, modelType string) (*api.Run, error) {
	if datasetID <= 0 {
		return nil, fmt.Errorf("%w: dataset id must be positive", ErrInvalidInput)
	}
	modelType = strings.TrimSpace(modelType)
	if modelType == "" {
		modelType = c.modelType
	}
	run, err := c.backend.CreateRun(ctx, api.CreateRunRequest{DatasetID: datasetID, ModelType: modelType})
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	changed := c.store.Select(run.ID)
	changed = c.store.SetTab(TabRuns) || changed
	if changed {
		c.loop.Reschedule(false)
	}
	c.forceRefresh(ctx)
	return run, nil
}

func (c *Console) forceRefresh(ctx context.Context) {
	if _, err := c.rec.Refresh(ctx); err != nil {
		c.log.Warn().Str("component", "reconcile").Err(err).Msg("refresh after mutation failed")
	}
}
