package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/examai/pipeline-console/internal/api"
)

// Reconciler runs one refresh cycle: both collections and, when a run is
// selected, that run's detail. The two halves touch disjoint parts of the
// snapshot and are applied as each completes.
type Reconciler struct {
	Store   *Store
	Backend Backend
	Details DetailFetcher
	Log     zerolog.Logger
}

// Result summarizes one cycle.
type Result struct {
	ListsApplied  bool
	DetailID      int64
	DetailApplied bool
}

func (r *Reconciler) Refresh(ctx context.Context) (Result, error) {
	snap := r.Store.Snapshot()
	var (
		res       Result
		listErr   error
		detailErr error
		wg        sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		datasets, runs, err := r.fetchLists(ctx)
		if err != nil {
			listErr = err
			return
		}
		r.Store.ApplyLists(datasets, runs)
		res.ListsApplied = true
	}()

	// The id is captured now; a result for a since-replaced selection is
	// dropped by ApplyDetail.
	if id := snap.SelectedRunID(); snap.HasSelection() {
		res.DetailID = id
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := r.Details.Fetch(ctx, id)
			if err != nil {
				detailErr = fmt.Errorf("run %d detail: %w", id, err)
				return
			}
			res.DetailApplied = r.Store.ApplyDetail(id, d.Run, d.LogTail)
			if !res.DetailApplied {
				r.Log.Debug().Int64("run_id", id).Msg("discarded stale run detail")
			}
		}()
	}

	wg.Wait()
	return res, errors.Join(listErr, detailErr)
}

// fetchLists reads both collections concurrently. Either failing fails the
// pair so the store never mixes a fresh list with a stale one.
func (r *Reconciler) fetchLists(ctx context.Context) ([]api.Dataset, []api.Run, error) {
	var (
		datasets []api.Dataset
		runs     []api.Run
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := r.Backend.ListDatasets(gctx)
		if err != nil {
			return fmt.Errorf("list datasets: %w", err)
		}
		datasets = out
		return nil
	})
	g.Go(func() error {
		out, err := r.Backend.ListRuns(gctx)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		runs = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return datasets, runs, nil
}
