// Package inbound registers files dropped into a directory as datasets and,
// optionally, starts a run for each one.
package inbound

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/examai/pipeline-console/internal/api"
)

const (
	DoneSuffix  = ".done"
	MetaSource  = "inbound_watcher"
	defaultType = "baseline_sklearn"
)

var (
	DefaultInclude      = []string{".csv", ".parquet", ".json"}
	DefaultIgnoreSuffix = []string{".tmp", ".partial"}

	// ErrNotReady means the file vanished, kept growing past the wait, or its
	// done marker is missing. The file is picked up again on its next event.
	ErrNotReady = errors.New("file not ready")
	// ErrAlreadySeen means the same content was registered before.
	ErrAlreadySeen = errors.New("already registered")
)

// Registrar is the subset of api.Client the watcher writes through.
type Registrar interface {
	CreateDataset(ctx context.Context, req api.CreateDatasetRequest) (*api.Dataset, error)
	CreateRun(ctx context.Context, req api.CreateRunRequest) (*api.Run, error)
}

type Options struct {
	Dir          string
	Include      []string
	IgnoreSuffix []string
	Debounce     time.Duration
	StableFor    time.Duration
	PollEvery    time.Duration
	UseDoneFile  bool
	AutoRun      bool
	ModelType    string
	Logger       zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Include == nil {
		o.Include = DefaultInclude
	}
	if o.IgnoreSuffix == nil {
		o.IgnoreSuffix = DefaultIgnoreSuffix
	}
	if o.Debounce <= 0 {
		o.Debounce = 2 * time.Second
	}
	if o.StableFor < 0 {
		o.StableFor = 0
	}
	if o.PollEvery <= 0 {
		o.PollEvery = time.Second
	}
	if strings.TrimSpace(o.ModelType) == "" {
		o.ModelType = defaultType
	}
	return o
}

// Result describes one registered file.
type Result struct {
	Path    string
	Dataset *api.Dataset
	Run     *api.Run
	SHA256  string
}

type Watcher struct {
	opts Options
	reg  Registrar
	log  zerolog.Logger

	mu       sync.Mutex
	pending  map[string]time.Time
	inflight map[string]bool
	seen     map[string]string

	// OnResult, when set, is called after each file is registered.
	OnResult func(Result)
}

func New(reg Registrar, opts Options) (*Watcher, error) {
	if reg == nil {
		return nil, errors.New("missing registrar")
	}
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("missing watch dir")
	}
	opts = opts.withDefaults()
	return &Watcher{
		opts:     opts,
		reg:      reg,
		log:      opts.Logger.With().Str("component", "inbound").Logger(),
		pending:  map[string]time.Time{},
		inflight: map[string]bool{},
		seen:     map[string]string{},
	}, nil
}

// IsCandidate reports whether path names a file the watcher would register.
func (w *Watcher) IsCandidate(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, DoneSuffix) {
		return false
	}
	for _, s := range w.opts.IgnoreSuffix {
		if s != "" && strings.HasSuffix(name, strings.ToLower(s)) {
			return false
		}
	}
	if len(w.opts.Include) == 0 {
		return true
	}
	ext := filepath.Ext(name)
	for _, inc := range w.opts.Include {
		if strings.EqualFold(ext, strings.TrimSpace(inc)) {
			return true
		}
	}
	return false
}

// Run watches the directory until ctx is done. Per-file failures are logged.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.opts.Dir, err)
	}
	w.log.Info().
		Str("dir", w.opts.Dir).
		Bool("auto_run", w.opts.AutoRun).
		Bool("done_file", w.opts.UseDoneFile).
		Strs("include", w.opts.Include).
		Msg("watching")

	sweep := w.opts.Debounce / 2
	if sweep > time.Second {
		sweep = time.Second
	}
	if sweep <= 0 {
		sweep = 10 * time.Millisecond
	}
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename) {
				w.mark(ev.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watch error")
		case now := <-ticker.C:
			for _, path := range w.due(now) {
				wg.Add(1)
				go func(path string) {
					defer wg.Done()
					defer w.finish(path)
					res, err := w.Process(ctx, path)
					switch {
					case err == nil:
						if w.OnResult != nil {
							w.OnResult(res)
						}
					case errors.Is(err, ErrAlreadySeen), errors.Is(err, ErrNotReady):
						w.log.Debug().Str("path", path).Err(err).Msg("skipped")
					case ctx.Err() == nil:
						w.log.Error().Str("path", path).Err(err).Msg("register failed")
					}
				}(path)
			}
		}
	}
}

func (w *Watcher) mark(path string) {
	// A done marker re-arms the file it belongs to.
	if w.opts.UseDoneFile && strings.HasSuffix(strings.ToLower(path), DoneSuffix) {
		path = path[:len(path)-len(DoneSuffix)]
	}
	if !w.IsCandidate(path) {
		return
	}
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// due pops the paths whose last event is older than the debounce window.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for path, at := range w.pending {
		if now.Sub(at) < w.opts.Debounce || w.inflight[path] {
			continue
		}
		delete(w.pending, path)
		w.inflight[path] = true
		out = append(out, path)
	}
	return out
}

func (w *Watcher) finish(path string) {
	w.mu.Lock()
	delete(w.inflight, path)
	w.mu.Unlock()
}

// Process registers one file: done marker, size stability, checksum, then
// the dataset and optionally a run.
func (w *Watcher) Process(ctx context.Context, path string) (Result, error) {
	if w.opts.UseDoneFile {
		if _, err := os.Stat(path + DoneSuffix); err != nil {
			return Result{}, fmt.Errorf("%w: waiting for %s", ErrNotReady, filepath.Base(path)+DoneSuffix)
		}
	}
	info, err := waitStable(ctx, path, w.opts.StableFor, w.opts.PollEvery)
	if err != nil {
		return Result{}, err
	}
	sum, err := fileSHA256(path)
	if err != nil {
		return Result{}, fmt.Errorf("checksum: %w", err)
	}

	w.mu.Lock()
	prev := w.seen[path]
	w.mu.Unlock()
	if prev == sum {
		return Result{}, ErrAlreadySeen
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	req := api.CreateDatasetRequest{
		Name:       name,
		SourcePath: path,
		Meta: map[string]any{
			"source":     MetaSource,
			"file_name":  filepath.Base(path),
			"size_bytes": info.Size(),
			"mtime":      info.ModTime().Unix(),
			"sha256":     sum,
		},
	}
	ds, err := w.reg.CreateDataset(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("create dataset: %w", err)
	}
	w.mu.Lock()
	w.seen[path] = sum
	w.mu.Unlock()
	w.log.Info().Int64("dataset_id", ds.ID).Str("path", path).Msg("dataset created")

	res := Result{Path: path, Dataset: ds, SHA256: sum}
	if !w.opts.AutoRun {
		return res, nil
	}
	run, err := w.reg.CreateRun(ctx, api.CreateRunRequest{DatasetID: ds.ID, ModelType: w.opts.ModelType})
	if err != nil {
		return res, fmt.Errorf("create run for dataset %d: %w", ds.ID, err)
	}
	w.log.Info().Int64("run_id", run.ID).Int64("dataset_id", ds.ID).Msg("run enqueued")
	res.Run = run
	return res, nil
}

// waitStable returns once the size of path has not changed for stableFor.
func waitStable(ctx context.Context, path string, stableFor, poll time.Duration) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	last := info.Size()
	var steady time.Duration
	t := time.NewTicker(poll)
	defer t.Stop()
	for steady < stableFor {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
		info, err = os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
		}
		if info.Size() == last {
			steady += poll
			continue
		}
		last = info.Size()
		steady = 0
	}
	return info, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
