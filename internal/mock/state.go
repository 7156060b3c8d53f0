package mock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/examai/pipeline-console/internal/api"
)

// State is the on-disk form of a fake backend, so `dev serve --state` can
// keep datasets and runs across restarts.
type State struct {
	Datasets []api.Dataset      `json:"datasets"`
	Runs     []api.Run          `json:"runs"`
	Logs     map[int64][]string `json:"logs"`
	NextDS   int64              `json:"next_dataset_id"`
	NextRun  int64              `json:"next_run_id"`
	NextStep int64              `json:"next_step_id"`
}

// State copies the server contents.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Datasets: append([]api.Dataset(nil), s.datasets...),
		Runs:     make([]api.Run, 0, len(s.runs)),
		Logs:     make(map[int64][]string, len(s.logs)),
		NextDS:   s.nextDS,
		NextRun:  s.nextRun,
		NextStep: s.nextStep,
	}
	for _, r := range s.runs {
		st.Runs = append(st.Runs, cloneRun(r))
	}
	for id, lines := range s.logs {
		st.Logs[id] = append([]string(nil), lines...)
	}
	return st
}

// Restore replaces the server contents with st.
func (s *Server) Restore(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets = append([]api.Dataset(nil), st.Datasets...)
	s.runs = make([]*api.Run, 0, len(st.Runs))
	for i := range st.Runs {
		r := cloneRun(&st.Runs[i])
		s.runs = append(s.runs, &r)
	}
	s.logs = make(map[int64][]string, len(st.Logs))
	for id, lines := range st.Logs {
		s.logs[id] = append([]string(nil), lines...)
	}
	s.nextDS, s.nextRun, s.nextStep = st.NextDS, st.NextRun, st.NextStep
}

// LoadState reads a state file. A missing file yields an empty state.
func LoadState(path string) (State, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return st, nil
}

func SaveState(path string, st State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
