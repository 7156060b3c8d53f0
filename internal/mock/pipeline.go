package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/examai/pipeline-console/internal/api"
	"github.com/examai/pipeline-console/internal/status"
)

// Advance moves every non-terminal run one transition forward and returns
// how many runs changed. The transitions are:
// queued -> running (first step running) -> next step ... -> success.
func (s *Server) Advance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for _, r := range s.runs {
		if status.IsTerminal(r.Status) {
			continue
		}
		s.advanceRun(r)
		changed++
	}
	return changed
}

func (s *Server) advanceRun(r *api.Run) {
	now := s.stamp()
	if r.Status == status.Queued {
		r.Status = status.Running
		r.StartedAt = now
		s.logf(r.ID, "run started")
	}
	for i := range r.Steps {
		st := &r.Steps[i]
		switch st.Status {
		case status.Success:
			continue
		case status.Queued:
			st.Status = status.Running
			st.StartedAt = now
			s.logf(r.ID, "step %s started", st.Name)
			return
		case status.Running:
			st.Status = status.Success
			st.FinishedAt = now
			s.logf(r.ID, "step %s finished", st.Name)
			if i == len(r.Steps)-1 {
				s.finish(r, now)
			}
			return
		}
	}
	s.finish(r, now)
}

func (s *Server) finish(r *api.Run, now api.Timestamp) {
	r.Status = status.Success
	r.FinishedAt = now
	// Deterministic per run so repeated polls see stable values.
	acc := 0.80 + float64(r.ID%10)/100
	r.Metrics = map[string]any{"accuracy": acc, "f1": acc - 0.03}
	r.Artifacts = map[string]any{"model_path": fmt.Sprintf("/artifacts/run_%d/model.joblib", r.ID)}
	s.logf(r.ID, "run finished: accuracy=%.3f", acc)
}

// Fail marks the current step of a run failed and the run failed with msg.
func (s *Server) Fail(runID int64, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findRun(runID)
	if r == nil {
		return ErrNotFound
	}
	now := s.stamp()
	for i := range r.Steps {
		st := &r.Steps[i]
		if st.Status == status.Running || st.Status == status.Queued {
			st.Status = status.Failed
			st.FinishedAt = now
			st.Message = msg
			break
		}
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = now
	}
	r.Status = status.Failed
	r.FinishedAt = now
	r.Error = msg
	s.logf(r.ID, "run failed: %s", msg)
	return nil
}

// Simulate calls Advance every interval until ctx is done.
func (s *Server) Simulate(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Advance()
		}
	}
}
