// Package console keeps a local picture of the pipeline backend in sync by
// polling. A Store holds the single snapshot every view reads; it changes
// only through the named transitions below.
package console

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/examai/pipeline-console/internal/api"
)

type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabDatasets  Tab = "datasets"
	TabRuns      Tab = "runs"
)

func ParseTab(s string) (Tab, error) {
	switch Tab(strings.ToLower(strings.TrimSpace(s))) {
	case TabDashboard:
		return TabDashboard, nil
	case TabDatasets:
		return TabDatasets, nil
	case TabRuns:
		return TabRuns, nil
	default:
		return "", fmt.Errorf("unknown tab %q", s)
	}
}

// Snapshot is an immutable view of local state. Slices and maps are shared
// between snapshots and must not be modified by readers.
type Snapshot struct {
	Tab        Tab           `json:"tab"`
	SelectedID *int64        `json:"selected_id"`
	Datasets   []api.Dataset `json:"datasets"`
	Runs       []api.Run     `json:"runs"`
	Selected   *api.Run      `json:"selected"`
	LogTail    string        `json:"log_tail"`
}

func (s Snapshot) HasSelection() bool { return s.SelectedID != nil }

// SelectedRunID returns the selected id, or 0.
func (s Snapshot) SelectedRunID() int64 {
	if s.SelectedID == nil {
		return 0
	}
	return *s.SelectedID
}

// RecentRuns returns the first n runs in server order.
func (s Snapshot) RecentRuns(n int) []api.Run {
	if n < 0 || len(s.Runs) <= n {
		return s.Runs
	}
	return s.Runs[:n]
}

func (s Snapshot) Dataset(id int64) (api.Dataset, bool) {
	for _, d := range s.Datasets {
		if d.ID == id {
			return d, true
		}
	}
	return api.Dataset{}, false
}

// Equal compares the wire encoding so that equal server payloads compare
// equal regardless of how their timestamps were parsed.
func (s Snapshot) Equal(o Snapshot) bool {
	a, errA := json.Marshal(s)
	b, errB := json.Marshal(o)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

type Store struct {
	mu      sync.Mutex
	snap    Snapshot
	version uint64
	subs    map[int]chan Snapshot
	nextSub int
}

func NewStore(tab Tab) *Store {
	if tab == "" {
		tab = TabDashboard
	}
	return &Store{
		snap: Snapshot{Tab: tab, Datasets: []api.Dataset{}, Runs: []api.Run{}},
		subs: map[int]chan Snapshot{},
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Version increases every time a transition changes the snapshot.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Subscribe returns a channel that always holds the latest changed snapshot.
// Slow readers skip intermediate states.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 1)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}

// commit must be called with mu held.
func (s *Store) commit(next Snapshot) bool {
	if next.Equal(s.snap) {
		return false
	}
	s.snap = next
	s.version++
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
	return true
}

// ApplyLists replaces both collections wholesale. Nil lists become empty.
func (s *Store) ApplyLists(datasets []api.Dataset, runs []api.Run) bool {
	if datasets == nil {
		datasets = []api.Dataset{}
	}
	if runs == nil {
		runs = []api.Run{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.snap
	next.Datasets = datasets
	next.Runs = runs
	return s.commit(next)
}

// ApplyDetail replaces the selected run and its log tail, but only while id
// is still the selection. It reports whether the result was applied.
func (s *Store) ApplyDetail(id int64, run *api.Run, tail string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.SelectedID == nil || *s.snap.SelectedID != id {
		return false
	}
	next := s.snap
	next.Selected = run
	next.LogTail = tail
	s.commit(next)
	return true
}

// Select makes id the selected run. Detail of a previous selection is
// dropped so it is never shown under the new id.
func (s *Store) Select(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.SelectedID != nil && *s.snap.SelectedID == id {
		return false
	}
	next := s.snap
	sel := id
	next.SelectedID = &sel
	next.Selected = nil
	next.LogTail = ""
	return s.commit(next)
}

func (s *Store) SetTab(tab Tab) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Tab == tab {
		return false
	}
	next := s.snap
	next.Tab = tab
	return s.commit(next)
}
