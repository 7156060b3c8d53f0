// Package mock is an in-memory pipeline backend serving the same HTTP
// contract as the real service. It backs `pipeconsole dev serve` and the
// tests of every package that talks to the API.
package mock

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/examai/pipeline-console/internal/api"
	"github.com/examai/pipeline-console/internal/status"
)

// StepNames is the fixed pipeline every run goes through.
var StepNames = []string{"preprocess", "train", "evaluate"}

var ErrNotFound = errors.New("not found")

type Options struct {
	// Prefix is the mount point of the API routes. Defaults to "/api".
	Prefix string
	// CheckPaths rejects datasets whose source_path does not exist locally.
	CheckPaths bool
	Now        func() time.Time
}

type injectedFailure struct {
	status  int
	message string
}

type Server struct {
	opts Options

	mu       sync.Mutex
	datasets []api.Dataset
	runs     []*api.Run
	logs     map[int64][]string
	nextDS   int64
	nextRun  int64
	nextStep int64
	counts   map[string]int
	failures map[string]injectedFailure
}

func New(opts Options) *Server {
	if strings.TrimSpace(opts.Prefix) == "" {
		opts.Prefix = "/api"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		opts:     opts,
		logs:     map[int64][]string{},
		counts:   map[string]int{},
		failures: map[string]injectedFailure{},
	}
}

// Handler builds the gin engine. Route keys used by Count and FailRoute are
// "<METHOD> <path>" with gin parameters, e.g. "GET /runs/:id/logs".
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	g := r.Group(s.opts.Prefix)
	g.Use(s.track)
	g.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	g.GET("/datasets", s.listDatasets)
	g.POST("/datasets", s.createDataset)
	g.GET("/runs", s.listRuns)
	g.POST("/runs", s.createRun)
	g.GET("/runs/:id", s.getRun)
	g.GET("/runs/:id/logs", s.getRunLogs)
	return r
}

func (s *Server) track(c *gin.Context) {
	key := c.Request.Method + " " + strings.TrimPrefix(c.FullPath(), s.opts.Prefix)
	s.mu.Lock()
	s.counts[key]++
	f, failing := s.failures[key]
	s.mu.Unlock()
	if failing {
		c.AbortWithStatusJSON(f.status, gin.H{"detail": f.message})
		return
	}
	c.Next()
}

// Count returns how many requests hit route since the last ResetCounts.
func (s *Server) Count(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[route]
}

func (s *Server) ResetCounts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = map[string]int{}
}

// FailRoute makes route answer with status until ClearFailures. A zero
// status clears just that route.
func (s *Server) FailRoute(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = injectedFailure{status: status, message: message}
}

func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]injectedFailure{}
}

func (s *Server) stamp() api.Timestamp { return api.NewTimestamp(s.opts.Now()) }

func detail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"detail": msg})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"loc": []string{"path", "id"}, "msg": "value is not a valid integer"}}})
		return 0, false
	}
	return id, true
}

func (s *Server) listDatasets(c *gin.Context) {
	c.JSON(http.StatusOK, s.Datasets())
}

func (s *Server) createDataset(c *gin.Context) {
	var req api.CreateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	ds, err := s.AddDataset(req.Name, req.SourcePath, req.Meta)
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, ds)
}

func (s *Server) listRuns(c *gin.Context) {
	c.JSON(http.StatusOK, s.Runs())
}

func (s *Server) createRun(c *gin.Context) {
	var req api.CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	run, err := s.AddRun(req.DatasetID, req.ModelType)
	if errors.Is(err, ErrNotFound) {
		detail(c, http.StatusNotFound, "dataset not found")
		return
	}
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) getRun(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	run, err := s.Run(id)
	if err != nil {
		detail(c, http.StatusNotFound, "run not found")
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) getRunLogs(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	lines := 200
	if raw := c.Query("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < api.MinLogLines || n > api.MaxLogLines {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{
				"loc": []string{"query", "lines"},
				"msg": fmt.Sprintf("lines must be between %d and %d", api.MinLogLines, api.MaxLogLines),
			}}})
			return
		}
		lines = n
	}
	tail, err := s.Tail(id, lines)
	if err != nil {
		detail(c, http.StatusNotFound, "run not found")
		return
	}
	c.JSON(http.StatusOK, api.LogTail{RunID: id, Tail: tail})
}

// Datasets returns datasets most recent first.
func (s *Server) Datasets() []api.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Dataset, len(s.datasets))
	copy(out, s.datasets)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Runs returns runs most recent first, steps included as the backend does.
func (s *Server) Runs() []api.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Run, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		out = append(out, cloneRun(s.runs[i]))
	}
	return out
}

func (s *Server) Run(id int64) (api.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findRun(id)
	if r == nil {
		return api.Run{}, ErrNotFound
	}
	return cloneRun(r), nil
}

// Tail returns the last n log lines of a run.
func (s *Server) Tail(id int64, n int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findRun(id) == nil {
		return "", ErrNotFound
	}
	lines := s.logs[id]
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Server) AddDataset(name, sourcePath string, meta map[string]any) (api.Dataset, error) {
	name = strings.TrimSpace(name)
	sourcePath = strings.TrimSpace(sourcePath)
	if name == "" {
		return api.Dataset{}, errors.New("name is required")
	}
	if sourcePath == "" {
		return api.Dataset{}, errors.New("source_path is required")
	}
	if s.opts.CheckPaths {
		if _, err := os.Stat(sourcePath); err != nil {
			return api.Dataset{}, fmt.Errorf("source_path does not exist: %s", sourcePath)
		}
	}
	if meta == nil {
		meta = map[string]any{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDS++
	ds := api.Dataset{ID: s.nextDS, Name: name, SourcePath: sourcePath, CreatedAt: s.stamp(), Meta: meta}
	s.datasets = append(s.datasets, ds)
	return ds, nil
}

func (s *Server) AddRun(datasetID int64, modelType string) (api.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, ds := range s.datasets {
		if ds.ID == datasetID {
			found = true
			break
		}
	}
	if !found {
		return api.Run{}, ErrNotFound
	}
	if strings.TrimSpace(modelType) == "" {
		modelType = "baseline_sklearn"
	}
	s.nextRun++
	run := &api.Run{
		ID:        s.nextRun,
		DatasetID: datasetID,
		ModelType: modelType,
		Status:    status.Queued,
		CreatedAt: s.stamp(),
		Metrics:   map[string]any{},
		Artifacts: map[string]any{},
		Steps:     make([]api.Step, 0, len(StepNames)),
	}
	for _, name := range StepNames {
		s.nextStep++
		run.Steps = append(run.Steps, api.Step{ID: s.nextStep, Name: name, Status: status.Queued})
	}
	s.runs = append(s.runs, run)
	s.logf(run.ID, "run %d queued for dataset %d (%s)", run.ID, datasetID, modelType)
	return cloneRun(run), nil
}

func (s *Server) findRun(id int64) *api.Run {
	for _, r := range s.runs {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Server) logf(runID int64, format string, args ...any) {
	line := fmt.Sprintf("[%s] %s", s.opts.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
	s.logs[runID] = append(s.logs[runID], line)
}

func cloneRun(r *api.Run) api.Run {
	out := *r
	out.Metrics = cloneMap(r.Metrics)
	out.Artifacts = cloneMap(r.Artifacts)
	if r.Steps != nil {
		out.Steps = append([]api.Step(nil), r.Steps...)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
