package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Bounds the backend enforces on ?lines=.
const (
	MinLogLines = 10
	MaxLogLines = 5000
)

// Client is the typed boundary to the pipeline backend. It keeps no local
// cache; every call goes to the server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func (c Client) baseEndpointFor(path string) (string, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return "", fmt.Errorf("missing api base url")
	}
	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	p := strings.TrimSpace(path)
	p = strings.TrimPrefix(p, "/")
	u.Path = strings.TrimRight(u.Path, "/") + "/" + p
	return u.String(), nil
}

func (c Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint, err := c.baseEndpointFor(path)
	if err != nil {
		return &RequestError{Method: method, Path: path, Message: err.Error(), Err: err}
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	var r io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
		r = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, r)
	if err != nil {
		return &RequestError{Method: method, Path: path, Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return &RequestError{Method: method, Path: path, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: errorMessage(b, resp.StatusCode)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}

func (c Client) ListDatasets(ctx context.Context) ([]Dataset, error) {
	var out []Dataset
	if err := c.do(ctx, http.MethodGet, "/datasets", nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Dataset{}
	}
	return out, nil
}

func (c Client) CreateDataset(ctx context.Context, req CreateDatasetRequest) (*Dataset, error) {
	if req.Meta == nil {
		req.Meta = map[string]any{}
	}
	var out Dataset
	if err := c.do(ctx, http.MethodPost, "/datasets", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRuns returns runs in server order with Steps stripped.
func (c Client) ListRuns(ctx context.Context) ([]Run, error) {
	var out []Run
	if err := c.do(ctx, http.MethodGet, "/runs", nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Run{}
	}
	for i := range out {
		out[i].Steps = nil
	}
	return out, nil
}

// GetRun returns the run with its steps. Steps is never nil on success.
func (c Client) GetRun(ctx context.Context, id int64) (*Run, error) {
	var out Run
	if err := c.do(ctx, http.MethodGet, "/runs/"+strconv.FormatInt(id, 10), nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Steps == nil {
		out.Steps = []Step{}
	}
	return &out, nil
}

// GetRunLogs returns at most maxLines of the run's log, keeping the most
// recent lines.
func (c Client) GetRunLogs(ctx context.Context, id int64, maxLines int) (string, error) {
	path := "/runs/" + strconv.FormatInt(id, 10) + "/logs"
	if maxLines <= 0 {
		return "", &RequestError{
			Method:  http.MethodGet,
			Path:    path,
			Message: fmt.Sprintf("invalid line count: %d", maxLines),
			Err:     ErrInvalidLineCount,
		}
	}
	n := maxLines
	if n < MinLogLines {
		n = MinLogLines
	}
	if n > MaxLogLines {
		n = MaxLogLines
	}
	q := url.Values{"lines": []string{strconv.Itoa(n)}}
	var out LogTail
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return "", err
	}
	return TailLines(out.Tail, maxLines), nil
}

func (c Client) CreateRun(ctx context.Context, req CreateRunRequest) (*Run, error) {
	var out Run
	if err := c.do(ctx, http.MethodPost, "/runs", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks GET /health.
func (c Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

// TailLines keeps the last n lines of s. Text that already fits is returned
// unchanged, trailing newline included.
func TailLines(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
