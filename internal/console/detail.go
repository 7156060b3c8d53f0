package console

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/examai/pipeline-console/internal/api"
)

const DefaultLogLines = 400

// Detail is one run fetched by id plus its log tail.
type Detail struct {
	Run     *api.Run
	LogTail string
	// LogErr is set when the log tail could not be read; LogTail is then empty.
	LogErr error
}

// DetailFetcher reads a run and then a bounded tail of its log. A failed
// log read never fails the fetch.
type DetailFetcher struct {
	Backend  Backend
	LogLines int
	Log      zerolog.Logger
}

func (f DetailFetcher) Fetch(ctx context.Context, id int64) (Detail, error) {
	run, err := f.Backend.GetRun(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	lines := f.LogLines
	if lines <= 0 {
		lines = DefaultLogLines
	}
	tail, err := f.Backend.GetRunLogs(ctx, id, lines)
	if err != nil {
		f.Log.Debug().Err(err).Int64("run_id", id).Msg("log tail unavailable")
		return Detail{Run: run, LogErr: err}, nil
	}
	return Detail{Run: run, LogTail: tail}, nil
}
