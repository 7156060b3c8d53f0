package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/examai/pipeline-console/internal/api"
	"github.com/examai/pipeline-console/internal/console"

	"github.com/spf13/cobra"
)

func writeData(cmd *cobra.Command, app *App, meta map[string]any, data any) error {
	out := map[string]any{
		"ok":   true,
		"meta": meta,
		"data": data,
	}
	// Avoid emitting empty meta.
	if meta == nil {
		delete(out, "meta")
	}
	return writeOut(cmd, app, out)
}

func writeFailure(cmd *cobra.Command, app *App, code string, err error, hint string, details any) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	out := map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": err.Error(),
			"details": details,
		},
		"hint": hint,
	}
	// We still return an error so Cobra exits non-zero.
	_ = writeOut(cmd, app, out)
	return err
}

// writeAPIFailure classifies a client or console error into a stable code.
func writeAPIFailure(cmd *cobra.Command, app *App, err error) error {
	code, hint := "api_error", ""
	var parseErr *api.ParseError
	status := api.StatusCode(err)
	switch {
	case errors.Is(err, console.ErrInvalidInput), errors.Is(err, api.ErrInvalidLineCount):
		code = "invalid_input"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = "canceled"
	case errors.As(err, &parseErr):
		code = "bad_response"
		hint = "The API returned data this console cannot read; check the server version."
	case status == http.StatusNotFound:
		code = "not_found"
	case status == http.StatusUnprocessableEntity, status == http.StatusBadRequest:
		code = "invalid_request"
	case status >= 500:
		code = "server_error"
	case status == 0:
		code = "api_unreachable"
		hint = "Check --api or run `pipeconsole api show`; `pipeconsole dev serve` starts a local fake."
	}
	var details any
	if status != 0 {
		details = map[string]any{"status": status}
	}
	return writeFailure(cmd, app, code, err, hint, details)
}
