// Package format renders command output (json or edn) and the small display
// helpers shared by the CLI tables and the TUI.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"olympos.io/encoding/edn"
)

func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "edn":
		return WriteEDN(w, v, pretty)
	default:
		return fmt.Errorf("unknown format %q (expected json|edn)", format)
	}
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// WriteEDN round-trips v through JSON so struct tags decide the key names,
// then emits every map key as a keyword.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return err
	}
	var out []byte
	if pretty {
		out, err = edn.MarshalIndent(keywordize(generic), "", "  ")
	} else {
		out, err = edn.Marshal(keywordize(generic))
	}
	if err != nil {
		return err
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

func keywordize(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[edn.Keyword]any, len(typed))
		for k, val := range typed {
			out[edn.Keyword(keywordName(k))] = keywordize(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, keywordize(item))
		}
		return out
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i
		}
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	default:
		return v
	}
}

func keywordName(k string) string {
	k = strings.TrimPrefix(strings.TrimSpace(k), ":")
	if k == "" {
		return "_"
	}
	return strings.Join(strings.Fields(k), "-")
}
