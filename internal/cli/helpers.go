package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tablestore/internal/sqlite"
	"github.com/mesh-intelligence/tablestore/pkg/tableclient"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// isUserFailure reports whether err was caused by the request rather than
// the system: bad input, a missing or conflicting resource, a failed
// precondition, or an interrupt.
func isUserFailure(err error) bool {
	switch {
	case tableclient.IsCanceled(err),
		errors.Is(err, tableclient.ErrInvalidArgument),
		errors.Is(err, types.ErrInvalidTableName),
		errors.Is(err, types.ErrBackendEmpty),
		errors.Is(err, types.ErrBackendUnknown):
		return true
	}
	status := types.StatusCode(err)
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError &&
		status != http.StatusRequestTimeout
}

// printJSON writes v as indented JSON to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return sysError(fmt.Errorf("encode output: %w", err))
	}
	return nil
}

// parseProperties parses a JSON object of property values. Strings,
// booleans and numbers map to their natural types (integral numbers to
// int64). A value written in the typed storage form, {"t":"Edm.Guid","v":...},
// keeps that type.
func parseProperties(data string) (map[string]any, error) {
	if data == "" {
		return map[string]any{}, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("properties must be a JSON object: %w", err)
	}
	props := make(map[string]any, len(raw))
	for name, value := range raw {
		v, err := parseValue(name, value)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		props[name] = v
	}
	return props, nil
}

func parseValue(name string, value json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		single, err := json.Marshal(map[string]json.RawMessage{name: trimmed})
		if err != nil {
			return nil, err
		}
		typed, err := sqlite.DecodeProperties(single)
		if err != nil {
			return nil, err
		}
		return typed[name], nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case string, bool:
		return x, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		return x.Float64()
	default:
		return nil, fmt.Errorf("unsupported value %s", trimmed)
	}
}
