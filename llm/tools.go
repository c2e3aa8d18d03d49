package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/kaptinlin/jsonrepair"

	"go.aimuz.me/echoflow/internal/types"
)

// Tool names offered to every provider.
const (
	ToolDictation = "process_dictation"
	ToolCommand   = "run_system_command"
)

// DictationArgs are the arguments of process_dictation.
type DictationArgs struct {
	FormattedText string `json:"formatted_text" jsonschema:"The exact, cleaned text to paste into the document. Do not wrap in quotes."`
}

// CommandArgs are the arguments of run_system_command.
type CommandArgs struct {
	Action     string `json:"action" jsonschema:"The action identifier, e.g. 'open_app', 'send_email', 'open_url', 'search_web'."`
	Parameters string `json:"parameters" jsonschema:"A JSON-encoded string dictionary containing the parameters for the action, e.g. '{\"app_name\": \"Safari\"}'."`
}

// ToolSpec describes one function tool.
type ToolSpec struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
}

// SchemaMap returns the schema as a generic JSON object.
func (t ToolSpec) SchemaMap() map[string]any {
	b, err := json.Marshal(t.Schema)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

// Tools is the routing tool set.
var Tools = []ToolSpec{
	mustTool[DictationArgs](ToolDictation,
		"Injects the dictated text directly into the active text field. Correct spelling and grammar gracefully."),
	mustTool[CommandArgs](ToolCommand,
		"Executes a system-level command (e.g. open an app, send an email, open a URL). Do not use this for plain typing."),
}

func mustTool[T any](name, description string) ToolSpec {
	schema, err := jsonschema.For[T](&jsonschema.ForOptions{})
	if err != nil {
		panic(fmt.Sprintf("schema for %s: %v", name, err))
	}
	return ToolSpec{Name: name, Description: description, Schema: schema}
}

// ErrMalformedToolCall is returned when a tool call cannot be turned into
// a route.
var ErrMalformedToolCall = errors.New("malformed tool call")

// ParseToolCall converts a tool invocation into a route. args is the raw
// JSON argument object.
func ParseToolCall(name string, args []byte) (types.RouteResult, error) {
	switch name {
	case ToolDictation:
		var a DictationArgs
		if err := unmarshalJSON(args, &a); err != nil {
			return types.RouteResult{}, fmt.Errorf("%w: %s: %v", ErrMalformedToolCall, name, err)
		}
		if a.FormattedText == "" {
			return types.RouteResult{}, fmt.Errorf("%w: %s: empty formatted_text", ErrMalformedToolCall, name)
		}
		return types.Dictation(a.FormattedText), nil

	case ToolCommand:
		var a struct {
			Action     string          `json:"action"`
			Parameters json.RawMessage `json:"parameters"`
		}
		if err := unmarshalJSON(args, &a); err != nil {
			return types.RouteResult{}, fmt.Errorf("%w: %s: %v", ErrMalformedToolCall, name, err)
		}
		if a.Action == "" {
			return types.RouteResult{}, fmt.Errorf("%w: %s: empty action", ErrMalformedToolCall, name)
		}
		return types.Command(a.Action, ParseParameters(a.Parameters)), nil

	default:
		return types.RouteResult{}, fmt.Errorf("%w: unknown tool %q", ErrMalformedToolCall, name)
	}
}

// ParseParameters decodes command parameters. They normally arrive as a
// JSON-encoded string but some models send the object itself. Anything
// that cannot be decoded yields an empty map.
func ParseParameters(raw json.RawMessage) map[string]string {
	params := map[string]string{}
	if len(raw) == 0 {
		return params
	}

	data := []byte(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return params
		}
		data = []byte(s)
	}

	var obj map[string]any
	if err := unmarshalJSON(data, &obj); err != nil {
		slog.Warn("discarding unparsable command parameters", "raw", string(raw), "error", err)
		return params
	}
	for k, v := range obj {
		switch v := v.(type) {
		case string:
			params[k] = v
		case float64:
			params[k] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			params[k] = strconv.FormatBool(v)
		}
	}
	return params
}

// unmarshalJSON unmarshals JSON data into v, attempting to repair malformed
// JSON on a syntax error.
func unmarshalJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return err
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}
