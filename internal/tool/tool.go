// Package tool holds the capabilities the language model may invoke
// mid-turn, and the registry that dispatches invocations and accumulates
// per-turn provenance.
package tool

import "context"

// Param describes one schema parameter in a provider-neutral way; the
// provider adapter translates it into its native function declaration.
type Param struct {
	Name        string
	Type        string // "string" or "integer"
	Description string
	Required    bool
}

type Schema struct {
	Name        string
	Description string
	Params      []Param
}

// Source is one provenance record: a human-readable label plus an optional
// link, attributed to the answer that the invoking turn produces.
type Source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// Result is a capability's output: the text handed back to the model and
// the sources that informed it. Empty results are valid outcomes reported
// through Text, not errors.
type Result struct {
	Text    string
	Sources []Source
}

type Tool interface {
	Schema() Schema
	Execute(ctx context.Context, args map[string]any) (Result, error)
}

// stringArg and intArg tolerate the loosely typed argument maps a model
// produces (JSON numbers arrive as float64).
func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
