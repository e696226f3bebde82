package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/robert-at-pretension-io/vcd2json/internal/signal"
)

const (
	violationsQuery = "data.vcd.checks.violations"
	summaryQuery    = "data.vcd.checks.summary"
)

// Engine evaluates OPA policies against converted waveforms
type Engine struct {
	queries map[string]rego.PreparedEvalQuery
	files   []string
}

// Violation represents a policy violation
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Signal   string `json:"signal"`
	// Timestep is the first offending slot, -1 when the rule concerns the
	// whole history.
	Timestep int    `json:"timestep"`
	Message  string `json:"message"`
}

// Result contains the evaluation results
type Result struct {
	Violations []Violation
	Summary    Summary
}

// Summary provides aggregate counts
type Summary struct {
	TotalViolations int `json:"total_violations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// Input is the data structure passed to OPA
type Input struct {
	// Values is the representation name the histories were decoded with.
	Values    string   `json:"values"`
	Timesteps int      `json:"timesteps"`
	Signals   []Signal `json:"signals"`
}

// Signal is one converted history as seen by the policies.
type Signal struct {
	Path   string `json:"path"`
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Kind   string `json:"kind"`
	Scope  string `json:"scope"`
	Values []any  `json:"values"`
}

// BuildInput flattens drained table entries into policy input.
func BuildInput[V any](entries []signal.Entry[V], values string, timesteps int) Input {
	input := Input{
		Values:    values,
		Timesteps: timesteps,
		Signals:   make([]Signal, 0, len(entries)),
	}
	for _, e := range entries {
		vals := make([]any, len(e.Values))
		for i, v := range e.Values {
			vals[i] = v
		}
		input.Signals = append(input.Signals, Signal{
			Path:   e.Path.String(),
			ID:     string(e.Var.ID),
			Width:  e.Var.Width,
			Kind:   e.Var.Type,
			Scope:  e.Scope,
			Values: vals,
		})
	}
	return input
}

// New creates a new policy engine, loading policies from the given directory
func New(policyDir string) (*Engine, error) {
	engine := &Engine{
		queries: make(map[string]rego.PreparedEvalQuery),
	}

	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, fmt.Errorf("finding policy files: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no policy files found in %s", policyDir)
	}
	sort.Strings(files)
	engine.files = files

	var modules []func(*rego.Rego)
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		modules = append(modules, rego.Module(f, string(content)))
	}

	ctx := context.Background()
	for name, q := range map[string]string{"violations": violationsQuery, "summary": summaryQuery} {
		opts := append(append([]func(*rego.Rego){}, modules...), rego.Query(q))
		query, err := rego.New(opts...).PrepareForEval(ctx)
		if err != nil {
			return nil, fmt.Errorf("preparing %s query: %w", name, err)
		}
		engine.queries[name] = query
	}

	return engine, nil
}

// Files lists the loaded policy files in load order.
func (e *Engine) Files() []string {
	return e.files
}

// Evaluate runs the policies against the input data
func (e *Engine) Evaluate(ctx context.Context, input Input) (*Result, error) {
	inputMap, err := structToMap(input)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	result := &Result{}

	rs, err := e.queries["violations"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}

	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		// violations is a partial set; OPA hands it back as a slice.
		violations, ok := rs[0].Expressions[0].Value.([]interface{})
		if ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				violation := Violation{
					Rule:     getString(vmap, "rule"),
					Severity: getString(vmap, "severity"),
					Signal:   getString(vmap, "signal"),
					Timestep: -1,
					Message:  getString(vmap, "message"),
				}
				if _, ok := vmap["timestep"]; ok {
					violation.Timestep = getInt(vmap, "timestep")
				}
				result.Violations = append(result.Violations, violation)
			}
		}
	}
	sort.SliceStable(result.Violations, func(i, j int) bool {
		a, b := result.Violations[i], result.Violations[j]
		if a.Signal != b.Signal {
			return a.Signal < b.Signal
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Timestep < b.Timestep
	})

	rs, err = e.queries["summary"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating summary: %w", err)
	}

	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		smap, ok := rs[0].Expressions[0].Value.(map[string]interface{})
		if ok {
			result.Summary = Summary{
				TotalViolations: getInt(smap, "total_violations"),
				Errors:          getInt(smap, "errors"),
				Warnings:        getInt(smap, "warnings"),
				Info:            getInt(smap, "info"),
			}
		}
	} else {
		result.Summary = summarize(result.Violations)
	}

	return result, nil
}

func summarize(vs []Violation) Summary {
	s := Summary{TotalViolations: len(vs)}
	for _, v := range vs {
		switch v.Severity {
		case "error":
			s.Errors++
		case "warning":
			s.Warnings++
		case "info":
			s.Info++
		}
	}
	return s
}

// structToMap keeps numbers as json.Number so 128-bit values reach OPA intact.
func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var result map[string]interface{}
	err = dec.Decode(&result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
