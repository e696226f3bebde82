// =============================================================================
// vcd2json conversion pipeline
// =============================================================================
//
// THE PIPELINE:
//   1. vcd.Parser reads the header (scope tree + $var declarations)
//   2. signal.Table registers every var under its hierarchical path
//   3. Every simulation command is replayed into the table:
//      #time advances all histories, value changes overwrite the last slot
//   4. The table is drained into (path, history) pairs
//   5. output.Build nests the pairs into the document tree
//
// Nothing is emitted unless every stage succeeds.
// =============================================================================

package convert

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/robert-at-pretension-io/vcd2json/internal/output"
	"github.com/robert-at-pretension-io/vcd2json/internal/signal"
	"github.com/robert-at-pretension-io/vcd2json/internal/value"
	"github.com/robert-at-pretension-io/vcd2json/internal/vcd"
)

// Options controls diagnostics. The zero value runs silently.
type Options struct {
	// Verbose writes stage summaries to Log.
	Verbose bool
	Log     io.Writer
	// TimingPath enables JSONL stage timing. VCD2JSON_TIMING_JSONL overrides it.
	TimingPath string
}

// Stats summarizes one conversion.
type Stats struct {
	Signals   int `json:"signals"`
	IDs       int `json:"ids"`
	Timesteps int `json:"timesteps"`
	Commands  int `json:"commands"`
	Changes   int `json:"changes"`
	// Dropped counts changes the representation could not hold.
	Dropped int `json:"dropped"`
}

// Result is a finished conversion.
type Result[V any] struct {
	Header  *vcd.Header
	Entries []signal.Entry[V]
	Tree    *output.Node[V]
	Stats   Stats
}

// SourceError wraps failures reading or parsing the dump.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("reading trace: %v", e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Run converts the dump read from r using repr.
func Run[V any](r io.Reader, repr value.Representation[V], opts Options) (*Result[V], error) {
	runStart := time.Now()
	timing := newTimingRecorder(runStart, resolveTimingPath(opts.TimingPath))
	defer timing.Close()
	if err := timing.Err(); err != nil {
		opts.logf("Warning: timing output disabled: %v\n", err)
	}

	// 1. Header
	stepStart := time.Now()
	parser := vcd.NewParser(r)
	header, err := parser.ParseHeader()
	if err != nil {
		timing.RecordStage("header", "error", 0, stepStart, time.Since(stepStart))
		return nil, &SourceError{Err: err}
	}
	timing.RecordStage("header", "ok", len(header.Items), stepStart, time.Since(stepStart))

	// 2. Declarations
	stepStart = time.Now()
	table, err := signal.NewTable(header, repr)
	if err != nil {
		timing.RecordStage("declare", "error", 0, stepStart, time.Since(stepStart))
		return nil, fmt.Errorf("declaring signals: %w", err)
	}
	timing.RecordStage("declare", "ok", table.Len(), stepStart, time.Since(stepStart))
	opts.logf("Declared %d signals (%d id codes), %s values\n", table.Len(), table.IDs(), repr.Name())

	// 3. Events
	stepStart = time.Now()
	var stats Stats
	for {
		cmd, err := parser.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			timing.RecordStage("events", "error", stats.Commands, stepStart, time.Since(stepStart))
			return nil, &SourceError{Err: err}
		}
		stats.Commands++
		applied, err := table.Apply(cmd)
		if err != nil {
			timing.RecordStage("events", "error", stats.Commands, stepStart, time.Since(stepStart))
			return nil, fmt.Errorf("applying command %d: %w", stats.Commands, err)
		}
		switch {
		case applied:
			stats.Changes++
		case isChange(cmd.Kind):
			stats.Dropped++
		}
	}
	stats.Signals = table.Len()
	stats.IDs = table.IDs()
	stats.Timesteps = table.Timesteps()
	timing.RecordStage("events", "ok", stats.Commands, stepStart, time.Since(stepStart))
	opts.logf("Replayed %d commands: %d timesteps, %d changes, %d dropped\n",
		stats.Commands, stats.Timesteps, stats.Changes, stats.Dropped)

	// 4-5. Flatten and nest
	stepStart = time.Now()
	entries := table.Drain()
	tree, err := output.Build(entries)
	if err != nil {
		timing.RecordStage("tree", "error", 0, stepStart, time.Since(stepStart))
		return nil, fmt.Errorf("building output: %w", err)
	}
	timing.RecordStage("tree", "ok", len(entries), stepStart, time.Since(stepStart))
	opts.logf("Conversion finished in %s\n", formatDuration(time.Since(runStart)))

	return &Result[V]{
		Header:  header,
		Entries: entries,
		Tree:    tree,
		Stats:   stats,
	}, nil
}

func isChange(k vcd.CommandKind) bool {
	switch k {
	case vcd.ChangeScalar, vcd.ChangeVector, vcd.ChangeReal, vcd.ChangeString:
		return true
	}
	return false
}

func (o Options) logf(format string, args ...any) {
	if !o.Verbose || o.Log == nil {
		return
	}
	fmt.Fprintf(o.Log, format, args...)
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
