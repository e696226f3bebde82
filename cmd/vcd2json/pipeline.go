package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/robert-at-pretension-io/vcd2json/internal/config"
	"github.com/robert-at-pretension-io/vcd2json/internal/convert"
	"github.com/robert-at-pretension-io/vcd2json/internal/policy"
	"github.com/robert-at-pretension-io/vcd2json/internal/validator"
	"github.com/robert-at-pretension-io/vcd2json/internal/value"
)

// errPolicyFailed marks a run whose document was written but whose policies
// reported violations at or above policy.failOn.
var errPolicyFailed = errors.New("policy violations")

type converter struct {
	cfg     *config.Config
	verbose bool
	log     io.Writer

	validator *validator.Validator
	engine    *policy.Engine
}

// convert reads one dump from in and writes its document to out.
func (c *converter) convert(in io.Reader, out io.Writer, pretty bool) error {
	format, err := convert.ParseFormat(c.cfg.Output.Format)
	if err != nil {
		return err
	}
	opts := convert.Options{
		Verbose:    c.verbose,
		Log:        c.log,
		TimingPath: c.cfg.Timing,
	}

	var doc any
	var failing int
	switch c.cfg.Values {
	case value.StringName:
		doc, failing, err = process[value.Bits](c, in, value.Strings{}, opts)
	default:
		doc, failing, err = process[value.Number](c, in, value.Numeric{}, opts)
	}
	if err != nil {
		return err
	}

	if err := convert.Encode(out, doc, format, pretty); err != nil {
		return err
	}
	if failing > 0 {
		return fmt.Errorf("%w: %d at or above %s", errPolicyFailed, failing, c.cfg.Policy.FailOn)
	}
	return nil
}

// process converts, validates and runs policies. failing counts violations
// that fail the run; the document is still returned for writing.
func process[V any](c *converter, in io.Reader, repr value.Representation[V], opts convert.Options) (doc any, failing int, err error) {
	res, err := convert.Run(in, repr, opts)
	if err != nil {
		return nil, 0, err
	}

	if c.cfg.ValidateEnabled() {
		if err := c.validate(res.Tree); err != nil {
			return nil, 0, err
		}
	}

	if c.cfg.Policy.Dir != "" {
		input := policy.BuildInput(res.Entries, repr.Name(), res.Stats.Timesteps)
		failing, err = c.evaluate(input)
		if err != nil {
			return nil, 0, err
		}
	}

	return res.Tree, failing, nil
}

func (c *converter) validate(doc any) error {
	if c.validator == nil {
		v, err := validator.New()
		if err != nil {
			return fmt.Errorf("loading output schema: %w", err)
		}
		c.validator = v
	}
	if err := c.validator.Validate(doc); err != nil {
		if c.verbose {
			for _, e := range c.validator.ValidationErrors(doc) {
				fmt.Fprintf(c.log, "  schema: %s\n", e)
			}
		}
		return err
	}
	if c.verbose {
		fmt.Fprintln(c.log, "Output schema check passed")
	}
	return nil
}

// evaluate prints every violation to the log and returns how many of them
// meet policy.failOn.
func (c *converter) evaluate(input policy.Input) (int, error) {
	if c.engine == nil {
		engine, err := policy.New(c.cfg.Policy.Dir)
		if err != nil {
			return 0, fmt.Errorf("loading policies: %w", err)
		}
		c.engine = engine
		if c.verbose {
			for _, f := range engine.Files() {
				fmt.Fprintf(c.log, "Loaded policy %s\n", f)
			}
		}
	}

	result, err := c.engine.Evaluate(context.Background(), input)
	if err != nil {
		return 0, fmt.Errorf("evaluating policies: %w", err)
	}

	failing := 0
	for _, v := range result.Violations {
		at := ""
		if v.Timestep >= 0 {
			at = fmt.Sprintf(" @%d", v.Timestep)
		}
		fmt.Fprintf(c.log, "%s: %s%s: %s [%s]\n", v.Severity, v.Signal, at, v.Message, v.Rule)
		if c.cfg.ShouldFail(v.Severity) {
			failing++
		}
	}
	if c.verbose || result.Summary.TotalViolations > 0 {
		fmt.Fprintf(c.log, "Policies: %d violations (%d errors, %d warnings, %d info)\n",
			result.Summary.TotalViolations, result.Summary.Errors, result.Summary.Warnings, result.Summary.Info)
	}
	return failing, nil
}

// convertDir converts every dump config.Inputs selects under root. Each
// document goes through the same pipeline; a failure stops the batch.
func (c *converter) convertDir(root string) error {
	files, err := c.cfg.ResolveInputs(root)
	if err != nil {
		return fmt.Errorf("resolving inputs: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no dump files found in %s", root)
	}

	var policyFailures []string
	for _, input := range files {
		target := c.cfg.OutputPathFor(input, root)
		if c.verbose {
			fmt.Fprintf(c.log, "%s -> %s\n", input, target)
		}
		err := c.convertFile(input, target)
		if errors.Is(err, errPolicyFailed) {
			policyFailures = append(policyFailures, input)
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", input, err)
		}
	}

	fmt.Fprintf(c.log, "Converted %d files\n", len(files))
	if len(policyFailures) > 0 {
		return fmt.Errorf("%w in %s", errPolicyFailed, strings.Join(policyFailures, ", "))
	}
	return nil
}

func (c *converter) convertFile(input, target string) error {
	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return c.convertTo(bufio.NewReader(in), target)
}

// convertTo writes the document to the file at target. The document goes to
// a temporary file in the same directory that replaces target only once
// conversion succeeded, so a failed run leaves an existing target untouched.
func (c *converter) convertTo(in io.Reader, target string) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	convErr := c.convert(in, w, c.cfg.PrettyOutput(false))
	if convErr != nil && !errors.Is(convErr, errPolicyFailed) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return convErr
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return convErr
}
