// =============================================================================
// vcd2json - Main Entry Point
// =============================================================================
//
// Converts a Value Change Dump into one document: scopes become objects, every
// signal becomes an array holding its value at each #time slot.
//
// THE PIPELINE:
//   1. vcd.Parser reads the header and the simulation commands
//   2. signal.Table replays the commands into lockstep histories
//   3. output.Build nests the histories under their scope paths
//   4. CUE Validator enforces the output contract
//   5. OPA evaluates waveform policies (only with --policy)
//   6. The document is written as JSON or YAML
//
// WHEN A DOCUMENT LOOKS WRONG:
//   Start at the beginning of the pipeline, not the end!
//   Parser issues → Table issues → Tree issues
// =============================================================================

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/robert-at-pretension-io/vcd2json/internal/config"
	"github.com/robert-at-pretension-io/vcd2json/internal/value"
)

const version = "0.3.0"

type options struct {
	strings    bool
	pretty     bool
	compact    bool
	yaml       bool
	noValidate bool
	verbose    bool
	help       bool
	version    bool
	configPath string
	output     string
	policyDir  string
	timing     string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "init" {
		return runInit(stdin, stdout, stderr)
	}

	fs := pflag.NewFlagSet("vcd2json", pflag.ContinueOnError)
	// Parse errors are reported once, by fail.
	fs.SetOutput(io.Discard)
	var opts options
	fs.BoolVar(&opts.strings, "strings", false, "Keep values as bit strings (X and Z preserved) instead of integers")
	fs.BoolVar(&opts.pretty, "pretty", false, "Indent the output (default when stdout is a terminal)")
	fs.BoolVar(&opts.compact, "compact", false, "Never indent the output")
	fs.BoolVar(&opts.yaml, "yaml", false, "Write YAML instead of JSON")
	fs.BoolVar(&opts.noValidate, "no-validate", false, "Skip the output schema check")
	fs.StringVarP(&opts.configPath, "config", "c", "", "Use this config file instead of searching for one")
	fs.StringVarP(&opts.output, "output", "o", "", "Write the document to this file (a directory when converting a directory)")
	fs.StringVar(&opts.policyDir, "policy", "", "Evaluate the .rego policies in this directory")
	fs.StringVar(&opts.timing, "timing", "", "Append JSONL stage timing to this file")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Report progress on stderr")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show this help message")
	fs.BoolVar(&opts.version, "version", false, "Print version information")
	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		return fail(stderr, err)
	}
	if opts.help {
		printUsage(stdout, fs)
		return 0
	}
	if opts.version {
		fmt.Fprintf(stdout, "vcd2json version %s\n", version)
		return 0
	}
	if opts.pretty && opts.compact {
		return fail(stderr, fmt.Errorf("--pretty and --compact are mutually exclusive"))
	}

	rest := fs.Args()
	if len(rest) > 1 {
		return fail(stderr, fmt.Errorf("expected at most one input, got %d", len(rest)))
	}
	inputPath := ""
	if len(rest) == 1 {
		inputPath = rest[0]
	}

	cfg, err := loadConfig(opts, inputPath, stderr)
	if err != nil {
		return fail(stderr, err)
	}
	applyFlags(cfg, opts)
	if err := cfg.Check(); err != nil {
		return fail(stderr, err)
	}

	c := &converter{
		cfg:     cfg,
		verbose: opts.verbose,
		log:     stderr,
	}

	if inputPath != "" {
		info, err := os.Stat(inputPath)
		if err != nil {
			return fail(stderr, err)
		}
		if info.IsDir() {
			if opts.output != "" {
				// -o is relative to the working directory; only a config
				// file's output.dir is relative to the input root.
				dir, err := filepath.Abs(opts.output)
				if err != nil {
					return fail(stderr, err)
				}
				cfg.Output.Dir = dir
			}
			return exitCode(stderr, c.convertDir(inputPath))
		}
	}

	var in io.Reader
	switch {
	case inputPath != "":
		f, err := os.Open(inputPath)
		if err != nil {
			return fail(stderr, err)
		}
		defer func() { _ = f.Close() }()
		in = bufio.NewReader(f)
	case isTerminal(stdin):
		return fail(stderr, fmt.Errorf("no input file"))
	default:
		in = bufio.NewReader(stdin)
	}

	if opts.output != "" {
		return exitCode(stderr, c.convertTo(in, opts.output))
	}
	return exitCode(stderr, c.convert(in, stdout, cfg.PrettyOutput(isTerminal(stdout))))
}

func loadConfig(opts options, inputPath string, stderr io.Writer) (*config.Config, error) {
	if opts.configPath != "" {
		cfg, err := config.LoadFile(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", opts.configPath, err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(inputPath)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: Could not load config: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}
	return cfg, nil
}

// applyFlags lets command-line flags override the config file.
func applyFlags(cfg *config.Config, opts options) {
	if opts.strings {
		cfg.Values = value.StringName
	}
	if opts.yaml {
		cfg.Output.Format = "yaml"
	}
	if opts.pretty {
		cfg.Output.Pretty = boolPtr(true)
	}
	if opts.compact {
		cfg.Output.Pretty = boolPtr(false)
	}
	if opts.noValidate {
		cfg.Validate = boolPtr(false)
	}
	if opts.policyDir != "" {
		cfg.Policy.Dir = opts.policyDir
	}
	if opts.timing != "" {
		cfg.Timing = opts.timing
	}
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, `Usage: vcd2json [options] [file | directory]
       vcd2json init

Converts a VCD dump to a JSON document of per-timestep signal histories.
Reads stdin when no file is given.

Options:
%s
Configuration:
  vcd2json looks for configuration in:
    1. ./vcd2json.json
    2. ./.vcd2json.json
    3. <input dir>/vcd2json.json
    4. ~/.config/vcd2json/config.json

  Run 'vcd2json init' to create a default configuration file.
`, fs.FlagUsages())
}

func runInit(stdin io.Reader, stdout, stderr io.Writer) int {
	configPath := "vcd2json.json"

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(stdout, "Config file %s already exists. Overwrite? [y/N]: ", configPath)
		response, _ := bufio.NewReader(stdin).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(stdout, "Aborted.")
			return 0
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(stderr, "Error creating config: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Created %s\n", configPath)
	fmt.Fprintln(stdout, "\nEdit this file to configure:")
	fmt.Fprintln(stdout, "  - Value representation (numeric or string)")
	fmt.Fprintln(stdout, "  - Output format and indentation")
	fmt.Fprintln(stdout, "  - Waveform policies and failure threshold")
	fmt.Fprintln(stdout, "  - Input patterns for directory conversion")
	return 0
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func exitCode(stderr io.Writer, err error) int {
	if err != nil {
		return fail(stderr, err)
	}
	return 0
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func boolPtr(v bool) *bool {
	return &v
}
