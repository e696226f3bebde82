package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/robert-at-pretension-io/vcd2json/internal/facts"
	"github.com/robert-at-pretension-io/vcd2json/internal/signal"
	"github.com/robert-at-pretension-io/vcd2json/internal/validator"
	"github.com/robert-at-pretension-io/vcd2json/internal/value"
	"github.com/robert-at-pretension-io/vcd2json/internal/vcd"
)

func main() {
	output := pflag.StringP("output", "o", "", "write facts JSON to file (default: stdout)")
	scope := pflag.String("scope", "", "keep only rows at or below this dotted scope path")
	deltaFrom := pflag.String("delta-from", "", "previous facts JSON to compute delta from")
	deltaOut := pflag.String("delta-out", "", "write delta JSON to file (requires --delta-from)")
	pflag.Parse()

	args := pflag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: vcd-facts [--output file] [--scope tb.dut] [--delta-from prev.json --delta-out delta.json] <dump.vcd>")
		os.Exit(1)
	}

	tables, err := readDump(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	tables = facts.FilterTablesByScope(tables, *scope)

	v, err := validator.NewFactsValidator()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading facts schema: %v\n", err)
		os.Exit(1)
	}
	if err := v.Validate(tables); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *output != "" {
		if err := writeJSON(*output, tables); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing facts: %v\n", err)
			os.Exit(1)
		}
	} else {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tables); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding facts: %v\n", err)
			os.Exit(1)
		}
	}

	if *deltaFrom != "" || *deltaOut != "" {
		if *deltaFrom == "" || *deltaOut == "" {
			fmt.Fprintln(os.Stderr, "Error: --delta-from and --delta-out must be used together")
			os.Exit(1)
		}
		prev, err := readTables(*deltaFrom)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading delta-from: %v\n", err)
			os.Exit(1)
		}
		delta := facts.ComputeDelta(prev, tables)
		if err := writeJSON(*deltaOut, delta); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing delta: %v\n", err)
			os.Exit(1)
		}
	}
}

// readDump reads only the header; simulation commands are never replayed.
func readDump(path string) (facts.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return facts.Tables{}, err
	}
	defer func() { _ = f.Close() }()

	header, err := vcd.NewParser(bufio.NewReader(f)).ParseHeader()
	if err != nil {
		return facts.Tables{}, fmt.Errorf("reading %s: %w", path, err)
	}
	table, err := signal.NewTable[value.Bits](header, value.Strings{})
	if err != nil {
		return facts.Tables{}, fmt.Errorf("declaring signals: %w", err)
	}
	return facts.BuildTables(header, table.Declarations()), nil
}

func readTables(path string) (facts.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return facts.Tables{}, err
	}
	defer func() { _ = f.Close() }()

	var tables facts.Tables
	if err := json.NewDecoder(f).Decode(&tables); err != nil {
		return facts.Tables{}, err
	}
	return tables, nil
}

func writeJSON(path string, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
