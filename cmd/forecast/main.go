// Package main provides an offline forecast CLI: it reads a raw simulation
// payload from a file or stdin, normalizes it and prints the execution
// forecast (gas breakdown, call tree, token flows) as Markdown.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"tx-forecast-lab/internal/normalization"
	"tx-forecast-lab/internal/reporting"
)

func main() {
	payloadPath := flag.String("payload", "", "Path to raw simulation payload JSON (default: stdin)")
	actor := flag.String("actor", "", "Focal address for flow aggregation")
	topCallees := flag.Int("top-callees", 0, "Number of callees in the gas ranking (0 = default)")
	maxPoints := flag.Int("max-points", 0, "Flow series point bound (0 = default)")
	outputPath := flag.String("output", "", "Write the report to this file instead of stdout")
	flag.Parse()

	data, err := readPayload(*payloadPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading payload: %v\n", err)
		os.Exit(1)
	}

	result, err := normalization.NormalizeJSON(data)
	if err != nil {
		if errors.Is(err, normalization.ErrUnexpectedPayload) {
			fmt.Fprintln(os.Stderr, "Error: the simulation service returned an unexpected response")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	forecast := reporting.BuildForecast(result, *actor, *topCallees, *maxPoints)
	report := reporting.RenderMarkdown(forecast)

	if *outputPath != "" {
		if err := os.WriteFile(*outputPath, []byte(report), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report written to %s\n", *outputPath)
		return
	}
	fmt.Print(report)
}

func readPayload(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
