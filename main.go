// Package main provides the entry point for TraceSim.
// TraceSim is a trace-driven, cycle-level CPU pipeline simulator.
//
// For the full CLI, use: go run ./cmd/tracesim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("TraceSim - trace-driven cycle-level pipeline simulator")
	fmt.Println("")
	fmt.Println("Usage: tracesim [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config      Path to pipeline configuration JSON file")
	fmt.Println("  -discipline  Execution discipline: ooo or inorder")
	fmt.Println("  -n           Number of synthetic instructions to simulate")
	fmt.Println("  -heartbeat   Emit periodic heartbeat reports")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/tracesim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/tracesim' instead.")
	}
}
