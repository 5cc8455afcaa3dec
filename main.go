// Package main provides the entry point for BBUSim.
// BBUSim simulates a branch history predictor whose counters live in a
// bounded LRU table.
//
// For the full CLI, use: go run ./cmd/bbusim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("BBUSim - Branch History Predictor Simulator")
	fmt.Println("")
	fmt.Println("Usage: bbusim [options] [<pattern_len> <pattern_init> <history> <size> <states>]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to predictor configuration JSON or YAML file")
	fmt.Println("  -random    Use a seeded random outcome stream")
	fmt.Println("  -v         Log verbosity")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/bbusim' for a single run,")
	fmt.Println("'go run ./cmd/benchmark' for a sweep over every pattern.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/bbusim' instead.")
	}
}
